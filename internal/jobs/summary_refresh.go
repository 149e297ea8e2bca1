package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"solace/internal/logging"
	"solace/internal/models"
	"solace/internal/services"
)

const summaryRefreshTimeout = 10 * time.Minute

const summarySystemPrompt = `You are a clinical-adjacent summarizer for a mental wellbeing app.
Write a short factual narrative summary (3-5 sentences) of the user's recent data.
Mention mood direction, notable triggers, and therapy engagement.
Do not give advice, do not diagnose, do not address the user directly.`

// SummaryStore persists refreshed narrative summaries
type SummaryStore interface {
	ListUserIDsWithData(ctx context.Context) ([]string, error)
	UpsertSummaryCache(ctx context.Context, summary *models.SummaryCache) error
}

// SummaryRefreshJob regenerates each user's cached narrative summary.
// A failed generation leaves the previous cached summary in place.
type SummaryRefreshJob struct {
	store      SummaryStore
	aggregator *services.ContextAggregator
	provider   *services.ProviderService
}

// NewSummaryRefreshJob creates a new summary refresh job
func NewSummaryRefreshJob(store SummaryStore, aggregator *services.ContextAggregator, provider *services.ProviderService) *SummaryRefreshJob {
	return &SummaryRefreshJob{
		store:      store,
		aggregator: aggregator,
		provider:   provider,
	}
}

func (j *SummaryRefreshJob) Name() string {
	return "summary_refresh"
}

// Run refreshes summaries for every user with mood data on record
func (j *SummaryRefreshJob) Run(ctx context.Context) error {
	logger := logging.WithJob(j.Name())

	if !j.provider.Available() {
		logger.Info("provider unavailable, keeping existing summaries")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, summaryRefreshTimeout)
	defer cancel()

	userIDs, err := j.store.ListUserIDsWithData(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var refreshed, failed int
	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.refreshUser(ctx, userID); err != nil {
			logger.Warn("summary refresh failed", "user_id", userID, "error", err)
			failed++
			continue
		}
		refreshed++
	}

	logger.Info("summary refresh complete", "refreshed", refreshed, "failed", failed, "total", len(userIDs))
	return nil
}

func (j *SummaryRefreshJob) refreshUser(ctx context.Context, userID string) error {
	uc, err := j.aggregator.GetFullUserContext(ctx, userID)
	if err != nil {
		return err
	}

	summaryText, err := j.provider.Complete(ctx, summarySystemPrompt, buildSummaryInput(uc))
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	if strings.TrimSpace(summaryText) == "" {
		return fmt.Errorf("provider returned empty summary")
	}

	return j.store.UpsertSummaryCache(ctx, &models.SummaryCache{
		UserID:      userID,
		Summary:     strings.TrimSpace(summaryText),
		GeneratedBy: j.provider.CompletionModel(),
		RefreshedAt: time.Now(),
	})
}

// buildSummaryInput renders the derived signals plus light record counts
// as the generation input. Raw record bodies stay out of the prompt.
func buildSummaryInput(uc *models.UserContext) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Mood trend: %s\n", services.MoodTrend(uc)))
	sb.WriteString(fmt.Sprintf("Crisis risk level: %s\n", services.CrisisRiskLevel(uc)))
	sb.WriteString(fmt.Sprintf("Interaction level: %s\n", services.InteractionLevel(uc)))

	if triggers := services.RecentTriggers(uc, 7); len(triggers) > 0 {
		sb.WriteString(fmt.Sprintf("Recent triggers: %s\n", strings.Join(triggers, ", ")))
	}

	progress := services.ComputeTherapyProgress(uc)
	sb.WriteString(fmt.Sprintf("Sessions in last 30 days: %d\n", progress.RecentSessions))
	sb.WriteString(fmt.Sprintf("Homework completed: %d of %d\n", progress.HomeworkCompleted, progress.HomeworkTotal))

	sb.WriteString(fmt.Sprintf("Mood entries on record: %d\n", len(uc.MoodEntries)))
	sb.WriteString(fmt.Sprintf("Journal entries on record: %d\n", len(uc.JournalEntries)))
	sb.WriteString(fmt.Sprintf("Micro wins on record: %d\n", len(uc.MicroWins)))

	return sb.String()
}
