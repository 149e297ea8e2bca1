package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"solace/internal/models"
)

// ContextReader is the read surface the aggregator needs from the record
// store. Narrowed to an interface so tests can substitute failing categories.
type ContextReader interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	GetSummaryCache(ctx context.Context, userID string) (*models.SummaryCache, error)
	GetMoodEntries(ctx context.Context, userID string) ([]models.MoodEntry, error)
	GetMonitoringEntries(ctx context.Context, userID string) ([]models.MonitoringEntry, error)
	GetJournalEntries(ctx context.Context, userID string) ([]models.JournalEntry, error)
	GetClinicalNotes(ctx context.Context, userID string) ([]models.ClinicalNote, error)
	GetTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetHomework(ctx context.Context, userID string) ([]models.TherapyHomework, error)
	GetAssessments(ctx context.Context, userID string) ([]models.Assessment, error)
	GetAssessmentResults(ctx context.Context, userID string) ([]models.AssessmentResult, error)
	GetSessions(ctx context.Context, userID string) ([]models.TherapySession, error)
	GetChatMessages(ctx context.Context, userID string) ([]models.ChatMessage, error)
	GetChatTags(ctx context.Context, userID string) ([]models.ChatTag, error)
	GetAIConversations(ctx context.Context, userID string) ([]models.AIConversation, error)
	GetAIInsights(ctx context.Context, userID string) ([]models.AIInsight, error)
	GetInterventions(ctx context.Context, userID string) ([]models.CrisisIntervention, error)
	GetBiometrics(ctx context.Context, userID string) ([]models.Biometric, error)
	GetMicroWins(ctx context.Context, userID string) ([]models.MicroWin, error)
	GetNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	GetTherapistRelationships(ctx context.Context, userID string) ([]models.TherapistRelationship, error)
}

// ContextAggregator assembles the full per-user context snapshot. All
// category reads are issued concurrently and joined settle-all: one slow or
// failing category never blocks or aborts the others. A failed category is
// absorbed as an empty result and omitted from the snapshot's DataSources.
type ContextAggregator struct {
	store   ContextReader
	metrics *Metrics
}

// NewContextAggregator creates a new context aggregator. metrics may be nil.
func NewContextAggregator(store ContextReader, metrics *Metrics) *ContextAggregator {
	return &ContextAggregator{store: store, metrics: metrics}
}

// GetFullUserContext builds the point-in-time snapshot for one user.
// It fails only on an empty user id — individual category failures degrade
// to empty results so the derived-signal calculators can always run.
func (a *ContextAggregator) GetFullUserContext(ctx context.Context, userID string) (*models.UserContext, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	uc := &models.UserContext{
		MoodEntries:       []models.MoodEntry{},
		MonitoringEntries: []models.MonitoringEntry{},
		JournalEntries:    []models.JournalEntry{},
		ClinicalNotes:     []models.ClinicalNote{},
		Tasks:             []models.Task{},
		Homework:          []models.TherapyHomework{},
		Assessments:       []models.Assessment{},
		AssessmentResults: []models.AssessmentResult{},
		Sessions:          []models.TherapySession{},
		ChatMessages:      []models.ChatMessage{},
		ChatTags:          []models.ChatTag{},
		AIConversations:   []models.AIConversation{},
		AIInsights:        []models.AIInsight{},
		Interventions:     []models.CrisisIntervention{},
		Biometrics:        []models.Biometric{},
		MicroWins:         []models.MicroWin{},
		Notifications:     []models.Notification{},
		Therapists:        []models.TherapistRelationship{},
		DataSources:       []string{},
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex // guards uc.DataSources
		settled = func(source string, err error) {
			if err != nil {
				log.Printf("⚠️ [AGGREGATOR] %s read failed for user %s: %v", source, userID, err)
				if a.metrics != nil {
					a.metrics.ContextSourceFailures.WithLabelValues(source).Inc()
				}
				return
			}
			mu.Lock()
			uc.DataSources = append(uc.DataSources, source)
			mu.Unlock()
		}
	)

	// Each closure writes a distinct snapshot field, so no lock is needed
	// beyond the DataSources append.
	reads := []struct {
		source string
		fn     func() error
	}{
		{"profiles", func() error {
			p, err := a.store.GetProfile(ctx, userID)
			if err == nil {
				uc.Profile = p
			}
			return err
		}},
		{"user_preferences", func() error {
			p, err := a.store.GetPreferences(ctx, userID)
			if err == nil {
				uc.Preferences = p
			}
			return err
		}},
		{"summary_cache", func() error {
			s, err := a.store.GetSummaryCache(ctx, userID)
			if err == nil {
				uc.Summary = s
			}
			return err
		}},
		{"mood_entries", func() error {
			rows, err := a.store.GetMoodEntries(ctx, userID)
			if err == nil {
				uc.MoodEntries = rows
			}
			return err
		}},
		{"monitoring_entries", func() error {
			rows, err := a.store.GetMonitoringEntries(ctx, userID)
			if err == nil {
				uc.MonitoringEntries = rows
			}
			return err
		}},
		{"journal_entries", func() error {
			rows, err := a.store.GetJournalEntries(ctx, userID)
			if err == nil {
				uc.JournalEntries = rows
			}
			return err
		}},
		{"clinical_notes", func() error {
			rows, err := a.store.GetClinicalNotes(ctx, userID)
			if err == nil {
				uc.ClinicalNotes = rows
			}
			return err
		}},
		{"tasks", func() error {
			rows, err := a.store.GetTasks(ctx, userID)
			if err == nil {
				uc.Tasks = rows
			}
			return err
		}},
		{"therapy_homework", func() error {
			rows, err := a.store.GetHomework(ctx, userID)
			if err == nil {
				uc.Homework = rows
			}
			return err
		}},
		{"assessments", func() error {
			rows, err := a.store.GetAssessments(ctx, userID)
			if err == nil {
				uc.Assessments = rows
			}
			return err
		}},
		{"assessment_results", func() error {
			rows, err := a.store.GetAssessmentResults(ctx, userID)
			if err == nil {
				uc.AssessmentResults = rows
			}
			return err
		}},
		{"therapy_sessions", func() error {
			rows, err := a.store.GetSessions(ctx, userID)
			if err == nil {
				uc.Sessions = rows
			}
			return err
		}},
		{"chat_messages", func() error {
			rows, err := a.store.GetChatMessages(ctx, userID)
			if err == nil {
				uc.ChatMessages = rows
			}
			return err
		}},
		{"chat_tags", func() error {
			rows, err := a.store.GetChatTags(ctx, userID)
			if err == nil {
				uc.ChatTags = rows
			}
			return err
		}},
		{"ai_conversations", func() error {
			rows, err := a.store.GetAIConversations(ctx, userID)
			if err == nil {
				uc.AIConversations = rows
			}
			return err
		}},
		{"ai_insights", func() error {
			rows, err := a.store.GetAIInsights(ctx, userID)
			if err == nil {
				uc.AIInsights = rows
			}
			return err
		}},
		{"crisis_interventions", func() error {
			rows, err := a.store.GetInterventions(ctx, userID)
			if err == nil {
				uc.Interventions = rows
			}
			return err
		}},
		{"biometrics", func() error {
			rows, err := a.store.GetBiometrics(ctx, userID)
			if err == nil {
				uc.Biometrics = rows
			}
			return err
		}},
		{"micro_wins", func() error {
			rows, err := a.store.GetMicroWins(ctx, userID)
			if err == nil {
				uc.MicroWins = rows
			}
			return err
		}},
		{"notifications", func() error {
			rows, err := a.store.GetNotifications(ctx, userID)
			if err == nil {
				uc.Notifications = rows
			}
			return err
		}},
		{"therapist_relationships", func() error {
			rows, err := a.store.GetTherapistRelationships(ctx, userID)
			if err == nil {
				uc.Therapists = rows
			}
			return err
		}},
	}

	for _, r := range reads {
		wg.Add(1)
		go func(source string, fn func() error) {
			defer wg.Done()
			settled(source, fn())
		}(r.source, r.fn)
	}
	wg.Wait()

	// Goroutine completion order is nondeterministic; sort for a stable
	// provenance list across identical calls.
	sort.Strings(uc.DataSources)
	uc.ContextGeneratedAt = time.Now()

	log.Printf("🧩 [AGGREGATOR] Built context for user %s (%d/%d sources)",
		userID, len(uc.DataSources), len(reads))

	return uc, nil
}
