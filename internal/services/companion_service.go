package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"solace/internal/models"
)

// CompletionProvider is the slice of the provider client the orchestrator
// needs for response generation.
type CompletionProvider interface {
	Available() bool
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompletionModel() string
}

// ConversationSink persists companion conversation turns (insert-only,
// fire-and-forget).
type ConversationSink interface {
	LogAIConversation(ctx context.Context, conv *models.AIConversation) error
}

// RetrievalTuning carries the operator-configurable retrieval knobs
// (RETRIEVAL_MATCH_COUNT / RETRIEVAL_SIMILARITY_THRESHOLD). Zero values
// fall back to the retrieval defaults.
type RetrievalTuning struct {
	MatchCount          int
	SimilarityThreshold float64
}

// CompanionService orchestrates one companion query end to end:
// aggregate → retrieve → assemble → (optionally) generate → policy side
// effects. The user always receives some natural-language response; only
// caller errors (empty user id or query) surface as hard failures.
type CompanionService struct {
	aggregator *ContextAggregator
	retrieval  *RetrievalService
	policy     *CrisisPolicyService
	provider   CompletionProvider
	convSink   ConversationSink
	metrics    *Metrics
	tuning     RetrievalTuning
}

// NewCompanionService creates the companion orchestrator
func NewCompanionService(
	aggregator *ContextAggregator,
	retrieval *RetrievalService,
	policy *CrisisPolicyService,
	provider CompletionProvider,
	convSink ConversationSink,
	metrics *Metrics,
	tuning RetrievalTuning,
) *CompanionService {
	if tuning.MatchCount <= 0 {
		tuning.MatchCount = defaultMatchCount
	}
	if tuning.SimilarityThreshold <= 0 {
		tuning.SimilarityThreshold = defaultSimilarityThreshold
	}
	return &CompanionService{
		aggregator: aggregator,
		retrieval:  retrieval,
		policy:     policy,
		provider:   provider,
		convSink:   convSink,
		metrics:    metrics,
		tuning:     tuning,
	}
}

// Fixed supportive block prepended whenever crisis language is detected.
// Shown regardless of which response path produced the main text.
const crisisSupportBlock = `It sounds like you're going through something really difficult right now. You don't have to face this alone.

If you're in immediate danger, please call your local emergency number. You can also reach the 988 Suicide & Crisis Lifeline by calling or texting 988, available 24/7.

I've let your care team know it might be a good time to check in.

---

`

// HandleQuery processes one companion query for a user
func (s *CompanionService) HandleQuery(ctx context.Context, userID, queryText string) (*models.CompanionResponse, error) {
	if userID == "" {
		s.countError("missing_user_id")
		return nil, fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(queryText) == "" {
		s.countError("missing_query")
		return nil, fmt.Errorf("query text is required")
	}

	start := time.Now()
	if s.metrics != nil {
		s.metrics.CompanionQueries.Inc()
		defer func() {
			s.metrics.CompanionQueryLatency.Observe(time.Since(start).Seconds())
		}()
	}

	uc, err := s.aggregator.GetFullUserContext(ctx, userID)
	if err != nil {
		s.countError("context_build")
		return nil, fmt.Errorf("failed to build user context: %w", err)
	}

	// Crisis check runs before anything else so the escalation side effects
	// fire even if later steps degrade.
	crisisDetected, risk := s.policy.HandleMessage(ctx, userID, queryText, uc)

	results := s.retrieval.Search(ctx, userID, queryText, uc, s.tuning.MatchCount, s.tuning.SimilarityThreshold)
	assembled := RenderResponse(queryText, results)

	intent := dominantIntent(results)
	if len(results) == 0 {
		intent = classifyIntent(queryText)
	}

	responseText := s.generateOrFallback(ctx, uc, queryText, assembled, results)
	if crisisDetected {
		responseText = crisisSupportBlock + responseText
	}

	// Proactive/standard users get insight generation; minimal opts out.
	if InteractionLevel(uc) != models.InteractionMinimal {
		s.policy.GenerateInsight(ctx, userID, queryText, uc)
	}

	s.logConversation(ctx, userID, queryText, responseText, uc)

	if crisisDetected {
		log.Printf("🤝 [COMPANION] Query handled with crisis escalation (user: %s, risk: %s)", userID, risk)
	}

	return &models.CompanionResponse{
		ResponseText:     responseText,
		TablesQueried:    tablesQueried(results),
		IntentClassified: intent,
	}, nil
}

func (s *CompanionService) countError(errorType string) {
	if s.metrics != nil {
		s.metrics.CompanionErrors.WithLabelValues(errorType).Inc()
	}
}

// generateOrFallback hands the assembled evidence to the generative model as
// grounding. Any provider failure leaves the assembled text standing — the
// templated summary is the designed fallback, never a raw error.
func (s *CompanionService) generateOrFallback(ctx context.Context, uc *models.UserContext, queryText, assembled string, results []models.RetrievalResult) string {
	if s.provider == nil || !s.provider.Available() {
		return assembled
	}

	systemPrompt := buildCompanionSystemPrompt(uc, results)
	generated, err := s.provider.Complete(ctx, systemPrompt, queryText)
	if err != nil || strings.TrimSpace(generated) == "" {
		if s.metrics != nil {
			s.metrics.GenerationFallbacks.Inc()
		}
		log.Printf("⚠️ [COMPANION] Generation failed, serving assembled response: %v", err)
		return assembled
	}
	return generated
}

// buildCompanionSystemPrompt assembles the grounding prompt for the
// generative model from the snapshot's derived signals and the retrieved
// evidence fragments.
func buildCompanionSystemPrompt(uc *models.UserContext, results []models.RetrievalResult) string {
	var sb strings.Builder

	sb.WriteString("You are Solace, a supportive mental-health companion. Answer only from the user's own records below. Be warm, concise and concrete. Never diagnose, never give medical advice, and encourage working with the therapist.\n\n")

	sb.WriteString(fmt.Sprintf("Address the user as %s.\n\n", PreferredName(uc)))

	sb.WriteString("## Current Signals\n\n")
	sb.WriteString(fmt.Sprintf("- Mood trend: %s\n", MoodTrend(uc)))
	progress := ComputeTherapyProgress(uc)
	sb.WriteString(fmt.Sprintf("- Homework: %d/%d completed; %d sessions in the last 30 days\n",
		progress.HomeworkCompleted, progress.HomeworkTotal, progress.RecentSessions))
	if triggers := RecentTriggers(uc, 7); len(triggers) > 0 {
		sb.WriteString(fmt.Sprintf("- Recent triggers: %s\n", strings.Join(triggers, ", ")))
	}
	sb.WriteString("\n")

	if uc.Summary != nil && uc.Summary.Summary != "" {
		sb.WriteString("## Background Summary\n\n")
		sb.WriteString(uc.Summary.Summary)
		sb.WriteString("\n\n")
	}

	if len(results) > 0 {
		sb.WriteString("## Relevant Records\n\n")
		for _, r := range results {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", r.TableName, r.Preview))
		}
		sb.WriteString("\n")
	}

	if uc.Preferences != nil && uc.Preferences.CommunicationStyle != "" {
		sb.WriteString(fmt.Sprintf("Preferred communication style: %s.\n", uc.Preferences.CommunicationStyle))
	}

	return sb.String()
}

// logConversation records the user/assistant turn pair. Failures only log.
func (s *CompanionService) logConversation(ctx context.Context, userID, queryText, responseText string, uc *models.UserContext) {
	if s.convSink == nil {
		return
	}

	model := ""
	if s.provider != nil {
		model = s.provider.CompletionModel()
	}
	contextSnapshot := fmt.Sprintf("sources=%s generated_at=%s",
		strings.Join(uc.DataSources, ","), uc.ContextGeneratedAt.Format(time.RFC3339))

	turns := []*models.AIConversation{
		{UserID: userID, Role: "user", Content: queryText},
		{UserID: userID, Role: "assistant", Content: responseText, ContextSnapshot: contextSnapshot, Model: model},
	}
	for _, turn := range turns {
		if err := s.convSink.LogAIConversation(ctx, turn); err != nil {
			log.Printf("⚠️ [COMPANION] Failed to log conversation turn for user %s: %v", userID, err)
		}
	}
}

// tablesQueried returns the distinct source tables of the result set,
// preserving ranked order.
func tablesQueried(results []models.RetrievalResult) []string {
	seen := make(map[string]bool)
	tables := []string{}
	for _, r := range results {
		if r.TableName == "" || seen[r.TableName] {
			continue
		}
		seen[r.TableName] = true
		tables = append(tables, r.TableName)
	}
	return tables
}
