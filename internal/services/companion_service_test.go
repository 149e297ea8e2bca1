package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"solace/internal/models"
)

type fakeCompletionProvider struct {
	available bool
	response  string
	err       error
}

func (f *fakeCompletionProvider) Available() bool {
	return f.available
}

func (f *fakeCompletionProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeCompletionProvider) CompletionModel() string {
	return "test-model"
}

type recordingConvSink struct {
	turns []*models.AIConversation
}

func (r *recordingConvSink) LogAIConversation(ctx context.Context, conv *models.AIConversation) error {
	r.turns = append(r.turns, conv)
	return nil
}

type companionFixture struct {
	service    *CompanionService
	policySink *recordingSink
	convSink   *recordingConvSink
}

func newCompanionFixture(store *fakeContextReader, provider *fakeCompletionProvider) *companionFixture {
	policySink := &recordingSink{}
	convSink := &recordingConvSink{}

	aggregator := NewContextAggregator(store, nil)
	retrieval := NewRetrievalService(nil, &fakeEmbeddingIndex{}, nil)
	policy := NewCrisisPolicyService(policySink, nil, nil, nil, nil)

	return &companionFixture{
		service:    NewCompanionService(aggregator, retrieval, policy, provider, convSink, nil, RetrievalTuning{}),
		policySink: policySink,
		convSink:   convSink,
	}
}

func TestHandleQueryValidation(t *testing.T) {
	fx := newCompanionFixture(&fakeContextReader{}, &fakeCompletionProvider{})

	if _, err := fx.service.HandleQuery(context.Background(), "", "how is my mood"); err == nil {
		t.Error("Expected error for empty user ID")
	}
	if _, err := fx.service.HandleQuery(context.Background(), "user-1", "   "); err == nil {
		t.Error("Expected error for blank query")
	}
}

func TestHandleQueryOfflineMoodQuestion(t *testing.T) {
	now := time.Now()
	store := &fakeContextReader{
		moodEntries: []models.MoodEntry{
			{Score: 4, Trigger: "work", CreatedAt: now.AddDate(0, 0, -1)},
			{Score: 6, CreatedAt: now.AddDate(0, 0, -2)},
		},
	}
	fx := newCompanionFixture(store, &fakeCompletionProvider{available: false})

	response, err := fx.service.HandleQuery(context.Background(), "user-1", "What mood entries do I have?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if response.IntentClassified != models.IntentMoodData {
		t.Errorf("Expected mood intent, got %q", response.IntentClassified)
	}
	if !strings.Contains(response.ResponseText, "## Your Mood Data") {
		t.Error("Offline path must serve the assembled mood section")
	}
	found := false
	for _, table := range response.TablesQueried {
		if table == "mood_entries" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected mood_entries in TablesQueried, got %v", response.TablesQueried)
	}
}

func TestHandleQueryEmptyRecordsGuidance(t *testing.T) {
	fx := newCompanionFixture(&fakeContextReader{}, &fakeCompletionProvider{available: false})

	response, err := fx.service.HandleQuery(context.Background(), "user-1", "what do you know about my week")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(response.ResponseText, "couldn't find information") {
		t.Error("Empty records must produce the fixed guidance text")
	}
	if len(response.TablesQueried) != 0 {
		t.Errorf("Expected no tables queried, got %v", response.TablesQueried)
	}
	if response.IntentClassified != models.IntentGeneral {
		t.Errorf("Expected general intent from classifier, got %q", response.IntentClassified)
	}
}

func TestHandleQueryRetrievalTuning(t *testing.T) {
	now := time.Now()
	store := &fakeContextReader{
		moodEntries: []models.MoodEntry{
			{Score: 4, CreatedAt: now.AddDate(0, 0, -1)},
			{Score: 6, CreatedAt: now.AddDate(0, 0, -2)},
		},
	}

	aggregator := NewContextAggregator(store, nil)
	retrieval := NewRetrievalService(nil, &fakeEmbeddingIndex{}, nil)
	policy := NewCrisisPolicyService(&recordingSink{}, nil, nil, nil, nil)

	tuned := NewCompanionService(aggregator, retrieval, policy, &fakeCompletionProvider{}, nil, nil,
		RetrievalTuning{MatchCount: 1})
	response, err := tuned.HandleQuery(context.Background(), "user-1", "What mood entries do I have?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(response.ResponseText, "1. ") {
		t.Error("Expected one evidence line with match count 1")
	}
	if strings.Contains(response.ResponseText, "2. ") {
		t.Error("Expected second result to be cut by match count 1")
	}

	untuned := NewCompanionService(aggregator, retrieval, policy, &fakeCompletionProvider{}, nil, nil,
		RetrievalTuning{})
	response, err = untuned.HandleQuery(context.Background(), "user-1", "What mood entries do I have?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(response.ResponseText, "2. ") {
		t.Error("Expected default match count to keep both mood entries")
	}
}

func TestHandleQueryCrisisEscalation(t *testing.T) {
	fx := newCompanionFixture(&fakeContextReader{}, &fakeCompletionProvider{available: false})

	response, err := fx.service.HandleQuery(context.Background(), "user-1", "I want to end it all")
	if err != nil {
		t.Fatalf("Crisis handling must not fail the query: %v", err)
	}

	if !strings.Contains(response.ResponseText, "988") {
		t.Error("Crisis responses must include the support block")
	}
	if !strings.HasPrefix(response.ResponseText, "It sounds like") {
		t.Error("Support block must be prepended, not appended")
	}
	if len(fx.policySink.interventions) != 1 {
		t.Errorf("Expected 1 logged intervention, got %d", len(fx.policySink.interventions))
	}
}

func TestHandleQueryGeneratedResponse(t *testing.T) {
	now := time.Now()
	store := &fakeContextReader{
		moodEntries: []models.MoodEntry{{Score: 6, CreatedAt: now}},
	}
	provider := &fakeCompletionProvider{available: true, response: "Here's what your mood data shows, Sam."}
	fx := newCompanionFixture(store, provider)

	response, err := fx.service.HandleQuery(context.Background(), "user-1", "how is my mood")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if response.ResponseText != provider.response {
		t.Errorf("Expected generated text to be served, got %q", response.ResponseText)
	}
}

func TestHandleQueryGenerationFailureFallsBack(t *testing.T) {
	now := time.Now()
	store := &fakeContextReader{
		moodEntries: []models.MoodEntry{{Score: 6, CreatedAt: now}},
	}
	provider := &fakeCompletionProvider{available: true, err: fmt.Errorf("model timeout")}
	fx := newCompanionFixture(store, provider)

	response, err := fx.service.HandleQuery(context.Background(), "user-1", "how is my mood")
	if err != nil {
		t.Fatalf("Generation failure must not surface: %v", err)
	}
	if !strings.Contains(response.ResponseText, "## Your Mood Data") {
		t.Error("Expected the assembled response as fallback")
	}
}

func TestHandleQueryLogsConversationTurns(t *testing.T) {
	fx := newCompanionFixture(&fakeContextReader{}, &fakeCompletionProvider{available: false})

	if _, err := fx.service.HandleQuery(context.Background(), "user-1", "hello there"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(fx.convSink.turns) != 2 {
		t.Fatalf("Expected a user and an assistant turn, got %d", len(fx.convSink.turns))
	}
	if fx.convSink.turns[0].Role != "user" || fx.convSink.turns[1].Role != "assistant" {
		t.Errorf("Expected user then assistant roles, got %q and %q", fx.convSink.turns[0].Role, fx.convSink.turns[1].Role)
	}
	if !strings.Contains(fx.convSink.turns[1].ContextSnapshot, "sources=") {
		t.Error("Assistant turn must carry the context provenance snapshot")
	}
}

func TestHandleQueryMinimalInteractionSkipsInsights(t *testing.T) {
	store := &fakeContextReader{
		preferences: &models.UserPreferences{InteractionLevel: models.InteractionMinimal},
	}
	fx := newCompanionFixture(store, &fakeCompletionProvider{available: false})

	// "anxious" is a trigger topic, so standard users would get an insight here.
	if _, err := fx.service.HandleQuery(context.Background(), "user-1", "I've been anxious lately"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fx.policySink.insights) != 0 {
		t.Errorf("Minimal interaction level must skip insight generation, got %d insights", len(fx.policySink.insights))
	}
}

func TestHandleQueryStandardInteractionGeneratesInsight(t *testing.T) {
	fx := newCompanionFixture(&fakeContextReader{}, &fakeCompletionProvider{available: false})

	if _, err := fx.service.HandleQuery(context.Background(), "user-1", "I've been anxious lately"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(fx.policySink.insights) != 1 {
		t.Errorf("Expected 1 insight for a trigger-topic message, got %d", len(fx.policySink.insights))
	}
}
