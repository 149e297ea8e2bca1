package services

import (
	"context"
	"testing"
	"time"

	"solace/internal/models"
)

// recordingSink captures policy side effects for assertions
type recordingSink struct {
	interventions []*models.CrisisIntervention
	insights      []*models.AIInsight
	notifications []*models.Notification
}

func (r *recordingSink) LogIntervention(ctx context.Context, intervention *models.CrisisIntervention) error {
	r.interventions = append(r.interventions, intervention)
	return nil
}

func (r *recordingSink) LogInsight(ctx context.Context, insight *models.AIInsight) error {
	r.insights = append(r.insights, insight)
	return nil
}

func (r *recordingSink) CreateNotification(ctx context.Context, notification *models.Notification) error {
	r.notifications = append(r.notifications, notification)
	return nil
}

func newTestPolicy(sink *recordingSink) *CrisisPolicyService {
	return NewCrisisPolicyService(sink, nil, nil, nil, nil)
}

func TestDetectCrisis(t *testing.T) {
	policy := newTestPolicy(&recordingSink{})

	tests := []struct {
		message  string
		expected bool
	}{
		{"I want to end it all", true},
		{"sometimes I think about suicide", true},
		{"I Want To DIE and nobody cares", true},
		{"everything feels HOPELESS today", true},
		{"had a rough day but I'm managing", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := policy.DetectCrisis(tt.message); got != tt.expected {
				t.Errorf("DetectCrisis(%q) = %v, expected %v", tt.message, got, tt.expected)
			}
		})
	}
}

func TestHandleMessageNoCrisis(t *testing.T) {
	sink := &recordingSink{}
	policy := newTestPolicy(sink)

	detected, risk := policy.HandleMessage(context.Background(), "user-1", "today was okay", &models.UserContext{})
	if detected {
		t.Error("Expected no crisis detection")
	}
	if risk != "" {
		t.Errorf("Expected empty risk, got %q", risk)
	}
	if len(sink.interventions) != 0 || len(sink.notifications) != 0 {
		t.Error("No side effects expected without a crisis match")
	}
}

func TestHandleMessageDefaultsToMediumRisk(t *testing.T) {
	sink := &recordingSink{}
	policy := newTestPolicy(sink)

	detected, risk := policy.HandleMessage(context.Background(), "user-1", "I want to end it all", &models.UserContext{})
	if !detected {
		t.Fatal("Expected crisis detection")
	}
	if risk != models.RiskMedium {
		t.Errorf("Expected medium risk floor, got %q", risk)
	}
	if len(sink.interventions) != 1 {
		t.Fatalf("Expected 1 intervention, got %d", len(sink.interventions))
	}
	intervention := sink.interventions[0]
	if intervention.TriggerSource != "chat_message" {
		t.Errorf("Expected chat_message trigger source, got %q", intervention.TriggerSource)
	}
	if intervention.RiskLevel != models.RiskMedium {
		t.Errorf("Expected medium intervention risk, got %q", intervention.RiskLevel)
	}
	if len(sink.notifications) != 0 {
		t.Error("Medium risk must not notify the therapist")
	}
}

func TestHandleMessageEscalatesWithContext(t *testing.T) {
	sink := &recordingSink{}
	policy := newTestPolicy(sink)

	uc := &models.UserContext{MoodEntries: moodEntriesFromScores(2, 2, 2)} // avg < 3 → high
	detected, risk := policy.HandleMessage(context.Background(), "user-1", "I can't do this, I want to die", uc)
	if !detected {
		t.Fatal("Expected crisis detection")
	}
	if risk != models.RiskHigh {
		t.Errorf("Expected high risk from context, got %q", risk)
	}
	if len(sink.notifications) != 1 {
		t.Fatalf("High risk must create a therapist notification, got %d", len(sink.notifications))
	}
	if sink.notifications[0].Type != "therapist_alert" {
		t.Errorf("Expected therapist_alert notification, got %q", sink.notifications[0].Type)
	}
}

func TestShouldGenerateInsight(t *testing.T) {
	policy := newTestPolicy(&recordingSink{})

	tests := []struct {
		name     string
		uc       *models.UserContext
		message  string
		expected bool
	}{
		{
			name:     "Nil snapshot never fires",
			uc:       nil,
			message:  "so much stress",
			expected: false,
		},
		{
			name:     "Quiet snapshot and neutral message",
			uc:       &models.UserContext{MoodEntries: moodEntriesFromScores(6, 6)},
			message:  "what did I log yesterday",
			expected: false,
		},
		{
			name:     "Trigger topic in message",
			uc:       &models.UserContext{},
			message:  "I've been so anxious about everything",
			expected: true,
		},
		{
			name:     "Large mood shift",
			uc:       &models.UserContext{MoodEntries: moodEntriesFromScores(5, 5, 5, 5, 5, 8, 8, 8, 8, 8)},
			message:  "what changed",
			expected: true,
		},
		{
			name: "Session gap over a week",
			uc: &models.UserContext{
				Sessions: []models.TherapySession{{SessionDate: time.Now().AddDate(0, 0, -10)}},
			},
			message:  "hello",
			expected: true,
		},
		{
			name: "Recent session closes the gap",
			uc: &models.UserContext{
				Sessions: []models.TherapySession{{SessionDate: time.Now().AddDate(0, 0, -2)}},
			},
			message:  "hello",
			expected: false,
		},
		{
			name:     "No sessions on record is not a gap",
			uc:       &models.UserContext{},
			message:  "hello",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.ShouldGenerateInsight(tt.uc, tt.message); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGenerateInsightTypes(t *testing.T) {
	tests := []struct {
		name         string
		uc           *models.UserContext
		message      string
		expectedType string
	}{
		{
			name:         "Elevated risk takes priority",
			uc:           &models.UserContext{MoodEntries: moodEntriesFromScores(4, 4, 4)}, // medium risk
			message:      "work stress again",
			expectedType: models.InsightRiskAssessment,
		},
		{
			name:         "Mood shift without risk",
			uc:           &models.UserContext{MoodEntries: moodEntriesFromScores(5, 5, 5, 5, 5, 8, 8, 8, 8, 8)},
			message:      "things are different lately",
			expectedType: models.InsightMoodPattern,
		},
		{
			name:         "Trigger topic without risk or shift",
			uc:           &models.UserContext{MoodEntries: moodEntriesFromScores(7, 7)},
			message:      "feeling overwhelmed at work",
			expectedType: models.InsightTriggerPattern,
		},
		{
			name: "Session gap only",
			uc: &models.UserContext{
				Sessions: []models.TherapySession{{SessionDate: time.Now().AddDate(0, 0, -12)}},
			},
			message:      "hello",
			expectedType: models.InsightProgressTrend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			policy := newTestPolicy(sink)

			insight := policy.GenerateInsight(context.Background(), "user-1", tt.message, tt.uc)
			if insight == nil {
				t.Fatal("Expected an insight to be generated")
			}
			if insight.Type != tt.expectedType {
				t.Errorf("Expected type %q, got %q", tt.expectedType, insight.Type)
			}
			if len(sink.insights) != 1 {
				t.Errorf("Expected 1 persisted insight, got %d", len(sink.insights))
			}
		})
	}
}

func TestGenerateInsightNoTrigger(t *testing.T) {
	sink := &recordingSink{}
	policy := newTestPolicy(sink)

	insight := policy.GenerateInsight(context.Background(), "user-1", "what did I log", &models.UserContext{MoodEntries: moodEntriesFromScores(7, 7)})
	if insight != nil {
		t.Errorf("Expected nil insight when no condition fires, got %+v", insight)
	}
	if len(sink.insights) != 0 {
		t.Error("Nothing should be persisted when no condition fires")
	}
}

func TestCustomPolicyWordLists(t *testing.T) {
	sink := &recordingSink{}
	policy := NewCrisisPolicyService(sink, nil, NewKeywordCrisisDetector([]string{"code red"}), []string{"deadlines"}, nil)

	if !policy.DetectCrisis("this is a CODE RED") {
		t.Error("Expected custom crisis phrase to match")
	}
	if policy.DetectCrisis("I want to end it all") {
		t.Error("Default phrases must be replaced, not merged")
	}
	if !policy.ShouldGenerateInsight(&models.UserContext{}, "too many deadlines") {
		t.Error("Expected custom trigger topic to fire")
	}
}
