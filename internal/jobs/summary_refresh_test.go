package jobs

import (
	"strings"
	"testing"
	"time"

	"solace/internal/models"
)

func TestValidateCronExpression(t *testing.T) {
	tests := []struct {
		expression string
		valid      bool
	}{
		{"0 4 * * *", true},
		{"*/15 * * * *", true},
		{"0 0 1 1 0", true},
		{"not a cron", false},
		{"0 4 * *", false}, // five fields required
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			err := ValidateCronExpression(tt.expression)
			if tt.valid && err != nil {
				t.Errorf("Expected %q to validate, got %v", tt.expression, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected %q to be rejected", tt.expression)
			}
		})
	}
}

func TestBuildSummaryInput(t *testing.T) {
	now := time.Now()
	uc := &models.UserContext{
		MoodEntries: []models.MoodEntry{
			{Score: 3, Trigger: "work", CreatedAt: now.AddDate(0, 0, -1)},
			{Score: 5, CreatedAt: now.AddDate(0, 0, -2)},
		},
		JournalEntries: []models.JournalEntry{{Content: "long week"}},
		Sessions: []models.TherapySession{
			{SessionDate: now.AddDate(0, 0, -3)},
		},
		Homework: []models.TherapyHomework{
			{Status: "completed"},
			{Status: "assigned"},
		},
	}

	input := buildSummaryInput(uc)

	for _, want := range []string{
		"Mood trend:",
		"Crisis risk level:",
		"Recent triggers: work",
		"Sessions in last 30 days: 1",
		"Homework completed: 1 of 2",
		"Mood entries on record: 2",
		"Journal entries on record: 1",
	} {
		if !strings.Contains(input, want) {
			t.Errorf("Expected summary input to contain %q, got:\n%s", want, input)
		}
	}

	// Raw record bodies must not leak into the prompt
	if strings.Contains(input, "long week") {
		t.Error("Journal content must not appear in the summary input")
	}
}
