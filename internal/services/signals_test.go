package services

import (
	"testing"
	"time"

	"solace/internal/models"
)

// moodEntriesFromScores builds chronologically ordered mood entries, one per
// day ending today, from the given scores.
func moodEntriesFromScores(scores ...int) []models.MoodEntry {
	entries := make([]models.MoodEntry, 0, len(scores))
	base := time.Now().AddDate(0, 0, -len(scores))
	for i, score := range scores {
		entries = append(entries, models.MoodEntry{
			Score:     score,
			CreatedAt: base.AddDate(0, 0, i+1),
		})
	}
	return entries
}

func TestMoodTrend(t *testing.T) {
	tests := []struct {
		name     string
		scores   []int
		expected string
	}{
		{
			name:     "No entries is stable",
			scores:   nil,
			expected: models.TrendStable,
		},
		{
			name:     "Single entry is stable",
			scores:   []int{3},
			expected: models.TrendStable,
		},
		{
			name:     "Rising scores improve",
			scores:   []int{3, 4, 5, 6},
			expected: models.TrendImproving,
		},
		{
			name:     "Falling scores decline",
			scores:   []int{8, 4},
			expected: models.TrendDeclining,
		},
		{
			name:     "Flat window is stable",
			scores:   []int{5, 6, 5},
			expected: models.TrendStable,
		},
		{
			name:     "Only the last seven entries count",
			scores:   []int{9, 4, 4, 4, 4, 4, 4, 8}, // window is [4 4 4 4 4 4 8]
			expected: models.TrendImproving,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &models.UserContext{MoodEntries: moodEntriesFromScores(tt.scores...)}
			if got := MoodTrend(uc); got != tt.expected {
				t.Errorf("Expected trend %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMoodTrendUnsortedInput(t *testing.T) {
	// Store order is newest first; the calculator must re-sort.
	now := time.Now()
	uc := &models.UserContext{MoodEntries: []models.MoodEntry{
		{Score: 8, CreatedAt: now},
		{Score: 3, CreatedAt: now.AddDate(0, 0, -2)},
	}}

	if got := MoodTrend(uc); got != models.TrendImproving {
		t.Errorf("Expected improving for 3→8, got %q", got)
	}
}

func TestRecentTriggers(t *testing.T) {
	now := time.Now()
	uc := &models.UserContext{MoodEntries: []models.MoodEntry{
		{Score: 4, Trigger: "work", CreatedAt: now.AddDate(0, 0, -1)},
		{Score: 3, Trigger: "work", CreatedAt: now.AddDate(0, 0, -2)},
		{Score: 5, Trigger: "sleep", CreatedAt: now.AddDate(0, 0, -3)},
		{Score: 2, Trigger: "old stressor", CreatedAt: now.AddDate(0, 0, -30)},
		{Score: 6, CreatedAt: now}, // no trigger recorded
	}}

	triggers := RecentTriggers(uc, 7)
	if len(triggers) != 2 {
		t.Fatalf("Expected 2 deduplicated triggers, got %d: %v", len(triggers), triggers)
	}
	seen := map[string]bool{}
	for _, trigger := range triggers {
		seen[trigger] = true
	}
	if !seen["work"] || !seen["sleep"] {
		t.Errorf("Expected work and sleep, got %v", triggers)
	}
}

func TestCrisisRiskLevel(t *testing.T) {
	resolved := time.Now().AddDate(0, 0, -1)

	tests := []struct {
		name     string
		uc       *models.UserContext
		expected string
	}{
		{
			name:     "Empty snapshot is low",
			uc:       &models.UserContext{},
			expected: models.RiskLow,
		},
		{
			name: "Unresolved intervention is critical regardless of mood",
			uc: &models.UserContext{
				MoodEntries:   moodEntriesFromScores(8, 9, 8),
				Interventions: []models.CrisisIntervention{{RiskLevel: models.RiskMedium}},
			},
			expected: models.RiskCritical,
		},
		{
			name: "Resolved intervention does not escalate",
			uc: &models.UserContext{
				MoodEntries:   moodEntriesFromScores(8, 9, 8),
				Interventions: []models.CrisisIntervention{{ResolvedAt: &resolved}},
			},
			expected: models.RiskLow,
		},
		{
			name:     "Average below 3 is high",
			uc:       &models.UserContext{MoodEntries: moodEntriesFromScores(2, 2, 2)},
			expected: models.RiskHigh,
		},
		{
			name:     "Average below 5 is medium",
			uc:       &models.UserContext{MoodEntries: moodEntriesFromScores(4, 4, 5)},
			expected: models.RiskMedium,
		},
		{
			name: "Journal keyword lifts medium to high",
			uc: &models.UserContext{
				MoodEntries:    moodEntriesFromScores(4, 4, 4),
				JournalEntries: []models.JournalEntry{{Content: "lately everything feels hopeless"}},
			},
			expected: models.RiskHigh,
		},
		{
			name: "Journal keyword match is case-sensitive",
			uc: &models.UserContext{
				JournalEntries: []models.JournalEntry{{Content: "HOPELESS"}},
			},
			expected: models.RiskLow,
		},
		{
			name:     "Only the five most recent scores count",
			uc:       &models.UserContext{MoodEntries: moodEntriesFromScores(1, 1, 1, 1, 1, 8, 8, 8, 8, 8)},
			expected: models.RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CrisisRiskLevel(tt.uc); got != tt.expected {
				t.Errorf("Expected risk %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestComputeTherapyProgress(t *testing.T) {
	now := time.Now()
	uc := &models.UserContext{
		Homework: []models.TherapyHomework{
			{Status: "completed"},
			{Status: "assigned"},
			{Status: "completed"},
		},
		Sessions: []models.TherapySession{
			{SessionDate: now.AddDate(0, 0, -5), Goals: []string{"sleep hygiene", "exposure"}},
			{SessionDate: now.AddDate(0, 0, -40), Goals: []string{"sleep hygiene"}},
		},
	}

	progress := ComputeTherapyProgress(uc)
	if progress.HomeworkCompleted != 2 || progress.HomeworkTotal != 3 {
		t.Errorf("Expected homework 2/3, got %d/%d", progress.HomeworkCompleted, progress.HomeworkTotal)
	}
	if progress.RecentSessions != 1 {
		t.Errorf("Expected 1 recent session, got %d", progress.RecentSessions)
	}
	if len(progress.Goals) != 2 {
		t.Errorf("Expected 2 deduplicated goals, got %v", progress.Goals)
	}
}

func TestPreferredName(t *testing.T) {
	tests := []struct {
		name     string
		uc       *models.UserContext
		expected string
	}{
		{
			name: "Preference wins over profile",
			uc: &models.UserContext{
				Preferences: &models.UserPreferences{PreferredName: "Sam"},
				Profile:     &models.Profile{PreferredName: "Samuel", FirstName: "Samuel"},
			},
			expected: "Sam",
		},
		{
			name: "Profile preferred name next",
			uc: &models.UserContext{
				Profile: &models.Profile{PreferredName: "Sammy", FirstName: "Samuel"},
			},
			expected: "Sammy",
		},
		{
			name: "First name fallback",
			uc: &models.UserContext{
				Profile: &models.Profile{FirstName: "Samuel"},
			},
			expected: "Samuel",
		},
		{
			name:     "Generic fallback",
			uc:       &models.UserContext{},
			expected: "there",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreferredName(tt.uc); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInteractionLevel(t *testing.T) {
	uc := &models.UserContext{}
	if got := InteractionLevel(uc); got != models.InteractionStandard {
		t.Errorf("Expected default %q, got %q", models.InteractionStandard, got)
	}

	uc.Preferences = &models.UserPreferences{InteractionLevel: models.InteractionMinimal}
	if got := InteractionLevel(uc); got != models.InteractionMinimal {
		t.Errorf("Expected %q, got %q", models.InteractionMinimal, got)
	}
}

func TestShouldNotifyTherapist(t *testing.T) {
	low := &models.UserContext{MoodEntries: moodEntriesFromScores(7, 8)}
	if ShouldNotifyTherapist(low) {
		t.Error("Expected no notification at low risk")
	}

	high := &models.UserContext{MoodEntries: moodEntriesFromScores(2, 2, 2)}
	if !ShouldNotifyTherapist(high) {
		t.Error("Expected notification at high risk")
	}
}
