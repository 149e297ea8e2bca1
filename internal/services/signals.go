package services

import (
	"sort"
	"strings"
	"time"

	"solace/internal/models"
)

// Derived-signal calculators: pure functions over a context snapshot.
// None of them touch storage and all of them tolerate empty snapshots,
// which the aggregator guarantees are still fully shaped.

// Journal keywords that force crisis risk to at least "high". Matching is a
// case-sensitive substring test — kept exactly as shipped for compatibility
// with the original heuristics.
var journalCrisisKeywords = []string{
	"suicide",
	"self-harm",
	"hopeless",
	"worthless",
	"can't go on",
	"end it all",
}

const (
	moodTrendWindow     = 7
	recentMoodAvgWindow = 5
	sessionWindowDays   = 30
)

// sortMoodEntriesAscending returns mood entries ordered oldest first.
// The store hands rows back newest first, and trend math needs chronological
// order — calculators re-sort rather than trusting the incoming order.
func sortMoodEntriesAscending(entries []models.MoodEntry) []models.MoodEntry {
	sorted := make([]models.MoodEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

// MoodTrend classifies the recent mood direction: the chronologically sorted
// entries are restricted to the 7 most recent, and the first score in that
// window is compared with the last. Fewer than 2 entries reads as stable.
func MoodTrend(uc *models.UserContext) string {
	if len(uc.MoodEntries) < 2 {
		return models.TrendStable
	}

	sorted := sortMoodEntriesAscending(uc.MoodEntries)
	if len(sorted) > moodTrendWindow {
		sorted = sorted[len(sorted)-moodTrendWindow:]
	}
	if len(sorted) < 2 {
		return models.TrendStable
	}

	first := sorted[0].Score
	last := sorted[len(sorted)-1].Score
	switch {
	case last > first:
		return models.TrendImproving
	case last < first:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// RecentTriggers returns the de-duplicated triggers reported in mood entries
// within the last windowDays days. Order is not significant.
func RecentTriggers(uc *models.UserContext, windowDays int) []string {
	if windowDays <= 0 {
		windowDays = 7
	}
	cutoff := time.Now().AddDate(0, 0, -windowDays)

	seen := make(map[string]bool)
	triggers := []string{}
	for _, entry := range uc.MoodEntries {
		if entry.Trigger == "" || entry.CreatedAt.Before(cutoff) {
			continue
		}
		if !seen[entry.Trigger] {
			seen[entry.Trigger] = true
			triggers = append(triggers, entry.Trigger)
		}
	}
	return triggers
}

// TherapyProgress rolls up homework completion, recent session count and the
// de-duplicated union of session goals.
func ComputeTherapyProgress(uc *models.UserContext) models.TherapyProgress {
	progress := models.TherapyProgress{Goals: []string{}}

	for _, hw := range uc.Homework {
		progress.HomeworkTotal++
		if hw.Status == "completed" {
			progress.HomeworkCompleted++
		}
	}

	cutoff := time.Now().AddDate(0, 0, -sessionWindowDays)
	seenGoals := make(map[string]bool)
	for _, session := range uc.Sessions {
		if session.SessionDate.After(cutoff) {
			progress.RecentSessions++
		}
		for _, goal := range session.Goals {
			if goal != "" && !seenGoals[goal] {
				seenGoals[goal] = true
				progress.Goals = append(progress.Goals, goal)
			}
		}
	}

	return progress
}

// CrisisRiskLevel derives the ordinal crisis risk for a snapshot.
//
// Any unresolved intervention short-circuits to critical. Otherwise two
// independent signals fire: the average of the 5 most recent mood scores
// (<3 high, <5 medium) and a journal keyword scan (at least high, never
// critical). The higher of the two wins. Whether these should instead be
// combined with weights is a tunable policy decision, not a defect.
func CrisisRiskLevel(uc *models.UserContext) string {
	for _, intervention := range uc.Interventions {
		if !intervention.Resolved() {
			return models.RiskCritical
		}
	}

	level := models.RiskLow

	if avg, ok := recentMoodAverage(uc.MoodEntries, recentMoodAvgWindow); ok {
		switch {
		case avg < 3:
			level = models.MaxRisk(level, models.RiskHigh)
		case avg < 5:
			level = models.MaxRisk(level, models.RiskMedium)
		}
	}

	for _, entry := range uc.JournalEntries {
		for _, keyword := range journalCrisisKeywords {
			if strings.Contains(entry.Content, keyword) {
				level = models.MaxRisk(level, models.RiskHigh)
				break
			}
		}
	}

	return level
}

// recentMoodAverage averages the `window` most recent mood scores.
// Reports false when there are no entries at all.
func recentMoodAverage(entries []models.MoodEntry, window int) (float64, bool) {
	if len(entries) == 0 {
		return 0, false
	}

	sorted := sortMoodEntriesAscending(entries)
	if len(sorted) > window {
		sorted = sorted[len(sorted)-window:]
	}

	sum := 0
	for _, entry := range sorted {
		sum += entry.Score
	}
	return float64(sum) / float64(len(sorted)), true
}

// PreferredName resolves what the companion should call the user:
// preference, then profile preferred name, then first name, then "there".
func PreferredName(uc *models.UserContext) string {
	if uc.Preferences != nil && uc.Preferences.PreferredName != "" {
		return uc.Preferences.PreferredName
	}
	if uc.Profile != nil {
		if uc.Profile.PreferredName != "" {
			return uc.Profile.PreferredName
		}
		if uc.Profile.FirstName != "" {
			return uc.Profile.FirstName
		}
	}
	return "there"
}

// InteractionLevel reads the AI interaction level preference, defaulting to standard
func InteractionLevel(uc *models.UserContext) string {
	if uc.Preferences != nil && uc.Preferences.InteractionLevel != "" {
		return uc.Preferences.InteractionLevel
	}
	return models.InteractionStandard
}

// ShouldNotifyTherapist reports whether the derived crisis risk warrants a
// therapist notification (high or critical)
func ShouldNotifyTherapist(uc *models.UserContext) bool {
	level := CrisisRiskLevel(uc)
	return level == models.RiskHigh || level == models.RiskCritical
}
