package services

import (
	"fmt"
	"strings"

	"solace/internal/models"
)

// Fixed guidance shown when retrieval finds nothing at all. A terminal,
// always-successful branch: the user never sees a raw error or blank output.
const emptyResultsGuidance = `I couldn't find information related to your question in your records.

Here are some things you could ask me about:

1. "What mood entries do I have this week?"
2. "When was my last therapy session?"
3. "How is my progress on homework?"
4. "What coping tools have I practiced?"

I can only answer from your own tracked data — the more you log, the more I can help.`

// RenderResponse renders a structured natural-language summary of the ranked
// fragments, tailored to the dominant intent of the result set. Deterministic
// and total over its input domain: it never fails, and it doubles as the
// user-facing text whenever the generative path is degraded.
func RenderResponse(query string, results []models.RetrievalResult) string {
	if len(results) == 0 {
		return emptyResultsGuidance
	}

	intent := dominantIntent(results)

	switch intent {
	case models.IntentMoodData:
		return renderSection("Your Mood Data", results,
			fmt.Sprintf("You have %d mood-related records here — consistent tracking like this helps reveal patterns over time.", len(results)),
			"I found mood records but nothing matching this exact question. Keep logging and patterns will emerge.")
	case models.IntentSessionData:
		return renderSection("Your Sessions & Homework", results,
			fmt.Sprintf("These %d records cover your recent sessions and assigned work — reviewing them before your next appointment can help you prepare.", len(results)),
			"I found session records but nothing matching this exact question.")
	case models.IntentProgressData:
		return renderSection("Your Progress", results,
			fmt.Sprintf("Across these %d records there are real signs of effort — progress in therapy is rarely linear, and showing up counts.", len(results)),
			"I found progress records but nothing matching this exact question.")
	case models.IntentCopingTools:
		return renderSection("Coping Tools & Techniques", results,
			fmt.Sprintf("You have %d tools and techniques on record — the ones you've already practiced are usually the best place to start.", len(results)),
			"I didn't find specific coping tools in your records yet. Your therapist can help you build a personal toolkit.")
	default:
		return renderSection("What I Found", results,
			fmt.Sprintf("These %d records were the closest match to your question.", len(results)),
			"Nothing in your records closely matched this question.")
	}
}

// dominantIntent scans the result set's intent labels: the first
// non-general intent encountered wins; otherwise general.
func dominantIntent(results []models.RetrievalResult) string {
	for _, r := range results {
		if r.Intent != "" && r.Intent != models.IntentGeneral {
			return r.Intent
		}
	}
	return models.IntentGeneral
}

// renderSection assembles the fixed headline / numbered evidence / insight
// template shared by every intent branch.
func renderSection(headline string, results []models.RetrievalResult, insightWithEvidence, insightWithoutEvidence string) string {
	var sb strings.Builder

	sb.WriteString("## ")
	sb.WriteString(headline)
	sb.WriteString("\n\n")

	count := 0
	for _, r := range results {
		if r.Preview == "" {
			continue
		}
		count++
		sb.WriteString(fmt.Sprintf("%d. %s\n", count, r.Preview))
	}

	sb.WriteString("\n**Insights:** ")
	if count > 0 {
		sb.WriteString(insightWithEvidence)
	} else {
		sb.WriteString(insightWithoutEvidence)
	}
	sb.WriteString("\n")

	return sb.String()
}
