package handlers

import (
	"context"
	"time"

	"solace/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ContextHandler exposes the derived view of a user's context snapshot for
// the therapist dashboard. Raw record contents stay out of this response —
// only provenance metadata and derived signals.
type ContextHandler struct {
	aggregator *services.ContextAggregator
}

// NewContextHandler creates a new context handler
func NewContextHandler(aggregator *services.ContextAggregator) *ContextHandler {
	return &ContextHandler{aggregator: aggregator}
}

// GetSignals returns provenance metadata plus the derived signals for a user
// GET /api/users/:id/context
func (h *ContextHandler) GetSignals(c *fiber.Ctx) error {
	userID := c.Params("id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user id is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	uc, err := h.aggregator.GetFullUserContext(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	progress := services.ComputeTherapyProgress(uc)

	return c.JSON(fiber.Map{
		"context_generated_at":     uc.ContextGeneratedAt,
		"data_sources":             uc.DataSources,
		"mood_trend":               services.MoodTrend(uc),
		"recent_triggers":          services.RecentTriggers(uc, 7),
		"crisis_risk_level":        services.CrisisRiskLevel(uc),
		"should_notify_therapist":  services.ShouldNotifyTherapist(uc),
		"interaction_level":        services.InteractionLevel(uc),
		"therapy_progress":         progress,
		"mood_entry_count":         len(uc.MoodEntries),
		"journal_entry_count":      len(uc.JournalEntries),
		"session_count":            len(uc.Sessions),
	})
}
