package handlers

import (
	"context"
	"strings"
	"time"

	"solace/internal/logging"
	"solace/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Companion queries run the whole aggregate→retrieve→generate pipeline, so
// they get a generous timeout compared to plain reads.
const companionQueryTimeout = 60 * time.Second

// CompanionHandler handles AI companion query endpoints
type CompanionHandler struct {
	companionService *services.CompanionService
}

// NewCompanionHandler creates a new companion handler
func NewCompanionHandler(companionService *services.CompanionService) *CompanionHandler {
	return &CompanionHandler{companionService: companionService}
}

// companionQueryRequest is the POST body for a companion query
type companionQueryRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// Query answers a free-text question about the user's own wellbeing data
// POST /api/companion/query
func (h *CompanionHandler) Query(c *fiber.Ctx) error {
	var req companionQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), companionQueryTimeout)
	defer cancel()

	reqLog := logging.WithQuery(uuid.NewString(), req.UserID)

	start := time.Now()
	response, err := h.companionService.HandleQuery(ctx, req.UserID, req.Query)
	if err != nil {
		// Only caller errors reach here; everything downstream degrades to
		// an emptier-but-valid response.
		reqLog.Warn("Companion query rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	reqLog.Info("Companion query answered",
		"intent", response.IntentClassified,
		"tables", len(response.TablesQueried),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return c.JSON(fiber.Map{
		"response_text":     response.ResponseText,
		"tables_queried":    response.TablesQueried,
		"intent_classified": response.IntentClassified,
	})
}
