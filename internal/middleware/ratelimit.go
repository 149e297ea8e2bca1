package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Global limits (per IP)
	GlobalAPIMax        int
	GlobalAPIExpiration time.Duration

	// Companion query limits (per user ID). These run the full
	// aggregate→retrieve→generate pipeline, so they are the expensive path.
	CompanionMax        int
	CompanionExpiration time.Duration
}

// DefaultRateLimitConfig returns production-safe defaults
func DefaultRateLimitConfig(companionMax int) *RateLimitConfig {
	cfg := &RateLimitConfig{
		// Global: 200/min - generous for normal dashboard use
		GlobalAPIMax:        200,
		GlobalAPIExpiration: 1 * time.Minute,

		CompanionMax:        companionMax,
		CompanionExpiration: 1 * time.Minute,
	}
	if cfg.CompanionMax <= 0 {
		cfg.CompanionMax = 30
	}
	return cfg
}

// GlobalAPIRateLimiter creates a rate limiter for all API requests
func GlobalAPIRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.GlobalAPIMax,
		Expiration: config.GlobalAPIExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("🚫 [RATE-LIMIT] Global limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many requests. Please slow down.",
				"retry_after": int(config.GlobalAPIExpiration.Seconds()),
			})
		},
	})
}

// CompanionRateLimiter limits companion queries per user. The user ID
// comes from the request body, so this keys on body user_id when present
// and falls back to IP for malformed requests.
func CompanionRateLimiter(config *RateLimitConfig) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        config.CompanionMax,
		Expiration: config.CompanionExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			var body struct {
				UserID string `json:"user_id"`
			}
			if err := c.BodyParser(&body); err == nil && body.UserID != "" {
				return "companion:" + body.UserID
			}
			return "companion-ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			log.Printf("⚠️  [RATE-LIMIT] Companion limit reached for IP: %s", c.IP())
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "Too many companion queries. Please wait before asking again.",
				"retry_after": int(config.CompanionExpiration.Seconds()),
			})
		},
	})
}
