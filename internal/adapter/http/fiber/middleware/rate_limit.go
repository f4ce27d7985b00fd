package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/seu-repo/handover-engine/pkg/config"
)

// RateLimit limits requests per client IP. Health and metrics endpoints are exempt.
func RateLimit(cfg config.RateLimitingConfig) fiber.Handler {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 100
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: window,
		Next: func(c *fiber.Ctx) bool {
			switch c.Path() {
			case "/health", "/healthz", "/ready", "/readyz", "/live", "/metrics":
				return true
			}
			return false
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		},
	})
}
