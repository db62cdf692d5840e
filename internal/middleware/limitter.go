package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/emandor/pbe_journey/internal/apperr"
)

// RateLimiter is a coarse per-IP ceiling across the whole API. With a
// shared storage the window holds across every instance; a nil storage
// falls back to fiber's in-process memory.
func RateLimiter(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        window,
		Storage:           storage,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator: func(c *fiber.Ctx) string {
			return "global:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			retry := window
			if v := c.GetRespHeader(fiber.HeaderRetryAfter); v != "" {
				if d, err := time.ParseDuration(v + "s"); err == nil {
					retry = d
				}
			}
			return apperr.RateLimited(retry)
		},
		Next: func(c *fiber.Ctx) bool {
			path := c.Path()
			return path == "/healthz" || path == "/ws" || strings.HasPrefix(path, "/storage/")
		},
	})
}
