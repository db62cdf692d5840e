package middleware

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// WSUpgrade admits only websocket upgrades whose Origin is one of the
// allowed client origins. Browsers send the session cookie on cross-site
// upgrades, so the origin check stands in for CSRF protection.
func WSUpgrade(allowedOrigins []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if origin := c.Get(fiber.HeaderOrigin); origin != "" {
			if _, ok := allowed[strings.TrimRight(origin, "/")]; !ok {
				return fiber.NewError(fiber.StatusForbidden, "origin not allowed")
			}
		}
		return c.Next()
	}
}
