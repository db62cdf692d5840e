package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/helmet/v2"
)

// SecureHeaders is the policy for JSON endpoints: nothing on the API is
// meant to be framed or to load subresources, while avatars under /storage
// stay readable cross-origin for the client app.
func SecureHeaders() fiber.Handler {
	return helmet.New(helmet.Config{
		ContentSecurityPolicy:     "default-src 'none'; frame-ancestors 'none';",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		ReferrerPolicy:            "no-referrer",
	})
}
