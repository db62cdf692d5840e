package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/emandor/pbe_journey/internal/telemetry"
)

const ReqIDKey = "reqID"

// RequestID trusts an inbound X-Request-ID only when it parses as a UUID.
// The id is echoed back, kept in locals and attached to a logger carried
// on the user context.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid := c.Get(fiber.HeaderXRequestID)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, rid)
		c.Locals(ReqIDKey, rid)

		l := telemetry.L().With().Str("req_id", rid).Logger()
		c.SetUserContext(l.WithContext(c.UserContext()))
		return c.Next()
	}
}
