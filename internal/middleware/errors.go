package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

// ErrorHandler renders every handler error as {"error": msg} with the
// status its kind maps to.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := apperr.Status(err)
	if status >= fiber.StatusInternalServerError {
		log := telemetry.Ctx(c.UserContext(), "http")
		log.Error().Err(err).Str("path", c.Path()).Str("kind", apperr.KindOf(err).String()).Msg("request_failed")
	}
	if ra := apperr.RetryAfterHeader(err); ra != "" {
		c.Set(fiber.HeaderRetryAfter, ra)
	}
	return c.Status(status).JSON(fiber.Map{"error": apperr.Message(err)})
}
