package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
)

type SessionProvider interface {
	CookieName() string
	ResolveSession(ctx context.Context, sid string) (userID string, err error)
}

// AuthSession resolves the session cookie and stores the user id in locals.
func AuthSession(reg SessionProvider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(reg.CookieName())
		if sid == "" {
			return apperr.Unauthorized("unauthorized")
		}
		uid, err := reg.ResolveSession(c.UserContext(), sid)
		if err != nil || uid == "" {
			return apperr.Unauthorized("unauthorized")
		}
		c.Locals(httpx.UserIDKey, uid)
		return c.Next()
	}
}

type RoleLookup interface {
	UserRole(ctx context.Context, userID string) (model.Role, error)
}

// RequireRole lets only users with the given global role through.
func RequireRole(lookup RoleLookup, role model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, err := lookup.UserRole(c.UserContext(), httpx.UserID(c))
		if err != nil {
			return apperr.MustSucceed("load role", err)
		}
		if got != role {
			return apperr.Forbidden("insufficient role")
		}
		return c.Next()
	}
}
