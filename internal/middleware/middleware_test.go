package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
)

type fakeSessions struct {
	sessions map[string]string
}

func (f fakeSessions) CookieName() string { return "sid" }

func (f fakeSessions) ResolveSession(_ context.Context, sid string) (string, error) {
	uid, ok := f.sessions[sid]
	if !ok {
		return "", errors.New("no session")
	}
	return uid, nil
}

type fakeRoles map[string]model.Role

func (f fakeRoles) UserRole(_ context.Context, userID string) (model.Role, error) {
	r, ok := f[userID]
	if !ok {
		return "", errors.New("missing")
	}
	return r, nil
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func body(t *testing.T, resp io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(resp)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", apperr.Validation("bad input"), 400, "bad input"},
		{"not found", apperr.NotFound("session not found"), 404, "session not found"},
		{"forbidden", apperr.Forbidden("nope"), 403, "nope"},
		{"fiber", fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large"), 413, "file too large"},
		{"internal", errors.New("db exploded"), 500, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newApp()
			app.Get("/", func(c *fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if got := body(t, resp.Body); !strings.Contains(got, tc.msg) {
				t.Fatalf("body = %s, want message %q", got, tc.msg)
			}
		})
	}
}

func TestErrorHandlerSetsRetryAfter(t *testing.T) {
	app := newApp()
	app.Get("/", func(c *fiber.Ctx) error { return apperr.RateLimited(1500 * time.Millisecond) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2", got)
	}
}

func TestAuthSession(t *testing.T) {
	app := newApp()
	app.Use(AuthSession(fakeSessions{sessions: map[string]string{"good": "user-1"}}))
	app.Get("/me", func(c *fiber.Ctx) error { return c.SendString(httpx.UserID(c)) })

	resp, _ := app.Test(httptest.NewRequest("GET", "/me", nil))
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("no cookie: status = %d", resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", "sid=stale")
	resp, _ = app.Test(req)
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("stale cookie: status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", "sid=good")
	resp, _ = app.Test(req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("valid cookie: status = %d", resp.StatusCode)
	}
	if got := body(t, resp.Body); got != "user-1" {
		t.Fatalf("user id = %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	roles := fakeRoles{"admin-1": model.RoleAdmin, "user-1": model.RoleUser}
	for uid, want := range map[string]int{"admin-1": 200, "user-1": 403} {
		app := newApp()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals(httpx.UserIDKey, uid)
			return c.Next()
		})
		app.Use(RequireRole(roles, model.RoleAdmin))
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != want {
			t.Fatalf("%s: status = %d, want %d", uid, resp.StatusCode, want)
		}
	}
}

func TestRateLimiterSkipsHealthz(t *testing.T) {
	app := newApp()
	app.Use(RateLimiter(1, time.Minute, nil))
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/api", ok)
	app.Get("/healthz", ok)

	for i, want := range []int{fiber.StatusOK, fiber.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest("GET", "/api", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d status = %d, want %d", i, resp.StatusCode, want)
		}
	}
	if resp, _ := app.Test(httptest.NewRequest("GET", "/healthz", nil)); resp.StatusCode != fiber.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}
