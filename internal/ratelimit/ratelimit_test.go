package ratelimit

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/middleware"
)

type memCounter struct {
	counts map[string]int64
	ttl    time.Duration
	err    error
}

func (m *memCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.counts[key]++
	if m.ttl > 0 {
		return m.counts[key], m.ttl, nil
	}
	return m.counts[key], window, nil
}

func TestCheckDeniesAfterLimit(t *testing.T) {
	c := NewChecker(&memCounter{ttl: 42 * time.Second}, map[string]Rule{
		ActionLogin: {Limit: 3, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := c.Check(ctx, ActionLogin, "1.2.3.4")
		if err != nil || !d.Allowed {
			t.Fatalf("attempt %d: decision = %+v, err = %v", i+1, d, err)
		}
	}
	d, err := c.Check(ctx, ActionLogin, "1.2.3.4")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Allowed || d.RetryAfter != 42*time.Second {
		t.Fatalf("fourth attempt = %+v, want denied with 42s", d)
	}

	// other keys and actions have their own windows
	if d, _ := c.Check(ctx, ActionLogin, "5.6.7.8"); !d.Allowed {
		t.Fatalf("other key denied")
	}
	if d, _ := c.Check(ctx, "unknown", "1.2.3.4"); !d.Allowed {
		t.Fatalf("action without rule denied")
	}
}

func TestCheckFailsOpen(t *testing.T) {
	c := NewChecker(&memCounter{err: errors.New("connection refused")}, map[string]Rule{
		ActionSignup: {Limit: 1, Window: time.Minute},
	})
	d, err := c.Check(context.Background(), ActionSignup, "k")
	if err == nil {
		t.Fatalf("expected the transport error to be reported")
	}
	if !d.Allowed {
		t.Fatalf("decision = %+v, want allowed", d)
	}
	if err := c.Allow(context.Background(), ActionSignup, "k"); err != nil {
		t.Fatalf("Allow should let through on counter failure, got %v", err)
	}
}

func TestGuardReturns429WithRetryAfter(t *testing.T) {
	c := NewChecker(&memCounter{ttl: 30 * time.Second}, map[string]Rule{
		ActionResetRequest: {Limit: 1, Window: time.Hour},
	})
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Post("/reset", c.Guard(ActionResetRequest), func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusAccepted)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/reset", nil))
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("first request status = %d", resp.StatusCode)
	}
	resp, err = app.Test(httptest.NewRequest("POST", "/reset", nil))
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if got := resp.Header.Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After = %q", got)
	}
}

func TestAllowMapsToRateLimitedKind(t *testing.T) {
	c := NewChecker(&memCounter{}, map[string]Rule{ActionLogin: {Limit: 0, Window: time.Minute}})
	if err := c.Allow(context.Background(), ActionLogin, "k"); err != nil {
		t.Fatalf("zero limit disables the rule, got %v", err)
	}
	c = NewChecker(&memCounter{}, map[string]Rule{ActionLogin: {Limit: 1, Window: time.Minute}})
	_ = c.Allow(context.Background(), ActionLogin, "k")
	if err := c.Allow(context.Background(), ActionLogin, "k"); !apperr.Is(err, apperr.KindRateLimited) {
		t.Fatalf("err = %v, want rate limited", err)
	}
}
