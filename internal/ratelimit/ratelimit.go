// Package ratelimit counts attempts per action and key in fixed Redis windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

const (
	ActionLogin        = "login"
	ActionSignup       = "signup"
	ActionResetRequest = "password_reset"
)

type Rule struct {
	Limit  int
	Window time.Duration
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Counter increments a window counter and reports its value and remaining TTL.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

type redisCounter struct {
	rdb redis.Cmdable
}

func NewRedisCounter(rdb redis.Cmdable) Counter {
	return redisCounter{rdb: rdb}
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireNX(ctx, key, window)
		ttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

type Checker struct {
	counter Counter
	rules   map[string]Rule
}

func NewChecker(counter Counter, rules map[string]Rule) *Checker {
	return &Checker{counter: counter, rules: rules}
}

// Check records one attempt. Actions without a rule are always allowed. When
// the counter is unreachable the attempt is allowed and the error returned
// for logging.
func (c *Checker) Check(ctx context.Context, action, key string) (Decision, error) {
	rule, ok := c.rules[action]
	if !ok || rule.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}
	count, ttl, err := c.counter.Hit(ctx, fmt.Sprintf("rl:%s:%s", action, key), rule.Window)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if count <= int64(rule.Limit) {
		return Decision{Allowed: true}, nil
	}
	if ttl <= 0 {
		ttl = rule.Window
	}
	return Decision{Allowed: false, RetryAfter: ttl}, nil
}

// Allow runs Check and turns a denial into a RateLimited error. Counter
// failures are logged and let through.
func (c *Checker) Allow(ctx context.Context, action, key string) error {
	d, err := c.Check(ctx, action, key)
	if err != nil {
		log := telemetry.Component("ratelimit")
		log.Warn().Err(err).Str("action", action).Msg("rate_limit_unavailable")
	}
	if !d.Allowed {
		return apperr.RateLimited(d.RetryAfter)
	}
	return nil
}

// Guard limits a route per client IP.
func (c *Checker) Guard(action string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := c.Allow(ctx.UserContext(), action, ctx.IP()); err != nil {
			return err
		}
		return ctx.Next()
	}
}
