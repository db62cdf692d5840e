// Package auth owns login sessions: password signup and login, password
// reset, Google sign-in and the profile endpoints of the signed-in user.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/config"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/middleware"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type Store interface {
	CreateUser(ctx context.Context, u model.User) error
	GetUserByID(ctx context.Context, id string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	UpsertOAuthUser(ctx context.Context, newID, providerID, email, name, picture string) (string, error)
	TouchLogin(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdateProfile(ctx context.Context, userID, name string) error
	UpdatePicture(ctx context.Context, userID, picture string) error
	SaveLoginSession(ctx context.Context, sid, userID, ip, userAgent string) error
}

// UserState is the per-user working state built at login.
type UserState interface {
	Load(ctx context.Context, userID string) error
	Clear(userID string)
}

type Limiter interface {
	Allow(ctx context.Context, action, key string) error
}

type Registry struct {
	cfg     *config.Config
	store   Store
	kv      KV
	state   UserState
	limiter Limiter
	oauth   *oauth2.Config
}

func NewRegistry(cfg *config.Config, st Store, kv KV, state UserState, limiter Limiter) *Registry {
	r := &Registry{cfg: cfg, store: st, kv: kv, state: state, limiter: limiter}
	if cfg.GoogleEnabled() {
		r.oauth = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return r
}

// RegisterPublic must run before any session middleware is mounted on the
// same prefix; fiber matches handlers in registration order.
func (r *Registry) RegisterPublic(public fiber.Router) {
	public.Post("/auth/signup", r.Signup)
	public.Post("/auth/login", r.Login)
	public.Post("/auth/password/reset", r.RequestReset)
	public.Post("/auth/password/reset/confirm", r.ConfirmReset)
	public.Get("/auth/google/login", r.GoogleLogin)
	public.Get("/auth/google/callback", r.GoogleCallback)
}

func (r *Registry) RegisterPrivate(private fiber.Router) {
	private.Post("/auth/logout", r.Logout)
	private.Get("/me", r.Me)
	private.Patch("/me", r.UpdateProfile)
	private.Post("/me/avatar", middleware.FileUploadValidator(r.cfg, "avatar"), r.UploadAvatar)
}

func (r *Registry) CookieName() string {
	return r.cfg.SessionCookieName
}

func sessionKey(sid string) string { return "sess:" + sid }

// ResolveSession maps a session cookie to its user id.
func (r *Registry) ResolveSession(ctx context.Context, sid string) (string, error) {
	return r.kv.Get(ctx, sessionKey(sid))
}

// startSession issues the session cookie for userID and warms the user's
// state. Only the Redis write is required; the audit row and state load are
// best effort.
func (r *Registry) startSession(c *fiber.Ctx, userID string) error {
	ctx := c.UserContext()
	log := telemetry.Ctx(ctx, "auth").With().Str("user_id", userID).Logger()

	sid := randomHex(16)
	if err := r.kv.Set(ctx, sessionKey(sid), userID, r.cfg.SessionTTL); err != nil {
		return apperr.Remote("could not start session", err)
	}
	apperr.BestEffortDo(log, "session_audit_failed", func() error {
		return r.store.SaveLoginSession(ctx, sid, userID, c.IP(), string(c.Request().Header.UserAgent()))
	})
	apperr.BestEffortDo(log, "state_load_failed", func() error {
		return r.state.Load(ctx, userID)
	})

	c.Cookie(&fiber.Cookie{
		Name:     r.cfg.SessionCookieName,
		Value:    sid,
		HTTPOnly: true,
		SameSite: "Lax",
		Secure:   !r.cfg.IsDev(),
		MaxAge:   int(r.cfg.SessionTTL / time.Second),
	})
	log.Info().Msg("session_started")
	return nil
}

func (r *Registry) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	log := telemetry.Ctx(ctx, "auth")
	if sid := c.Cookies(r.cfg.SessionCookieName); sid != "" {
		apperr.BestEffortDo(log, "session_delete_failed", func() error {
			return r.kv.Del(ctx, sessionKey(sid))
		})
	}
	r.state.Clear(httpx.UserID(c))
	c.ClearCookie(r.cfg.SessionCookieName)
	return c.JSON(fiber.Map{"ok": true})
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func isMissing(err error) bool { return errors.Is(err, ErrNoKey) }
