package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
	"github.com/emandor/pbe_journey/internal/plan"
	"github.com/emandor/pbe_journey/internal/ratelimit"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var errBadCredentials = apperr.Unauthorized("invalid email or password")

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (r *Registry) Signup(c *fiber.Ctx) error {
	var in SignupInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := r.limiter.Allow(ctx, ratelimit.ActionSignup, c.IP()); err != nil {
		return err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return apperr.MustSucceed("hash password", err)
	}
	u := model.User{
		ID:           uuid.NewString(),
		Provider:     "password",
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         model.RoleUser,
		Plan:         model.PlanFree,
		PlanSettings: plan.DefaultSettings(model.PlanFree),
	}
	u.PasswordHash.String, u.PasswordHash.Valid = hash, true
	if err := r.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return apperr.Validation("email is already registered")
		}
		return apperr.MustSucceed("create user", err)
	}

	log := telemetry.Component("auth")
	log.Info().Str("user_id", u.ID).Msg("user_signed_up")

	if err := r.startSession(c, u.ID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

func (r *Registry) Login(c *fiber.Ctx) error {
	var in LoginInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := r.limiter.Allow(ctx, ratelimit.ActionLogin, c.IP()); err != nil {
		return err
	}

	u, err := r.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errBadCredentials
		}
		return apperr.MustSucceed("load user", err)
	}
	if !u.PasswordHash.Valid || !checkPassword(u.PasswordHash.String, in.Password) {
		log := telemetry.Component("auth")
		log.Warn().Str("user_id", u.ID).Str("ip", c.IP()).Msg("login_failed")
		return errBadCredentials
	}

	log := telemetry.Component("auth").With().Str("user_id", u.ID).Logger()
	apperr.BestEffortDo(log, "touch_login_failed", func() error { return r.store.TouchLogin(ctx, u.ID) })

	if err := r.startSession(c, u.ID); err != nil {
		return err
	}
	return c.JSON(u)
}
