package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/ratelimit"
	"github.com/emandor/pbe_journey/internal/store"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

const resetAudience = "password_reset"

var errBadResetToken = apperr.Validation("reset link is invalid or expired")

func resetKey(jti string) string { return "pwreset:" + jti }

// issueResetToken signs a token for userID. The jti must also be present in
// the KV store for the token to be accepted, which makes it single use.
func issueResetToken(secret []byte, userID string, now time.Time, ttl time.Duration) (token, jti string, err error) {
	jti = uuid.NewString()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        jti,
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	return token, jti, err
}

func parseResetToken(secret []byte, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !claims.VerifyAudience(resetAudience, true) || claims.Subject == "" || claims.ID == "" {
		return nil, errors.New("not a reset token")
	}
	return claims, nil
}

type ResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetConfirmInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// RequestReset answers the same way whether or not the email exists. Outside
// dev the token would be mailed; in dev it is returned for testing.
func (r *Registry) RequestReset(c *fiber.Ctx) error {
	var in ResetRequestInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()
	if err := r.limiter.Allow(ctx, ratelimit.ActionResetRequest, c.IP()); err != nil {
		return err
	}

	resp := fiber.Map{"ok": true}
	u, err := r.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}
	if err != nil {
		return apperr.MustSucceed("load user", err)
	}

	token, jti, err := issueResetToken([]byte(r.cfg.JWTSecret), u.ID, time.Now(), r.cfg.PasswordResetTTL)
	if err != nil {
		return apperr.MustSucceed("sign reset token", err)
	}
	if err := r.kv.Set(ctx, resetKey(jti), u.ID, r.cfg.PasswordResetTTL); err != nil {
		return apperr.Remote("could not issue reset link", err)
	}

	log := telemetry.Component("auth")
	log.Info().Str("user_id", u.ID).Str("jti", jti).Msg("password_reset_requested")
	if r.cfg.IsDev() {
		resp["token"] = token
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

func (r *Registry) ConfirmReset(c *fiber.Ctx) error {
	var in ResetConfirmInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()

	claims, err := parseResetToken([]byte(r.cfg.JWTSecret), in.Token)
	if err != nil {
		return errBadResetToken
	}
	owner, err := r.kv.Take(ctx, resetKey(claims.ID))
	if isMissing(err) || (err == nil && owner != claims.Subject) {
		return errBadResetToken
	}
	if err != nil {
		return apperr.Remote("could not verify reset link", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return apperr.MustSucceed("hash password", err)
	}
	if err := r.store.UpdatePassword(ctx, claims.Subject, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errBadResetToken
		}
		return apperr.MustSucceed("update password", err)
	}

	log := telemetry.Component("auth")
	log.Info().Str("user_id", claims.Subject).Msg("password_reset_completed")
	return c.JSON(fiber.Map{"ok": true})
}
