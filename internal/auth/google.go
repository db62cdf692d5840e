package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

func (r *Registry) GoogleLogin(c *fiber.Ctx) error {
	if r.oauth == nil {
		return apperr.NotFound("google sign-in is not enabled")
	}
	log := telemetry.Ctx(c.UserContext(), "auth")
	log.Info().Msg("google_login_redirect")

	state := randomHex(16)
	c.Cookie(&fiber.Cookie{Name: "oauth_state", Value: state, HTTPOnly: true, Secure: !r.cfg.IsDev(), SameSite: "Lax", MaxAge: 600})
	url := r.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
	return c.Redirect(url, http.StatusFound)
}

func (r *Registry) GoogleCallback(c *fiber.Ctx) error {
	if r.oauth == nil {
		return apperr.NotFound("google sign-in is not enabled")
	}
	log := telemetry.Ctx(c.UserContext(), "auth")

	state := c.Cookies("oauth_state")
	if state == "" || state != c.Query("state") {
		log.Warn().Msg("oauth_state_mismatch")
		return apperr.Validation("bad state")
	}
	c.ClearCookie("oauth_state")

	ctx := c.UserContext()
	tok, err := r.oauth.Exchange(ctx, c.Query("code"))
	if err != nil {
		log.Error().Err(err).Msg("oauth_exchange_failed")
		return apperr.Validation("exchange failed")
	}
	ui, err := r.fetchGoogleUserinfo(ctx, tok)
	if err != nil {
		log.Error().Err(err).Msg("oauth_userinfo_failed")
		return apperr.Remote("could not read google profile", err)
	}
	if !domainAllowed(ui.Email, r.cfg.OAuthAllowedDomains) {
		return apperr.Forbidden("domain not allowed")
	}

	userID, err := r.store.UpsertOAuthUser(ctx, uuid.NewString(), ui.Sub, normalizeEmail(ui.Email), ui.Name, ui.Picture)
	if err != nil {
		return apperr.MustSucceed("upsert google user", err)
	}
	log.Info().Str("user_id", userID).Str("sub", ui.Sub).Msg("google_user_upserted")

	if err := r.startSession(c, userID); err != nil {
		return err
	}
	return c.Redirect(r.cfg.ClientURL+"/dashboard", http.StatusFound)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (r *Registry) fetchGoogleUserinfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	resp, err := r.oauth.Client(ctx, tok).Get(googleUserinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var ui googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, err
	}
	if ui.Sub == "" || ui.Email == "" || !ui.EmailVerified {
		return nil, fmt.Errorf("userinfo missing a verified email")
	}
	return &ui, nil
}

// domainAllowed accepts every email when no domains are configured.
func domainAllowed(email string, domains []string) bool {
	if len(domains) == 0 {
		return true
	}
	email = strings.ToLower(email)
	for _, d := range domains {
		if strings.HasSuffix(email, "@"+strings.ToLower(strings.TrimSpace(d))) {
			return true
		}
	}
	return false
}
