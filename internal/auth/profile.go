package auth

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/apperr"
	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/img"
	"github.com/emandor/pbe_journey/internal/telemetry"
)

func (r *Registry) Me(c *fiber.Ctx) error {
	u, err := r.store.GetUserByID(c.UserContext(), httpx.UserID(c))
	if err != nil {
		return apperr.MustSucceed("load user", err)
	}
	return c.JSON(u)
}

type ProfileInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (r *Registry) UpdateProfile(c *fiber.Ctx) error {
	var in ProfileInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	ctx := c.UserContext()
	uid := httpx.UserID(c)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return apperr.Validation("name is required")
	}
	if err := r.store.UpdateProfile(ctx, uid, name); err != nil {
		return apperr.MustSucceed("update profile", err)
	}
	return r.Me(c)
}

// UploadAvatar stores a square JPEG of the "avatar" form file and points the
// user's picture at it.
func (r *Registry) UploadAvatar(c *fiber.Ctx) error {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return apperr.Validation("avatar file is required")
	}
	uid := httpx.UserID(c)
	log := telemetry.Component("auth").With().Str("user_id", uid).Logger()

	tmpDir, err := os.MkdirTemp("", "avatar-*")
	if err != nil {
		return apperr.MustSucceed("create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "upload"+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveFile(fh, src); err != nil {
		return apperr.MustSucceed("save upload", err)
	}
	res, err := img.SaveAvatar(src, r.cfg.AvatarDir, uid, r.cfg.AvatarMaxW)
	if err != nil {
		log.Warn().Err(err).Msg("avatar_decode_failed")
		return apperr.Validation("could not read image")
	}

	picture := strings.TrimRight(r.cfg.BaseURL, "/") + "/storage/avatars/" + res.Name
	if err := r.store.UpdatePicture(c.UserContext(), uid, picture); err != nil {
		return apperr.MustSucceed("update picture", err)
	}
	log.Info().Str("file", res.Name).Int("size", res.Width).Msg("avatar_updated")
	return c.JSON(fiber.Map{"picture": picture})
}
