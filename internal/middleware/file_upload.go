package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/config"
)

type imageKind struct {
	mime  string
	magic []byte
}

var imageKinds = map[string]imageKind{
	".jpg":  {mime: "image/jpeg", magic: []byte{0xFF, 0xD8}},
	".jpeg": {mime: "image/jpeg", magic: []byte{0xFF, 0xD8}},
	".png":  {mime: "image/png", magic: []byte{0x89, 0x50, 0x4E, 0x47}},
}

// FileUploadValidator admits a multipart body carrying exactly one file in
// field. The file must fit the configured size, use an allowed extension
// and start with that format's magic bytes.
func FileUploadValidator(cfg *config.Config, field string) fiber.Handler {
	allowed := make(map[string]imageKind)
	for _, e := range cfg.AllowedFileExt {
		e = strings.ToLower(strings.TrimSpace(e))
		if k, ok := imageKinds[e]; ok {
			allowed[e] = k
		}
	}
	maxSize := int64(cfg.AllowedMaxFileSize) << 20

	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
		}
		files := form.File[field]
		if len(files) != 1 || len(form.File) != 1 {
			return fiber.NewError(fiber.StatusBadRequest, "expected a single file in field "+field)
		}
		if ferr := checkImage(files[0], allowed, maxSize); ferr != nil {
			return ferr
		}
		return c.Next()
	}
}

func checkImage(fh *multipart.FileHeader, allowed map[string]imageKind, maxSize int64) *fiber.Error {
	if fh.Size > maxSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file too large")
	}
	kind, ok := allowed[strings.ToLower(filepath.Ext(fh.Filename))]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file type")
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot open file")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]

	if !strings.HasPrefix(http.DetectContentType(head), kind.mime) || !bytes.HasPrefix(head, kind.magic) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file content")
	}
	return nil
}
