package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/emandor/pbe_journey/internal/config"
)

var (
	pngHead  = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	jpegHead = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
)

type part struct {
	field, name string
	data        []byte
}

func uploadStatus(t *testing.T, parts ...part) int {
	t.Helper()
	cfg := &config.Config{AllowedMaxFileSize: 1, AllowedFileExt: []string{".jpg", ".png"}}
	app := newApp()
	app.Post("/upload", FileUploadValidator(cfg, "avatar"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := fw.Write(p.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp.StatusCode
}

func TestFileUploadValidator(t *testing.T) {
	big := append(append([]byte{}, pngHead...), make([]byte, 2<<20)...)
	cases := []struct {
		name  string
		parts []part
		want  int
	}{
		{"png", []part{{"avatar", "me.png", pngHead}}, fiber.StatusOK},
		{"jpeg", []part{{"avatar", "me.JPG", jpegHead}}, fiber.StatusOK},
		{"wrong field", []part{{"photo", "me.png", pngHead}}, fiber.StatusBadRequest},
		{"two files", []part{{"avatar", "a.png", pngHead}, {"avatar", "b.png", pngHead}}, fiber.StatusBadRequest},
		{"extension not allowed", []part{{"avatar", "me.gif", []byte("GIF89a")}}, fiber.StatusBadRequest},
		{"content mismatch", []part{{"avatar", "me.png", jpegHead}}, fiber.StatusBadRequest},
		{"too large", []part{{"avatar", "me.png", big}}, fiber.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := uploadStatus(t, tc.parts...); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWSUpgradeChecksOrigin(t *testing.T) {
	app := newApp()
	app.Get("/ws", WSUpgrade([]string{"https://app.example.com/"}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	do := func(upgrade bool, origin string) int {
		req := httptest.NewRequest("GET", "/ws", nil)
		if upgrade {
			req.Header.Set("Connection", "Upgrade")
			req.Header.Set("Upgrade", "websocket")
		}
		if origin != "" {
			req.Header.Set(fiber.HeaderOrigin, origin)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		return resp.StatusCode
	}

	if got := do(false, ""); got != fiber.StatusUpgradeRequired {
		t.Fatalf("plain request = %d", got)
	}
	if got := do(true, "https://evil.example.com"); got != fiber.StatusForbidden {
		t.Fatalf("foreign origin = %d", got)
	}
	if got := do(true, "https://app.example.com"); got != fiber.StatusOK {
		t.Fatalf("allowed origin = %d", got)
	}
}

func TestRequestIDKeepsOnlyUUIDs(t *testing.T) {
	app := newApp()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(ReqIDKey).(string))
	})

	keep := uuid.NewString()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, keep)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if got := body(t, resp.Body); got != keep {
		t.Fatalf("req id = %q, want %q", got, keep)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "not-a-uuid")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	got := resp.Header.Get(fiber.HeaderXRequestID)
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("replacement id %q is not a uuid", got)
	}
}
