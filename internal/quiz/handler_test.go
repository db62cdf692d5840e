package quiz

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/middleware"
	"github.com/emandor/pbe_journey/internal/model"
)

func newTestApp(svc *Service, userID string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(httpx.UserIDKey, userID)
		return c.Next()
	})
	NewHandler(svc).Register(app.Group("/api/v1"))
	return app
}

func TestHandlerCreateAndAnswer(t *testing.T) {
	svc, _, _ := newTestService(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	app := newTestApp(svc, aliceID)

	req := httptest.NewRequest("POST", "/api/v1/sessions", strings.NewReader(`{"question_ids":["`+q1ID+`"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var created model.SessionView
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != model.SessionActive || created.TotalPossiblePoints != 50 {
		t.Fatalf("created = %+v", created)
	}

	body := `{"question_id":"` + q1ID + `","points_earned":40,"time_spent":9,"correct":true}`
	req = httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/answers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/v1/sessions/"+created.ID+"/complete", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	var done CompletionResult
	if err := json.NewDecoder(resp.Body).Decode(&done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done.Session.TotalPoints != 40 || !done.Outcome.StatsRecalculated {
		t.Fatalf("completion = %+v", done)
	}
}

func TestHandlerValidationErrors(t *testing.T) {
	svc, _, _ := newTestService(t, time.Now())
	app := newTestApp(svc, aliceID)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"empty question list", "POST", "/api/v1/sessions", `{"question_ids":[]}`, 400},
		{"non uuid question", "POST", "/api/v1/sessions", `{"question_ids":["nope"]}`, 400},
		{"bad session id", "GET", "/api/v1/sessions/not-a-uuid", "", 400},
		{"missing session", "GET", "/api/v1/sessions/" + assignID, "", 404},
		{"bad date", "GET", "/api/v1/assignments?from=yesterday", "", 400},
		{"team sessions as member", "GET", "/api/v1/team/sessions", "", 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}
