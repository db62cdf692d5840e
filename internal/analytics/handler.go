package analytics

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/analytics/me", h.Mine)
	r.Get("/analytics/team", h.Team)
}

func rangeQuery(c *fiber.Ctx) (Range, error) {
	from, err := httpx.DateQuery(c, "from")
	if err != nil {
		return Range{}, err
	}
	to, err := httpx.DateQuery(c, "to")
	if err != nil {
		return Range{}, err
	}
	return Range{From: from, To: to}, nil
}

func (h *Handler) Mine(c *fiber.Ctx) error {
	r, err := rangeQuery(c)
	if err != nil {
		return err
	}
	d, err := h.svc.User(c.UserContext(), httpx.UserID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *Handler) Team(c *fiber.Ctx) error {
	r, err := rangeQuery(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Team(c.UserContext(), httpx.UserID(c), r)
	if err != nil {
		return err
	}
	return c.JSON(d)
}
