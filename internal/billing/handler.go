package billing

import (
	"github.com/gofiber/fiber/v2"

	"github.com/emandor/pbe_journey/internal/httpx"
	"github.com/emandor/pbe_journey/internal/model"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r fiber.Router) {
	r.Get("/billing/prices", h.Prices)
	r.Post("/billing/checkout", h.Checkout)
}

// RegisterAdmin mounts plan overrides; r must already require the admin role.
func (h *Handler) RegisterAdmin(r fiber.Router) {
	r.Put("/users/:id/plan", h.SetPlan)
}

type planRequest struct {
	Plan string `json:"plan" validate:"required,oneof=free pro enterprise"`
}

func (h *Handler) SetPlan(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req planRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.SetPlan(c.UserContext(), id, model.Plan(req.Plan)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Prices(c *fiber.Ctx) error {
	return c.JSON(h.svc.Prices())
}

func (h *Handler) Checkout(c *fiber.Ctx) error {
	var in CheckoutInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	out, err := h.svc.Checkout(c.UserContext(), httpx.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
