package team

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
	r.Post("/team", h.Create)
	r.Get("/team", h.Get)
	r.Get("/team/members", h.Members)
	r.Post("/team/members", h.AddMember)
	r.Patch("/team/members/:id", h.SetRole)
	r.Delete("/team/members/:id", h.Remove)
	r.Get("/team/assignments", h.Assignments)
}

type createRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.svc.Create(c.UserContext(), httpx.UserID(c), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (h *Handler) Get(c *fiber.Ctx) error {
	t, err := h.svc.Get(c.UserContext(), httpx.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (h *Handler) Members(c *fiber.Ctx) error {
	list, err := h.svc.Members(c.UserContext(), httpx.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

type addMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

func (h *Handler) AddMember(c *fiber.Ctx) error {
	var req addMemberRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	m, err := h.svc.AddMember(c.UserContext(), httpx.UserID(c), req.Email, model.TeamRole(req.Role))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin member"`
}

func (h *Handler) SetRole(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req roleRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.SetRole(c.UserContext(), httpx.UserID(c), id, model.TeamRole(req.Role)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Remove(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Remove(c.UserContext(), httpx.UserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Assignments(c *fiber.Ctx) error {
	on, err := httpx.DateQuery(c, "date")
	if err != nil {
		return err
	}
	list, err := h.svc.Assignments(c.UserContext(), httpx.UserID(c), on)
	if err != nil {
		return err
	}
	return c.JSON(list)
}
