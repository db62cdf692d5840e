package quiz

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
	r.Get("/questions", h.ListQuestions)
	r.Get("/assignments", h.ListAssignments)

	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions", h.ListSessions)
	r.Get("/sessions/:id", h.GetSession)
	r.Post("/sessions/:id/answers", h.RecordAnswer)
	r.Post("/sessions/:id/complete", h.CompleteSession)
	r.Delete("/sessions/:id", h.DeleteSession)
	r.Patch("/sessions/:id/approval", h.SetApproval)
	r.Get("/team/sessions", h.ListTeamSessions)
}

func views(list []model.QuizSession) []model.SessionView {
	out := make([]model.SessionView, 0, len(list))
	for _, s := range list {
		out = append(out, s.View())
	}
	return out
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	var in CreateInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	qs, err := h.svc.Create(c.UserContext(), httpx.UserID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(qs.View())
}

func (h *Handler) ListSessions(c *fiber.Ctx) error {
	list, err := h.svc.List(c.UserContext(), httpx.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(views(list))
}

func (h *Handler) ListTeamSessions(c *fiber.Ctx) error {
	list, err := h.svc.ListTeam(c.UserContext(), httpx.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(views(list))
}

func (h *Handler) GetSession(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	qs, err := h.svc.Get(c.UserContext(), httpx.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(qs.View())
}

func (h *Handler) RecordAnswer(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var in AnswerInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	qs, err := h.svc.RecordAnswer(c.UserContext(), httpx.UserID(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(qs.View())
}

func (h *Handler) CompleteSession(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	res, err := h.svc.Complete(c.UserContext(), httpx.UserID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.UserContext(), httpx.UserID(c), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type approvalRequest struct {
	Status string `json:"status" validate:"required,oneof=approved pending rejected"`
}

func (h *Handler) SetApproval(c *fiber.Ctx) error {
	id, err := httpx.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req approvalRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	qs, err := h.svc.SetApproval(c.UserContext(), httpx.UserID(c), id, model.ApprovalStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(qs.View())
}

func (h *Handler) ListAssignments(c *fiber.Ctx) error {
	from, err := httpx.DateQuery(c, "from")
	if err != nil {
		return err
	}
	to, err := httpx.DateQuery(c, "to")
	if err != nil {
		return err
	}
	list, err := h.svc.ListAssignments(c.UserContext(), httpx.UserID(c), from, to)
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (h *Handler) ListQuestions(c *fiber.Ctx) error {
	chapter := c.QueryInt("chapter", 0)
	list, err := h.svc.ListQuestions(c.UserContext(), httpx.UserID(c), c.Query("book"), chapter)
	if err != nil {
		return err
	}
	return c.JSON(list)
}
