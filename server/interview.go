package server

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	errorskg "github.com/sweetpotato0/bizplan/errors"
	"github.com/sweetpotato0/bizplan/export"
	"github.com/sweetpotato0/bizplan/session"
)

type stepRequest struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
}

type stateResponse struct {
	Output      string `json:"output"`
	AllowInput  bool   `json:"allow_input"`
	IsNewOutput bool   `json:"is_new_output"`
}

// rejectedResponse is returned when input arrives while the interview is not
// asking. It carries the current output so clients can resync.
type rejectedResponse struct {
	Error      string `json:"error"`
	Output     string `json:"output"`
	AllowInput bool   `json:"allow_input"`
}

type interviewController struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func newInterviewController(sessions *session.Manager, logger *slog.Logger) *interviewController {
	return &interviewController{sessions: sessions, logger: logger}
}

func (h *interviewController) RegisterRoutes(r fiber.Router) {
	r.Post("/start", h.Start)
	r.Post("/step", h.Step)
	r.Get("/state/:session_id", h.State)

	sessions := r.Group("/sessions")
	sessions.Get("", h.List)
	sessions.Get("/:session_id", h.Record)
	sessions.Delete("/:session_id", h.Delete)
	sessions.Get("/:session_id/export", h.Export)
}

func (h *interviewController) Start(c *fiber.Ctx) error {
	reply, err := h.sessions.Start(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(reply)
}

func (h *interviewController) Step(c *fiber.Ctx) error {
	var req stepRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.SessionID == "" {
		return errorskg.ErrInvalidSession
	}

	reply, err := h.sessions.Step(c.UserContext(), req.SessionID, req.UserInput)
	switch {
	case errors.Is(err, errorskg.ErrInputNotAllowed), errors.Is(err, errorskg.ErrSessionClosed):
		return c.Status(fiber.StatusConflict).JSON(rejectedResponse{
			Error:      err.Error(),
			Output:     reply.Output,
			AllowInput: reply.AllowInput,
		})
	case err != nil:
		return err
	}
	return c.JSON(reply)
}

func (h *interviewController) State(c *fiber.Ctx) error {
	poll, err := h.sessions.Poll(c.Params("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(stateResponse{
		Output:      poll.Output,
		AllowInput:  poll.AllowInput,
		IsNewOutput: poll.IsNewOutput,
	})
}

func (h *interviewController) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sessions": h.sessions.List()})
}

func (h *interviewController) Record(c *fiber.Ctx) error {
	rec, err := h.sessions.Record(c.UserContext(), c.Params("session_id"))
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

func (h *interviewController) Delete(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.UserContext(), c.Params("session_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *interviewController) Export(c *fiber.Ctx) error {
	id := c.Params("session_id")
	rec, err := h.sessions.Record(c.UserContext(), id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.PlanTitle, export.RecordPairs(rec)); err != nil {
		h.logger.Error("export failed", "session_id", id, "error", err)
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="business_plan_%s.pdf"`, id))
	return c.Send(buf.Bytes())
}
