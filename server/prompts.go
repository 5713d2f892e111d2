package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/sweetpotato0/bizplan/prompt"
)

type resetRequest struct {
	// Empty resets everything.
	Field string `json:"field"`
}

type promptController struct {
	store  *prompt.Store
	logger *slog.Logger
}

func newPromptController(store *prompt.Store, logger *slog.Logger) *promptController {
	return &promptController{store: store, logger: logger}
}

func (h *promptController) RegisterRoutes(r fiber.Router) {
	g := r.Group("/prompts")
	g.Get("", h.Current)
	g.Get("/defaults", h.Defaults)
	g.Put("", h.Save)
	g.Post("/reset", h.Reset)
}

func (h *promptController) Current(c *fiber.Ctx) error {
	return c.JSON(h.store.Current())
}

func (h *promptController) Defaults(c *fiber.Ctx) error {
	return c.JSON(h.store.Defaults())
}

// Save replaces the custom prompts. New interviews use them; running ones
// keep what they started with.
func (h *promptController) Save(c *fiber.Ctx) error {
	var set prompt.Set
	if err := c.BodyParser(&set); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := set.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errorPayload{Error: err.Error()})
	}
	if err := h.store.Save(set); err != nil {
		return err
	}
	return c.JSON(h.store.Current())
}

func (h *promptController) Reset(c *fiber.Ctx) error {
	var req resetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	var (
		set prompt.Set
		err error
	)
	if req.Field == "" {
		set, err = h.store.ResetAll()
	} else {
		set, err = h.store.Reset(req.Field)
	}
	if err != nil {
		return err
	}
	h.logger.Info("prompts reset", "field", req.Field)
	return c.JSON(set)
}
