package server

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sweetpotato0/bizplan/answer"
	"github.com/sweetpotato0/bizplan/export"
)

type generateRequest struct {
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
}

type generateResponse struct {
	Answers []export.QA `json:"answers"`
}

type generateController struct {
	generator *answer.Generator
	logger    *slog.Logger
}

func newGenerateController(g *answer.Generator, logger *slog.Logger) *generateController {
	return &generateController{generator: g, logger: logger}
}

func (h *generateController) RegisterRoutes(r fiber.Router) {
	r.Post("/generate", h.Generate)
}

// Generate answers the questions from the description. With ?format=pdf the
// answers are returned as the application document.
func (h *generateController) Generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Description) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "description is required")
	}
	questions := req.Questions
	if len(questions) == 0 {
		questions = answer.DefaultQuestions
	}

	answers := h.generator.Generate(c.UserContext(), req.Description, questions)
	pairs := export.Pairs(questions, answers)

	if c.Query("format") != "pdf" {
		return c.JSON(generateResponse{Answers: pairs})
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.DefaultTitle, pairs); err != nil {
		h.logger.Error("export failed", "error", err)
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+export.DefaultFileName+`"`)
	return c.Send(buf.Bytes())
}
