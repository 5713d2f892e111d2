// Package plan turns a finished interview transcript into a business plan.
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/bizplan/llm"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/telemetry"
	"github.com/sweetpotato0/bizplan/prompt"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// FinalPlanKey is the reserved response key holding the compiled plan.
	FinalPlanKey = "Final Plan"
	// Disclaimer is appended to every compiled plan.
	Disclaimer = "📌 PLEASE NOTE: The generated business plan is a starting point and may require further refinement and correction."
	// Header precedes the plan in the interview output.
	Header = "\n--- Your Complete Business Plan ---\n\n"
	// FailedMessage replaces the plan when the model call fails.
	FailedMessage = "Error generating business plan"
)

// Compiler renders the transcript into the compile prompt and asks the model
// for the plan.
type Compiler struct {
	model    llm.Model
	template *prompt.Template
	logger   *slog.Logger
}

// Option customizes the compiler.
type Option func(*Compiler)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler creates a compiler. tmpl must carry an {all_qa} placeholder.
func NewCompiler(model llm.Model, tmpl *prompt.Template, opts ...Option) *Compiler {
	c := &Compiler{model: model, template: tmpl}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.WithComponent("plan")
	}
	return c
}

// Transcript joins history in section order: turns of one section are
// separated by a newline, sections by a blank line. Sections without history
// are left out.
func Transcript(sections []string, history map[string][]string) string {
	blocks := make([]string, 0, len(sections))
	for _, name := range sections {
		turns := history[name]
		if len(turns) == 0 {
			continue
		}
		blocks = append(blocks, strings.Join(turns, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// Compile produces the plan text with the disclaimer appended.
func (c *Compiler) Compile(ctx context.Context, sections []string, history map[string][]string) (out string, err error) {
	ctx, span := telemetry.Start(ctx, "plan.compile", attribute.Int("plan.sections", len(sections)))
	defer func() { telemetry.End(span, err) }()

	transcript := Transcript(sections, history)
	text, err := llm.Text(ctx, c.model, c.template.Render(map[string]string{prompt.VarAllQA: transcript}))
	if err != nil {
		c.logger.Error("plan compilation failed", "error", err)
		return "", fmt.Errorf("failed to compile plan: %w", err)
	}

	c.logger.Info("plan compiled", "sections", len(sections), "chars", len(text))
	return strings.TrimSpace(text) + "\n\n" + Disclaimer, nil
}
