// Package answer drafts answers to application questions from a free-text
// company description and filters out content the description does not
// support.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/bizplan/grounding"
	"github.com/sweetpotato0/bizplan/llm"
	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"github.com/sweetpotato0/bizplan/pkg/telemetry"
	"github.com/sweetpotato0/bizplan/prompt"
	"github.com/sweetpotato0/bizplan/rag/chunking"
	"github.com/sweetpotato0/bizplan/rag/preprocess"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// NotProvided is what the model is told to answer when the description
	// lacks the information.
	NotProvided = "Information not provided"
	// NotFound replaces an answer that could not be grounded within the
	// attempt budget.
	NotFound = "Information not found"
	// Failed replaces every answer of a batch when generation fails.
	Failed = "Error generating answer"
)

// Defaults for the verification windows and attempt budget.
const (
	DefaultDescriptionWindow  = 600
	DefaultDescriptionOverlap = 10
	DefaultAnswerWindow       = 80
	DefaultAnswerOverlap      = 8
	DefaultMaxAttempts        = 3
)

// DefaultQuestions are the seed-grant application questions.
var DefaultQuestions = []string{
	"What is the elevator pitch?",
	"What problem is the company solving?",
	"What is the company's solution to the problem they are solving?",
	"How is the company's solution defensible in the marketplace?",
	"What are the patent details?",
	"What risks does the company face?",
	"How did the company discover their customers?",
	"What is the customer description?",
	"What is the customer acquisition strategy?",
	"What is the company's revenue model?",
	"What is the market opportunity for the company?",
	"What is the company's competitive landscape?",
}

var draftTemplate = prompt.NewTemplate("draft_answer", `Company Description: ""{description}""

Question: ""{question}""

FOLLOW THESE REQUIREMENTS:
- Please provide a concise and relevant answer to the question based on the company description as if you are the company representative answering it.
- Do not say you are 'attempting' to answer the question or provide any other disclaimers.
- Do not make any references to yourself or use 'I', 'us', 'we', or any personal pronouns.
- Use accurate and precise language and information based on the company description.
- If you do not have enough information to answer the question, output '`+NotProvided+`'.
- If you are not sure about specific technical details, avoid making them up or mentioning them.
- If you lack enough details that you cannot provide an answer firmly based in the company description, output '`+NotProvided+`'.
- Act as though you are the company representative trying to inform about your company.
- Everything should be in plain text. Do not include any formatting or special characters.
- Be descriptive and provide concrete detail.`)

var regenerateTemplate = prompt.NewTemplate("regenerate_answer", `Company Description: ""{description}""

Question: ""{question}""

Here is the previous answer:
""{answer}""

The following chunks of text from the previous answer may contain hallucinations:
""{chunks}""

Please rewrite the answer without any hallucinations, ensuring it is firmly grounded in the company description provided. If you cannot rewrite it accurately based on the given information, respond with '`+NotProvided+`'.

REQUIREMENTS:
- Be concise and relevant.
- Do not include any disclaimers or self-references.
- Act as though you are the company representative trying to inform about your company.
- Provide only plain text without formatting or special characters.
- Be descriptive and provide concrete detail, but only if it's supported by the company description.
- VERY IMPORTANT: Be sure to rewrite or omit the chunks marked as hallucinations! For rewritten chunks, ensure that the answer is firmly grounded in the company description.`)

// Generator produces grounded answers.
type Generator struct {
	model              llm.Model
	verifier           *grounding.Verifier
	descriptionChunker chunking.Chunker
	answerChunker      chunking.Chunker
	maxAttempts        int
	logger             *slog.Logger
}

// Option customizes the generator.
type Option func(*Generator)

// WithDescriptionWindow sets the chunk window used on the description.
func WithDescriptionWindow(maxTokens, overlap int) Option {
	return func(g *Generator) {
		g.descriptionChunker = chunking.NewSentenceChunker(chunking.WithMaxTokens(maxTokens), chunking.WithOverlap(overlap))
	}
}

// WithAnswerWindow sets the chunk window used on generated answers.
func WithAnswerWindow(maxTokens, overlap int) Option {
	return func(g *Generator) {
		g.answerChunker = chunking.NewSentenceChunker(chunking.WithMaxTokens(maxTokens), chunking.WithOverlap(overlap))
	}
}

// WithMaxAttempts sets the verification attempt budget per question.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator.
func NewGenerator(model llm.Model, verifier *grounding.Verifier, opts ...Option) *Generator {
	g := &Generator{
		model:              model,
		verifier:           verifier,
		descriptionChunker: chunking.NewSentenceChunker(chunking.WithMaxTokens(DefaultDescriptionWindow), chunking.WithOverlap(DefaultDescriptionOverlap)),
		answerChunker:      chunking.NewSentenceChunker(chunking.WithMaxTokens(DefaultAnswerWindow), chunking.WithOverlap(DefaultAnswerOverlap)),
		maxAttempts:        DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = logging.WithComponent("answer")
	}
	return g
}

// Generate answers every question in order. If anything fails, every answer
// is Failed.
func (g *Generator) Generate(ctx context.Context, description string, questions []string) []string {
	answers, err := g.generate(ctx, description, questions)
	if err != nil {
		g.logger.Error("answer generation failed", "questions", len(questions), "error", err)
		metrics.GeneratedAnswers.WithLabelValues("error").Add(float64(len(questions)))
		answers = make([]string, len(questions))
		for i := range answers {
			answers[i] = Failed
		}
	}
	return answers
}

func (g *Generator) generate(ctx context.Context, description string, questions []string) (answers []string, err error) {
	ctx, span := telemetry.Start(ctx, "answer.generate", attribute.Int("answer.questions", len(questions)))
	defer func() { telemetry.End(span, err) }()

	description = preprocess.Description(description)
	references := g.descriptionChunker.Split(description)
	g.logger.Info("generating answers", "questions", len(questions), "description_chunks", len(references))

	answers = make([]string, 0, len(questions))
	for i, question := range questions {
		a, err := g.answer(ctx, description, references, question)
		if err != nil {
			return nil, fmt.Errorf("failed to answer question %d: %w", i+1, err)
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// answer drafts one answer and runs the verification loop over it.
func (g *Generator) answer(ctx context.Context, description string, references []string, question string) (string, error) {
	vars := map[string]string{"description": description, "question": question}
	draft, err := llm.Text(ctx, g.model, draftTemplate.Render(vars))
	if err != nil {
		return "", fmt.Errorf("failed to draft answer: %w", err)
	}
	current := preprocess.PlainText(draft)

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		bad, err := g.ungroundedChunks(ctx, current, references)
		if err != nil {
			return "", err
		}
		if len(bad) == 0 {
			metrics.GenerationAttempts.Observe(float64(attempt + 1))
			metrics.GeneratedAnswers.WithLabelValues("grounded").Inc()
			return current, nil
		}
		if attempt == g.maxAttempts-1 {
			g.logger.Warn("answer could not be grounded", "question", question, "bad_chunks", len(bad))
			metrics.GenerationAttempts.Observe(float64(attempt + 1))
			metrics.GeneratedAnswers.WithLabelValues("not_found").Inc()
			return NotFound, nil
		}

		g.logger.Debug("regenerating answer", "question", question, "attempt", attempt+1, "bad_chunks", len(bad))
		vars["answer"] = current
		vars["chunks"] = strings.Join(bad, "\n")
		rewritten, err := llm.Text(ctx, g.model, regenerateTemplate.Render(vars))
		if err != nil {
			return "", fmt.Errorf("failed to regenerate answer: %w", err)
		}
		current = preprocess.PlainText(rewritten)
	}
	return current, nil
}

// ungroundedChunks returns the answer chunks no reference chunk grounds.
func (g *Generator) ungroundedChunks(ctx context.Context, answer string, references []string) ([]string, error) {
	var bad []string
	for _, chunk := range g.answerChunker.Split(answer) {
		ok, err := g.verifier.Grounded(ctx, chunk, references)
		if err != nil {
			return nil, fmt.Errorf("failed to verify answer: %w", err)
		}
		if !ok {
			bad = append(bad, chunk)
		}
	}
	return bad, nil
}
