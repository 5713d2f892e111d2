package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"github.com/sweetpotato0/bizplan/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// TokenCounter estimates the token length of a prompt.
type TokenCounter interface {
	CountTokens(text string) int
}

// Instrumented records a span, latency, outcome and prompt size around every
// call to the wrapped model.
type Instrumented struct {
	model    Model
	provider string
	counter  TokenCounter
	logger   *slog.Logger
}

// InstrumentOption customizes an Instrumented model.
type InstrumentOption func(*Instrumented)

// WithTokenCounter enables prompt size accounting.
func WithTokenCounter(c TokenCounter) InstrumentOption {
	return func(i *Instrumented) {
		i.counter = c
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) InstrumentOption {
	return func(i *Instrumented) {
		if l != nil {
			i.logger = l
		}
	}
}

// Instrument wraps m. provider labels metrics and spans.
func Instrument(m Model, provider string, opts ...InstrumentOption) *Instrumented {
	i := &Instrumented{model: m, provider: provider}
	for _, opt := range opts {
		opt(i)
	}
	if i.logger == nil {
		i.logger = logging.WithComponent("llm").With("provider", provider)
	}
	return i
}

// Invoke implements Model.
func (i *Instrumented) Invoke(ctx context.Context, prompt string) (resp *Response, err error) {
	ctx, span := telemetry.Start(ctx, "llm.invoke", attribute.String("llm.provider", i.provider))
	defer func() { telemetry.End(span, err) }()

	if i.counter != nil {
		tokens := i.counter.CountTokens(prompt)
		metrics.PromptTokens.Observe(float64(tokens))
		span.SetAttributes(attribute.Int("llm.prompt_tokens", tokens))
	}

	start := time.Now()
	resp, err = i.model.Invoke(ctx, prompt)
	if err == nil && resp == nil {
		err = ErrEmptyResponse
	}
	elapsed := time.Since(start)
	metrics.ModelLatency.WithLabelValues(i.provider).Observe(elapsed.Seconds())

	if err != nil {
		metrics.ModelCalls.WithLabelValues(i.provider, "error").Inc()
		i.logger.Error("model call failed", "duration", elapsed, "error", err)
		return nil, err
	}
	metrics.ModelCalls.WithLabelValues(i.provider, "ok").Inc()
	i.logger.Debug("model call completed", "duration", elapsed, "response_chars", len(resp.Content))
	return resp, nil
}

// Limited throttles calls to the wrapped model. Waiting honours ctx.
type Limited struct {
	model   Model
	limiter *rate.Limiter
}

// Limit wraps m so that at most perSecond calls start each second, with the
// given burst. A non-positive rate disables limiting.
func Limit(m Model, perSecond float64, burst int) Model {
	if perSecond <= 0 {
		return m
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{model: m, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Invoke implements Model.
func (l *Limited) Invoke(ctx context.Context, prompt string) (*Response, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.model.Invoke(ctx, prompt)
}
