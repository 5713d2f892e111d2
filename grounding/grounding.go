// Package grounding decides whether generated text is supported by a
// reference text, using a zero-shot entailment classifier.
package grounding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/bizplan/pkg/logging"
	"github.com/sweetpotato0/bizplan/pkg/metrics"
	"github.com/sweetpotato0/bizplan/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultThreshold is the minimum entailment score for a grounded chunk.
	DefaultThreshold = 0.81
	// DefaultHypothesisTemplate wraps the reference into the hypothesis; {} is
	// replaced by the classifier with the candidate label.
	DefaultHypothesisTemplate = "This text is true: {}"
)

// Classification is a zero-shot result. Scores align with Labels.
type Classification struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Classifier scores candidate labels against a premise.
type Classifier interface {
	Classify(ctx context.Context, premise string, labels []string, hypothesisTemplate string) (*Classification, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, premise string, labels []string, hypothesisTemplate string) (*Classification, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, premise string, labels []string, hypothesisTemplate string) (*Classification, error) {
	return f(ctx, premise, labels, hypothesisTemplate)
}

// Verifier flags chunks whose entailment score falls below a threshold.
type Verifier struct {
	classifier Classifier
	threshold  float64
	template   string
	logger     *slog.Logger
}

// Option customizes the verifier.
type Option func(*Verifier)

// WithThreshold overrides the 0.81 acceptance threshold.
func WithThreshold(threshold float64) Option {
	return func(v *Verifier) {
		if threshold > 0 {
			v.threshold = threshold
		}
	}
}

// WithHypothesisTemplate overrides the hypothesis template.
func WithHypothesisTemplate(tmpl string) Option {
	return func(v *Verifier) {
		if tmpl != "" {
			v.template = tmpl
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewVerifier builds a verifier around classifier.
func NewVerifier(classifier Classifier, opts ...Option) *Verifier {
	v := &Verifier{
		classifier: classifier,
		threshold:  DefaultThreshold,
		template:   DefaultHypothesisTemplate,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logging.WithComponent("grounding")
	}
	return v
}

// Threshold returns the acceptance threshold in use.
func (v *Verifier) Threshold() float64 {
	return v.threshold
}

// IsUngrounded reports whether chunk is a possible hallucination with respect
// to reference. A score equal to the threshold counts as grounded.
func (v *Verifier) IsUngrounded(ctx context.Context, chunk, reference string) (ungrounded bool, err error) {
	ctx, span := telemetry.Start(ctx, "grounding.check")
	defer func() { telemetry.End(span, err) }()

	res, err := v.classifier.Classify(ctx, chunk, []string{reference}, v.template)
	if err != nil {
		return false, fmt.Errorf("failed to classify chunk: %w", err)
	}
	if res == nil || len(res.Scores) == 0 {
		return false, fmt.Errorf("failed to classify chunk: classifier returned no scores")
	}

	score := res.Scores[0]
	ungrounded = score < v.threshold
	span.SetAttributes(
		attribute.Float64("grounding.score", score),
		attribute.Bool("grounding.ungrounded", ungrounded),
	)
	if ungrounded {
		metrics.GroundingChecks.WithLabelValues("ungrounded").Inc()
	} else {
		metrics.GroundingChecks.WithLabelValues("grounded").Inc()
	}
	v.logger.Debug("grounding check", "score", score, "ungrounded", ungrounded)
	return ungrounded, nil
}

// Grounded reports whether any reference grounds chunk. It stops at the
// first reference that does.
func (v *Verifier) Grounded(ctx context.Context, chunk string, references []string) (bool, error) {
	for _, ref := range references {
		ungrounded, err := v.IsUngrounded(ctx, chunk, ref)
		if err != nil {
			return false, err
		}
		if !ungrounded {
			return true, nil
		}
	}
	return false, nil
}
