// Package metrics holds the Prometheus collectors shared by the interview and
// answer generation packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ModelCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizplan",
		Name:      "model_calls_total",
		Help:      "Language model invocations by provider and outcome.",
	}, []string{"provider", "outcome"})

	ModelLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bizplan",
		Name:      "model_call_duration_seconds",
		Help:      "Latency of language model invocations.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
	}, []string{"provider"})

	PromptTokens = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bizplan",
		Name:      "prompt_tokens",
		Help:      "Estimated prompt size in tokens.",
		Buckets:   prometheus.ExponentialBuckets(16, 2, 10),
	})

	GroundingChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizplan",
		Name:      "grounding_checks_total",
		Help:      "Entailment checks by verdict.",
	}, []string{"verdict"})

	GenerationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bizplan",
		Name:      "answer_verification_attempts",
		Help:      "Verification attempts used per generated answer.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	})

	GeneratedAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizplan",
		Name:      "generated_answers_total",
		Help:      "Generated answers by outcome (grounded, not_found, error).",
	}, []string{"outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bizplan",
		Name:      "active_sessions",
		Help:      "Interviews whose machine is still running.",
	})

	InterviewOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bizplan",
		Name:      "interview_outcomes_total",
		Help:      "Finished interviews by outcome (compiled, exited, timeout, cancelled).",
	}, []string{"outcome"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
