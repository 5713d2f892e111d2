package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/bizplan/grounding"
)

const (
	defaultEndpoint = "https://api-inference.huggingface.co/models"
	defaultModel    = "facebook/bart-large-mnli"
)

// Client calls a zero-shot classification pipeline over HTTP, e.g. the
// HuggingFace inference API or a self-hosted text-embeddings-inference server.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

var _ grounding.Classifier = (*Client)(nil)

// Option customises the client.
type Option func(*Client)

// WithModel overrides the default NLI model (facebook/bart-large-mnli).
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithEndpoint overrides the API base URL. The model name is appended.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithHTTPClient swaps the HTTP client (useful for timeouts or proxies).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// New creates a zero-shot classification client.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters classifyParameters `json:"parameters"`
	Options    classifyOptions    `json:"options"`
}

type classifyParameters struct {
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template,omitempty"`
	MultiLabel         bool     `json:"multi_label"`
}

type classifyOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classify implements grounding.Classifier. Scores are returned in the order
// of labels regardless of how the server sorts them.
func (c *Client) Classify(ctx context.Context, premise string, labels []string, hypothesisTemplate string) (*grounding.Classification, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("zero-shot classify: no candidate labels")
	}

	body, err := json.Marshal(classifyRequest{
		Inputs: premise,
		Parameters: classifyParameters{
			CandidateLabels:    labels,
			HypothesisTemplate: hypothesisTemplate,
		},
		Options: classifyOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+c.model, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zero-shot classify request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("zero-shot classify failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return nil, err
	}

	out := &grounding.Classification{Labels: labels, Scores: make([]float64, len(labels))}
	for i, label := range labels {
		score, ok := scores[label]
		if !ok {
			return nil, fmt.Errorf("zero-shot classify: no score for label %q", label)
		}
		out.Scores[i] = score
	}
	return out, nil
}

// decodeScores accepts both the classic {"labels": [...], "scores": [...]}
// body and the newer [{"label": ..., "score": ...}] list.
func decodeScores(raw []byte) (map[string]float64, error) {
	var classic grounding.Classification
	if err := json.Unmarshal(raw, &classic); err == nil && len(classic.Labels) > 0 {
		if len(classic.Labels) != len(classic.Scores) {
			return nil, fmt.Errorf("zero-shot classify: %d labels but %d scores", len(classic.Labels), len(classic.Scores))
		}
		out := make(map[string]float64, len(classic.Labels))
		for i, l := range classic.Labels {
			out[l] = classic.Scores[i]
		}
		return out, nil
	}

	var list []labelScore
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	out := make(map[string]float64, len(list))
	for _, ls := range list {
		out[ls.Label] = ls.Score
	}
	return out, nil
}
