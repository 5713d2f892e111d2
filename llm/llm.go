// Package llm defines the request/response contract every language model
// provider implements, plus wrappers for tracing, metrics and rate limiting.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without usable text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Response is the result of a single model invocation.
type Response struct {
	Content string
}

// Model is a stateless prompt-in, text-out language model. Callers supply the
// full context on every call.
type Model interface {
	Invoke(ctx context.Context, prompt string) (*Response, error)
}

// Func adapts a plain function to Model.
type Func func(ctx context.Context, prompt string) (*Response, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, prompt string) (*Response, error) {
	return f(ctx, prompt)
}

// Text invokes the model and returns the content, treating an empty answer as
// ErrEmptyResponse.
func Text(ctx context.Context, m Model, prompt string) (string, error) {
	resp, err := m.Invoke(ctx, prompt)
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}
