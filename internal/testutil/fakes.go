// Package testutil provides scripted stand-ins for the language model and the
// entailment classifier.
package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sweetpotato0/bizplan/grounding"
	"github.com/sweetpotato0/bizplan/llm"
)

// ErrScriptExhausted is returned by ScriptedModel when it runs out of replies.
var ErrScriptExhausted = errors.New("testutil: scripted model has no more replies")

// Reply is one scripted model outcome.
type Reply struct {
	Content string
	Err     error
}

// ScriptedModel answers prompts from a fixed queue and records every prompt.
type ScriptedModel struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	// Fallback, when set, answers prompts once the queue is empty.
	Fallback func(prompt string) (string, error)
}

var _ llm.Model = (*ScriptedModel)(nil)

// NewScriptedModel queues plain text replies.
func NewScriptedModel(contents ...string) *ScriptedModel {
	m := &ScriptedModel{}
	for _, c := range contents {
		m.replies = append(m.replies, Reply{Content: c})
	}
	return m
}

// Push queues more replies.
func (m *ScriptedModel) Push(replies ...Reply) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
	return m
}

// Invoke implements llm.Model.
func (m *ScriptedModel) Invoke(ctx context.Context, prompt string) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		fallback := m.Fallback
		m.mu.Unlock()
		if fallback == nil {
			return nil, ErrScriptExhausted
		}
		content, err := fallback(prompt)
		if err != nil {
			return nil, err
		}
		return &llm.Response{Content: content}, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	m.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.Response{Content: r.Content}, nil
}

// Prompts returns the prompts received so far.
func (m *ScriptedModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls returns how many times the model was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// WordClassifier scores a premise by the share of its words that appear in the
// candidate label. It makes grounding deterministic in tests: text copied from
// the reference scores 1, invented text scores low.
type WordClassifier struct {
	mu    sync.Mutex
	calls int
	// Err, when set, is returned from every call.
	Err error
}

var _ grounding.Classifier = (*WordClassifier)(nil)

// Classify implements grounding.Classifier.
func (c *WordClassifier) Classify(ctx context.Context, premise string, labels []string, _ string) (*grounding.Classification, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}

	words := normalizedWords(premise)
	out := &grounding.Classification{Labels: labels, Scores: make([]float64, len(labels))}
	for i, label := range labels {
		vocab := map[string]bool{}
		for _, w := range normalizedWords(label) {
			vocab[w] = true
		}
		if len(words) == 0 {
			continue
		}
		hit := 0
		for _, w := range words {
			if vocab[w] {
				hit++
			}
		}
		out.Scores[i] = float64(hit) / float64(len(words))
	}
	return out, nil
}

// Calls returns how many classifications were requested.
func (c *WordClassifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func normalizedWords(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
