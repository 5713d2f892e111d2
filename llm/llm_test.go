package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wordCounter struct{ calls int }

func (w *wordCounter) CountTokens(text string) int {
	w.calls++
	return len(text)
}

func TestTextRejectsEmptyContent(t *testing.T) {
	m := Func(func(ctx context.Context, prompt string) (*Response, error) {
		return &Response{}, nil
	})
	_, err := Text(context.Background(), m, "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestInstrumentedPassesThrough(t *testing.T) {
	counter := &wordCounter{}
	m := Instrument(Func(func(ctx context.Context, prompt string) (*Response, error) {
		return &Response{Content: "echo: " + prompt}, nil
	}), "fake", WithTokenCounter(counter))

	out, err := Text(context.Background(), m, "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
	assert.Equal(t, 1, counter.calls)
}

func TestInstrumentedPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	m := Instrument(Func(func(ctx context.Context, prompt string) (*Response, error) {
		return nil, boom
	}), "fake")

	_, err := m.Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestInstrumentedNilResponse(t *testing.T) {
	m := Instrument(Func(func(ctx context.Context, prompt string) (*Response, error) {
		return nil, nil
	}), "fake")

	_, err := m.Invoke(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestLimitDisabled(t *testing.T) {
	base := Func(func(ctx context.Context, prompt string) (*Response, error) {
		return &Response{Content: "ok"}, nil
	})
	_, limited := Limit(base, 0, 0).(*Limited)
	assert.False(t, limited)
}

func TestLimitHonoursContext(t *testing.T) {
	m := Limit(Func(func(ctx context.Context, prompt string) (*Response, error) {
		return &Response{Content: "ok"}, nil
	}), 0.001, 1)

	_, err := m.Invoke(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Invoke(ctx, "second")
	assert.Error(t, err)
}
