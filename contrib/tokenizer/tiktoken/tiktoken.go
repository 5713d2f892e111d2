package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates prompt sizes with a BPE encoding.
type Counter struct {
	enc *tiktoken.Tiktoken
}

type options struct {
	name string
}

// Option customizes the counter.
type Option func(*options)

// WithEncoding selects an encoding or a model name, e.g. "cl100k_base" or "gpt-4o".
func WithEncoding(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// New loads the encoding. Model names are tried before encoding names.
func New(opts ...Option) (*Counter, error) {
	cfg := &options{name: "cl100k_base"}
	for _, opt := range opts {
		opt(cfg)
	}

	enc, err := tiktoken.EncodingForModel(cfg.name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(cfg.name)
		if err != nil {
			return nil, err
		}
	}
	return &Counter{enc: enc}, nil
}

// Encode returns the token ids of text.
func (c *Counter) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (c *Counter) CountTokens(text string) int {
	return len(c.Encode(text))
}
