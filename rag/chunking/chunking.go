package chunking

import (
	"strings"
	"unicode"
)

// Chunker splits text into bounded, sentence-aligned segments.
type Chunker interface {
	Split(text string) []string
}

type Options struct {
	// MaxTokens is the word budget of a chunk.
	MaxTokens int
	// Overlap is the number of words repeated after a forced split.
	Overlap int
	// Tolerance divides MaxTokens to get the slack allowed for a single
	// oversized sentence before it is force split.
	Tolerance float64
}

// SentenceChunker packs whole sentences into chunks of at most MaxTokens words.
type SentenceChunker struct {
	max       int
	overlap   int
	tolerance float64
}

// Option customizes the sentence chunker.
type Option func(*Options)

// WithMaxTokens overrides the default chunk size (words).
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxTokens = n
		}
	}
}

// WithOverlap configures how many words a forced split repeats.
func WithOverlap(overlap int) Option {
	return func(o *Options) {
		if overlap >= 0 {
			o.Overlap = overlap
		}
	}
}

// WithTolerance sets the divisor used for the oversized sentence band.
func WithTolerance(divisor float64) Option {
	return func(o *Options) {
		if divisor > 0 {
			o.Tolerance = divisor
		}
	}
}

// NewSentenceChunker constructs a chunker sized for answer verification
// (80 words, 8 overlap).
func NewSentenceChunker(opts ...Option) *SentenceChunker {
	cfg := &Options{
		MaxTokens: 80,
		Overlap:   8,
		Tolerance: 2.1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Overlap >= cfg.MaxTokens {
		cfg.Overlap = cfg.MaxTokens - 1
	}
	return &SentenceChunker{
		max:       cfg.MaxTokens,
		overlap:   cfg.Overlap,
		tolerance: cfg.Tolerance,
	}
}

// Split chunks text. Empty input yields no chunks.
func (c *SentenceChunker) Split(text string) []string {
	var (
		chunks  []string
		current []string
	)
	limit := float64(c.max) + float64(c.max)/c.tolerance

	for _, sentence := range Sentences(text) {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}
		if len(current)+len(words) <= c.max {
			current = append(current, words...)
			continue
		}

		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = append([]string(nil), words...)

		for len(current) > c.max && float64(len(current)) > limit {
			chunks = append(chunks, strings.Join(current[:c.max], " "))
			current = current[c.max-c.overlap:]
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Split chunks text with the given window using the default tolerance.
func Split(text string, maxTokens, overlap int) []string {
	return NewSentenceChunker(WithMaxTokens(maxTokens), WithOverlap(overlap)).Split(text)
}

// Sentences breaks text at terminal punctuation followed by whitespace and at
// blank lines. Closing quotes and brackets stay with their sentence.
func Sentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var (
		out   []string
		start int
	)
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '.' || r == '!' || r == '?':
			j := i + 1
			for j < len(runes) && isTrailer(runes[j]) {
				j++
			}
			if j == len(runes) || unicode.IsSpace(runes[j]) {
				emit(j)
				i = j - 1
			}
		case r == '\n':
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && runes[j] == '\n' {
				emit(i)
			}
		}
	}
	emit(len(runes))
	return out
}

func isTrailer(r rune) bool {
	switch r {
	case '.', '!', '?', '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}
