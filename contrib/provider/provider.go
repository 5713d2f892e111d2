// Package provider builds the configured language model client.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sweetpotato0/bizplan/config"
	"github.com/sweetpotato0/bizplan/contrib/provider/claude"
	"github.com/sweetpotato0/bizplan/contrib/provider/cohere"
	"github.com/sweetpotato0/bizplan/contrib/provider/gemini"
	"github.com/sweetpotato0/bizplan/contrib/provider/groq"
	"github.com/sweetpotato0/bizplan/contrib/provider/ollama"
	"github.com/sweetpotato0/bizplan/contrib/provider/openai"
	"github.com/sweetpotato0/bizplan/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/bizplan/llm"
)

// New returns an instrumented, rate limited model for cfg.
func New(ctx context.Context, cfg config.LLM, logger *slog.Logger) (llm.Model, error) {
	base, err := newBase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []llm.InstrumentOption{llm.WithLogger(logger)}
	if cfg.TokenEncoding != "" {
		counter, err := tiktoken.New(tiktoken.WithEncoding(cfg.TokenEncoding))
		if err != nil {
			if logger != nil {
				logger.Warn("token accounting disabled", "encoding", cfg.TokenEncoding, "error", err)
			}
		} else {
			opts = append(opts, llm.WithTokenCounter(counter))
		}
	}

	return llm.Limit(llm.Instrument(base, cfg.Provider, opts...), cfg.RatePerSecond, cfg.Burst), nil
}

func newBase(ctx context.Context, cfg config.LLM) (llm.Model, error) {
	switch cfg.Provider {
	case config.ProviderOllama, "":
		return ollama.New(&ollama.Config{
			ServerURL:   cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case config.ProviderOpenAI:
		return openai.New(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderClaude:
		return claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderGemini:
		return gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
	case config.ProviderGroq:
		return groq.New(&groq.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), nil
	case config.ProviderCohere:
		return cohere.New(&cohere.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
