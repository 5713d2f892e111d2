package ollama

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/bizplan/llm"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Config holds Ollama provider configuration
type Config struct {
	ServerURL   string
	Model       string
	Temperature float64
}

// DefaultConfig returns a local llama3.1 at temperature zero.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "http://localhost:11434",
		Model:     "llama3.1",
	}
}

// Provider implements llm.Model on a local Ollama server.
type Provider struct {
	config *Config
	client *ollama.LLM
}

// New creates an Ollama provider.
func New(config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "llama3.1"
	}

	opts := []ollama.Option{ollama.WithModel(config.Model)}
	if config.ServerURL != "" {
		opts = append(opts, ollama.WithServerURL(config.ServerURL))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &Provider{config: config, client: client}, nil
}

// Invoke runs a single-prompt completion.
func (p *Provider) Invoke(ctx context.Context, prompt string) (*llm.Response, error) {
	content, err := llms.GenerateFromSinglePrompt(ctx, p.client, prompt,
		llms.WithTemperature(p.config.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("Ollama API error: %w", err)
	}
	return &llm.Response{Content: content}, nil
}
