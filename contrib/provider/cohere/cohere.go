package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sweetpotato0/bizplan/llm"
)

const cohereAPIURL = "https://api.cohere.ai/v1/chat"

// Config holds Cohere provider configuration
type Config struct {
	APIKey string
	// BaseURL overrides the chat endpoint.
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns default Cohere configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:    apiKey,
		Model:     "command-r",
		MaxTokens: 2048,
	}
}

var _ llm.Model = (*Provider)(nil)

// Provider implements llm.Model for Cohere
type Provider struct {
	config *Config
	client *http.Client
}

// New creates a new Cohere provider
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "command-r"
	}
	if config.BaseURL == "" {
		config.BaseURL = cohereAPIURL
	}

	return &Provider{
		config: config,
		client: &http.Client{},
	}
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type cohereResponse struct {
	Text    string `json:"text"`
	Message string `json:"message,omitempty"`
}

// Invoke sends prompt as the chat message.
func (p *Provider) Invoke(ctx context.Context, prompt string) (*llm.Response, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("Cohere API key not configured")
	}

	reqBody, err := json.Marshal(cohereRequest{
		Model:       p.config.Model,
		Message:     prompt,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "bizplan-client")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Cohere API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp cohereResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return nil, llm.ErrEmptyResponse
	}
	return &llm.Response{Content: resp.Text}, nil
}
