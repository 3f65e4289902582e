// Package llm provides LLM provider interfaces and implementations.
package llm

import (
	"context"
	"time"

	"github.com/jobtalk/jobtalk/errors"
)

// Message represents an LLM message.
type Message struct {
	Role    string `json:"role"` // user, assistant, system
	Content string `json:"content"`
}

// ChatRequest represents a chat request to the LLM.
type ChatRequest struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"` // 0 means provider default
}

// ChatResponse represents a chat response from the LLM.
type ChatResponse struct {
	Content      string `json:"content"`
	StopReason   string `json:"stop_reason"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Model        string `json:"model"`
}

// Provider is the interface for LLM providers.
type Provider interface {
	// Chat sends a chat request and returns the response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// RetryConfig holds retry settings for LLM calls. The zero value means a
// single attempt; callers that want automatic retries opt in.
type RetryConfig struct {
	MaxRetries  int           `json:"max_retries"`
	MaxBackoff  time.Duration `json:"max_backoff"`  // default 60s
	InitBackoff time.Duration `json:"init_backoff"` // default 1s
}

// ProviderConfig holds configuration for building a provider.
type ProviderConfig struct {
	Provider  string      `json:"provider"` // openai, anthropic, google
	Model     string      `json:"model"`
	APIKey    string      `json:"api_key"`
	MaxTokens int         `json:"max_tokens"`
	BaseURL   string      `json:"base_url"` // custom API endpoint, optional
	Retry     RetryConfig `json:"retry"`
}

// Validate validates the configuration.
func (c *ProviderConfig) Validate() error {
	if c.Provider == "" {
		return errors.InvalidInput("provider is required")
	}
	if c.Model == "" {
		return errors.InvalidInput("model is required")
	}
	if c.APIKey == "" {
		return errors.InvalidInput("api key is required")
	}
	if c.MaxTokens == 0 {
		return errors.InvalidInput("max_tokens is required")
	}
	return nil
}

// --- Mock Provider for Testing ---

// MockProvider is a mock LLM provider for testing.
type MockProvider struct {
	response    string
	stopReason  string
	lastRequest *ChatRequest
	err         error
	callCount   int

	// ChatFunc can be overridden for custom behavior
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider creates a new mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		stopReason: "end_turn",
	}
}

// SetResponse sets the response content.
func (p *MockProvider) SetResponse(content string) {
	p.response = content
}

// SetError sets an error to return.
func (p *MockProvider) SetError(err error) {
	p.err = err
}

// LastRequest returns the last request.
func (p *MockProvider) LastRequest() *ChatRequest {
	return p.lastRequest
}

// CallCount returns the number of Chat calls made.
func (p *MockProvider) CallCount() int {
	return p.callCount
}

// Chat implements the Provider interface.
func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	p.callCount++
	p.lastRequest = &req

	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &ChatResponse{
		Content:    p.response,
		StopReason: p.stopReason,
	}, nil
}
