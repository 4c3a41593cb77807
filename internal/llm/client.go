// Package llm provides LLM client abstraction for multiple providers.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/scoutsec/cmmc-scout/pkg/config"
	"github.com/scoutsec/cmmc-scout/pkg/logger"
)

// Client is the interface for LLM interactions.
type Client interface {
	// Complete sends a completion request to the LLM.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string
}

// CompletionRequest represents a request to the LLM.
type CompletionRequest struct {
	SystemPrompt  string    `json:"system_prompt"`
	Messages      []Message `json:"messages"`
	MaxTokens     int       `json:"max_tokens,omitempty"`
	Temperature   float64   `json:"temperature,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
}

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// CompletionResponse represents a response from the LLM.
type CompletionResponse struct {
	Content      string        `json:"content"`
	Usage        Usage         `json:"usage"`
	StopReason   string        `json:"stop_reason"`
	FinishReason string        `json:"finish_reason"`
	Latency      time.Duration `json:"latency"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// NewClient creates a new LLM client based on configuration.
func NewClient(cfg config.LLMConfig, log *logger.Logger) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg, log)
	case "openai":
		return newOpenAIClient(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: anthropic, openai)", cfg.Provider)
	}
}
