// Package ai wraps the chat-completion providers behind one request/response contract.
package ai

import (
	"context"
	"fmt"
	"time"

	"persona-stack/shared/config"

	"go.uber.org/zap"
)

// Client is the contract every pipeline stage uses to reach a model.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request is one system+user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// JSON asks the provider for a JSON object response when it supports it.
	JSON    bool
	Timeout time.Duration
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewClient builds the provider selected in cfg.
func NewClient(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg, logger)
	case "gemini":
		return NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
