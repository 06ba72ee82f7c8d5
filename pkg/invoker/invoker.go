// Package invoker sends rendered prompts to a hosted model API and returns
// the raw text completion. It is the harness's only network-performing
// component. Responses are never cached across test cases: each invocation is
// independent so one case's completion cannot leak into another's.
//
// API failures are classified into two camps. Transient errors (rate limits,
// server errors, timeouts) are retried with bounded exponential backoff.
// Fatal errors (bad credentials, unknown model) surface immediately and abort
// the run.
package invoker

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultMaxTokens bounds the completion length per invocation.
const DefaultMaxTokens = 2048

// Request is one prompt to complete.
type Request struct {
	System string // system prompt, optionally carrying skill instructions
	Prompt string // the test case's user prompt
}

// Response is the raw completion plus token accounting.
type Response struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Provider completes prompts against one hosted model API.
type Provider interface {
	// Complete sends the request and returns the model's text completion.
	Complete(ctx context.Context, req Request) (Response, error)
	// Model returns the model identifier this provider invokes.
	Model() string
}

// Config carries everything the invoker needs, constructed once at startup.
// Credentials are resolved here and passed down explicitly; nothing below
// this point reads the environment.
type Config struct {
	Provider  string // "anthropic" or "openai"; inferred from Model when empty
	Model     string
	MaxTokens int
	APIKey    string
	Retry     RetryConfig
}

// New builds the provider selected by the config. A missing credential is a
// fatal configuration error, reported before any network call is attempted.
func New(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	provider := cfg.Provider
	if provider == "" {
		provider = InferProvider(cfg.Model)
	}

	switch provider {
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, NewFatalError("ANTHROPIC_API_KEY is not set", nil)
		}
		return newAnthropicProvider(cfg), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, NewFatalError("OPENAI_API_KEY is not set", nil)
		}
		return newOpenAIProvider(cfg), nil
	default:
		return nil, errors.Errorf("unsupported provider %q", provider)
	}
}

// InferProvider picks the provider from the model identifier prefix.
func InferProvider(model string) string {
	lower := strings.ToLower(model)
	if strings.HasPrefix(lower, "gpt-") || strings.HasPrefix(lower, "o1") || strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4") {
		return "openai"
	}
	return "anthropic"
}
