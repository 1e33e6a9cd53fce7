package tabletalk

import (
	"context"
	"fmt"
)

// Provider is a strategy pattern interface for LLM providers. Invoke submits
// the request and blocks until the complete assistant message is available.
type Provider interface {
	Invoke(ctx context.Context, req Request) (AssistantMessage, error)
}

// Request carries model selection and generation parameters.
// The provider uses its own defaults when fields are zero/nil.
type Request struct {
	Model         string // model ID, provider-specific; empty = provider default
	SystemPrompt  string
	Messages      []Message
	Tools         []Tool
	MaxTokens     int      // 0 = provider default
	Temperature   *float64 // nil = provider default
	TopK          *int
	TopP          *float64
	StopSequences []string
}

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 1 {
			return fmt.Errorf("temperature must be in [0, 1], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if r.TopP != nil {
		if *r.TopP < 0 || *r.TopP > 1 {
			return fmt.Errorf("top_p must be in [0, 1], got %g: %w", *r.TopP, ErrValidation)
		}
	}
	if r.TopK != nil && *r.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d: %w", *r.TopK, ErrValidation)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	return nil
}
