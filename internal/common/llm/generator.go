// Package llm gives the scoring agent and the policy assistant one way to
// call a chat model regardless of the provider behind it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hris-cloud/internal/common/config"
	"hris-cloud/internal/common/logger"
)

// Generator produces a completion for a system instruction and a user prompt.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrEmptyResponse is returned when the provider answers with no text.
var ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")

// after is swapped in tests to skip retry backoff.
var after = time.After

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg config.ScoringConfig, log logger.Logger) (Generator, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.MaxRetries, log)
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func backoff(attempt int) time.Duration {
	delay := time.Duration(1<<attempt) * 500 * time.Millisecond
	if delay > 8*time.Second {
		delay = 8 * time.Second
	}
	return delay
}
