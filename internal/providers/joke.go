package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/criticat/internal/review"
)

// JokeGenerationError records a failed joke call. It is logged, never returned.
type JokeGenerationError struct {
	Provider string
	Err      error
}

func (e *JokeGenerationError) Error() string {
	return fmt.Sprintf("joke by %s failed: %v", e.Provider, e.Err)
}

func (e *JokeGenerationError) Unwrap() error { return e.Err }

// JokeClient produces a short remark about a review.
type JokeClient struct {
	provider string
	model    Model
	logger   *slog.Logger
}

// NewJokeClient binds a model to a provider name.
func NewJokeClient(provider string, m Model, logger *slog.Logger) *JokeClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &JokeClient{provider: provider, model: m, logger: logger}
}

// Joke never fails: any upstream error yields review.FallbackJoke.
func (c *JokeClient) Joke(ctx context.Context, r review.FormatReview) string {
	resp, err := c.model.Generate(ctx, Request{
		SystemPrompt: review.JokeSystemPrompt(),
		UserPrompt:   review.BuildJokePrompt(r.IssueCount()),
		MaxTokens:    256,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = errors.New("empty joke")
	}
	if err != nil {
		c.logger.Error("generating joke", "error", &JokeGenerationError{Provider: c.provider, Err: err})
		return review.FallbackJoke
	}
	joke := strings.TrimSpace(resp.Content)
	c.logger.Info("generated joke", "provider", c.provider, "joke", joke)
	return joke
}
