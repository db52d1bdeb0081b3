package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/criticat/internal/cache"
	"github.com/dshills/criticat/internal/review"
)

// ReviewError wraps any failure of one provider's review call.
type ReviewError struct {
	Provider string
	Err      error
}

func (e *ReviewError) Error() string {
	return fmt.Sprintf("review by %s failed: %v", e.Provider, e.Err)
}

func (e *ReviewError) Unwrap() error { return e.Err }

// ResponseCache stores raw structured responses keyed by review inputs.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, response string) error
}

// ReviewClient produces a FormatReview from the document pages.
type ReviewClient struct {
	provider string
	modelID  string
	model    Model
	cache    ResponseCache
	logger   *slog.Logger
}

// NewReviewClient binds a model to a provider name. cache may be nil.
func NewReviewClient(provider, modelID string, m Model, c ResponseCache, logger *slog.Logger) *ReviewClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewClient{provider: provider, modelID: modelID, model: m, cache: c, logger: logger}
}

// Review sends one request carrying every page and returns the parsed review.
// Occlusion findings below error are escalated before returning.
func (c *ReviewClient) Review(ctx context.Context, images []string) (review.FormatReview, error) {
	key := cache.BuildCacheKey(c.provider, c.modelID, images)

	content, hit := "", false
	if c.cache != nil {
		content, hit = c.cache.Get(key)
	}
	if hit {
		c.logger.Debug("review cache hit", "provider", c.provider)
	} else {
		resp, err := c.model.Generate(ctx, Request{
			SystemPrompt: review.SystemPrompt(),
			UserPrompt:   review.BuildUserPrompt(),
			Images:       images,
			JSON:         true,
		})
		if err != nil {
			return review.FormatReview{}, &ReviewError{Provider: c.provider, Err: err}
		}
		content = resp.Content
		c.logger.Info("review response received", "provider", c.provider, "tokens", resp.TokensUsed)
	}

	r, err := review.ParseReview(content)
	if err != nil {
		return review.FormatReview{}, &ReviewError{Provider: c.provider, Err: err}
	}

	if !hit && c.cache != nil {
		if err := c.cache.Put(key, content); err != nil {
			c.logger.Warn("caching review response", "provider", c.provider, "error", err)
		}
	}

	r, escalated := review.EnforceOcclusionPolicy(r)
	if escalated > 0 {
		c.logger.Warn("escalated occlusion findings to error", "provider", c.provider, "count", escalated)
	}
	return r, nil
}
