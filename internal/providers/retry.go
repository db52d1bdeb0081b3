package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/criticat/internal/redact"
)

type rateLimitError struct {
	retryable bool
}

func (e *rateLimitError) Error() string { return "rate limited" }

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.statusCode, e.body)
}

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// classifyStatus maps an HTTP status to the retry error types.
// Response bodies are scrubbed of credentials before they are kept.
func classifyStatus(status int, body string) error {
	body = redact.Secrets(body)
	switch {
	case status == 429:
		return &rateLimitError{retryable: true}
	case status == 401 || status == 403:
		return &authError{message: body}
	case status >= 500:
		return &serverError{statusCode: status, body: body}
	case status != 200:
		return fmt.Errorf("API error (status %d): %s", status, body)
	}
	return nil
}

func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Only quota rejections are retried.
		var rl *rateLimitError
		if !errors.As(lastErr, &rl) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * backoffUnit
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

// backoffUnit is shortened in tests.
var backoffUnit = time.Second
