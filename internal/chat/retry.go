package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns sensible defaults for LLM API calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient error substrings by category.
// Matched case-insensitively against err.Error(). String matching is
// used because Genkit and provider SDKs do not expose typed errors for
// transient failures.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "unavailable"},
	{"connection reset", "timeout", "temporary"},
}

func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// generateWithRetry runs genkit.Generate with exponential backoff on
// transient provider failures.
func (s *Service) generateWithRetry(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
	var lastErr error
	delay := s.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying model call",
				"attempt", attempt,
				"delay", delay,
				"elapsed", time.Since(start),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.retry.MaxInterval {
				delay = s.retry.MaxInterval
			}
		}

		resp, err := genkit.Generate(ctx, s.g, opts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryableError(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("model call failed after %d retries: %w", s.retry.MaxRetries, lastErr)
}
