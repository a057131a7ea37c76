package llm

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/folio/internal/interfaces"
)

// geminiRetryConfig controls backoff when Gemini rejects a request for
// quota reasons. The quota window resets roughly once a minute, so the
// initial backoff sits just under that.
type geminiRetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func defaultGeminiRetryConfig() geminiRetryConfig {
	return geminiRetryConfig{
		MaxRetries:        3,
		InitialBackoff:    45 * time.Second,
		MaxBackoff:        90 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// isRateLimitError reports whether err looks like a Gemini quota rejection.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// retryDelayPattern matches "Please retry in Xs" or "retryDelay:Xs" in
// Gemini error messages.
var retryDelayPattern = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// extractRetryDelay parses the API-suggested retry delay from a Gemini
// error message. Returns 0 when the message carries no delay.
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayPattern.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// backoffFor computes the wait before the given retry attempt. An
// API-suggested delay takes precedence over the configured initial
// backoff; the result is always capped at MaxBackoff.
func (c geminiRetryConfig) backoffFor(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// generateWithRetry runs generateCompletion, waiting out rate limit
// rejections up to MaxRetries times. Non-quota errors return immediately.
func (s *GeminiService) generateWithRetry(ctx context.Context, messages []interfaces.Message) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		response, err := s.generateCompletion(ctx, messages)
		if err == nil {
			return response, nil
		}
		if !isRateLimitError(err) {
			return "", err
		}

		lastErr = err
		if attempt == s.retry.MaxRetries {
			break
		}

		wait := s.retry.backoffFor(attempt, extractRetryDelay(err))
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Gemini rate limited, backing off before retry")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}

	return "", lastErr
}
