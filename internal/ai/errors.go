package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

// Coarse upstream error categories. Everything else propagates as-is.
var (
	// ErrQuotaExhausted marks quota/rate exhaustion (HTTP 429,
	// RESOURCE_EXHAUSTED). Never retried: waiting out the quota window or
	// rotating credentials is the only fix.
	ErrQuotaExhausted = errors.New("gemini api quota exceeded")

	// ErrUnavailable marks transient backend unavailability (HTTP 503,
	// UNAVAILABLE, overload). Safe to retry with backoff.
	ErrUnavailable = errors.New("gemini api temporarily unavailable")
)

// ClassifyError maps a backend error onto the coarse taxonomy, wrapping the
// original for diagnostics. Unrecognized errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExhausted) || errors.Is(err, ErrUnavailable) {
		return err
	}

	// An open circuit breaker is a local transient condition.
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
		case 503:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	// The genai SDK surfaces gRPC status text inside the error string.
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "Quota exceeded") {
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
	}
	if strings.Contains(msg, "503") || strings.Contains(msg, "UNAVAILABLE") || strings.Contains(strings.ToLower(msg), "overloaded") {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return err
}
