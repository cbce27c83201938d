package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"drive-rag-chatbot/internal/logger"
)

// Backend performs a single text-in/text-out completion call. An empty
// response with a nil error means the model produced no answer.
type Backend interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator is the contract the answering pipeline depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client wraps a Backend with bounded retry. Transient unavailability is
// retried with exponential backoff; quota exhaustion short-circuits on the
// first occurrence; anything else propagates immediately.
type Client struct {
	backend    Backend
	maxRetries int
	retryDelay time.Duration
}

// NewClient builds a retrying client with 3 attempts and a 1s initial
// backoff (doubling per attempt).
func NewClient(backend Backend) *Client {
	return &Client{
		backend:    backend,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// WithRetryPolicy overrides the retry bounds. attempts must be >= 1.
func (c *Client) WithRetryPolicy(attempts int, initialDelay time.Duration) *Client {
	if attempts >= 1 {
		c.maxRetries = attempts
	}
	if initialDelay >= 0 {
		c.retryDelay = initialDelay
	}
	return c
}

// Generate calls the backend, retrying only transient-unavailable failures.
// A successful call with an empty body returns ("", nil): callers treat that
// as "no answer", equivalent to a failed retrieval.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		text, err := c.backend.Complete(ctx, prompt)
		if err == nil {
			return strings.TrimSpace(text), nil
		}

		err = ClassifyError(err)
		if errors.Is(err, ErrQuotaExhausted) {
			// Retrying cannot help and would burn the remaining budget.
			return "", err
		}
		if !errors.Is(err, ErrUnavailable) {
			return "", err
		}

		lastErr = err
		if attempt < c.maxRetries-1 {
			logger.Warn("generation backend unavailable, retrying",
				"attempt", attempt+1, "max_attempts", c.maxRetries, "delay", delay.String())
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			delay *= 2
		}
	}

	return "", lastErr
}
