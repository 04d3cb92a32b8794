package provider

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	s := strings.ToLower(err.Error())

	// Fatal (request issues a different provider cannot fix)
	if strings.Contains(s, "invalid request") || strings.Contains(s, "400") ||
		strings.Contains(s, "context canceled") || strings.Contains(s, "context deadline") {
		return ActionFatal
	}

	// Failover (provider specific issues)
	if strings.Contains(s, "429") || strings.Contains(s, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(s, "forbidden") ||
		strings.Contains(s, "quota") || strings.Contains(s, "throttled") ||
		strings.Contains(s, "unauthorized") || strings.Contains(s, "401") ||
		strings.Contains(s, "rate limit") {
		return ActionFailover
	}

	// Default to Retry (network, 5xx, etc)
	return ActionRetry
}

// CompleteWithRetry executes a completion with exponential backoff.
func CompleteWithRetry(
	ctx context.Context,
	p Provider,
	prompt string,
	opts Options,
	config RetryConfig,
) (string, error) {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		result, err := p.Complete(ctx, prompt, opts)
		if err == nil {
			return result, nil
		}

		lastErr = err

		action := ClassifyError(err)
		if action == ActionFatal {
			return "", err // Stop immediately, do not retry
		}
		if action == ActionFailover {
			return "", err // Return error immediately to try next provider
		}

		// ActionRetry: continue loop
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// Chain is an ordered list of providers tried with failover.
type Chain struct {
	providers []Provider
	config    RetryConfig
}

// NewChain creates a failover chain over the given providers.
func NewChain(providers []Provider, config RetryConfig) *Chain {
	return &Chain{providers: providers, config: config}
}

// Complete tries each available provider in order with retry.
func (c *Chain) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if len(c.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}

		result, err := CompleteWithRetry(ctx, p, prompt, opts, c.config)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if ClassifyError(err) == ActionFatal {
			return "", fmt.Errorf("fatal error from provider %s: %w", p.Name(), err)
		}
	}

	if lastErr == nil {
		return "", ErrNoProviders
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// Providers returns the chain members, for health reporting.
func (c *Chain) Providers() []Provider {
	return c.providers
}

// Close closes every provider in the chain.
func (c *Chain) Close() error {
	var firstErr error
	for _, p := range c.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
