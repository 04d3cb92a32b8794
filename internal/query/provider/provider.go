package provider

import (
	"context"
	"errors"
	"time"
)

// ErrNoProviders is returned when every configured provider failed or
// none are configured.
var ErrNoProviders = errors.New("no usable providers")

// Options tunes a single completion call.
type Options struct {
	// Concise asks for a short direct answer (single fact queries).
	Concise bool

	// System, if set, prefixes the prompt with grounding instructions.
	System string
}

// Provider answers a free-text prompt through an external LLM API.
type Provider interface {
	// Name returns the provider's configured name.
	Name() string

	// Complete answers the prompt.
	Complete(ctx context.Context, prompt string, opts Options) (string, error)

	// Available reports whether the provider is currently usable
	// (not throttled, blocked, or over quota).
	Available() bool

	// Close releases any held resources.
	Close() error
}

// HealthStatus summarizes one provider's recent behavior, surfaced on
// the health endpoint.
type HealthStatus struct {
	Name           string        `json:"name"`
	Status         string        `json:"status"`
	AverageLatency time.Duration `json:"averageLatency"`
	CallsToday     int           `json:"callsToday"`
	DailyQuota     int           `json:"dailyQuota"`
	ThrottleCount  int           `json:"throttleCount"`
}
