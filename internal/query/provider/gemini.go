package provider

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/solmint/relay/internal/tracking/metrics"
)

// Gemini answers prompts through Google's Gemini API.
type Gemini struct {
	name    string
	client  *genai.Client
	model   string
	monitor *Monitor
}

// NewGemini creates a Gemini provider.
func NewGemini(ctx context.Context, name, apiKey, model string, dailyQuota int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{
		name:    name,
		client:  client,
		model:   model,
		monitor: NewMonitor(dailyQuota),
	}, nil
}

// Complete answers the prompt.
func (g *Gemini) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	metrics.ProviderCallsTotal.WithLabelValues(g.name).Inc()

	if status := g.monitor.CheckStatus(); status == StatusThrottled || status == StatusBlocked {
		metrics.ProviderErrorsTotal.WithLabelValues(g.name, "throttled").Inc()
		return "", fmt.Errorf("provider %s is %s", g.name, status)
	}

	text := prompt
	if opts.System != "" {
		text = opts.System + "\n\n" + text
	}
	if opts.Concise {
		text = "Answer in a single short sentence. Do not list sources.\n\n" + text
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(g.name, "api").Inc()
		if g.monitor.DetectThrottlePattern(err.Error()) {
			g.monitor.RecordThrottle(429)
		}
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	answer := result.Text()
	if answer == "" {
		return "", fmt.Errorf("empty completion")
	}

	latency := time.Since(start)
	g.monitor.RecordCall(latency)
	metrics.ProviderLatency.WithLabelValues(g.name).Observe(latency.Seconds())

	return answer, nil
}

// Name returns the provider's name.
func (g *Gemini) Name() string {
	return g.name
}

// Available reports whether the provider can take calls.
func (g *Gemini) Available() bool {
	status := g.monitor.CheckStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Health returns a stats snapshot.
func (g *Gemini) Health() HealthStatus {
	return g.monitor.Stats(g.name)
}

// Close releases provider resources. The genai client holds no
// connections that need explicit teardown.
func (g *Gemini) Close() error {
	return nil
}
