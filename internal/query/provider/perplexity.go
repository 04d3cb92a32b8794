package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solmint/relay/internal/tracking/metrics"
)

const defaultPerplexityURL = "https://api.perplexity.ai/chat/completions"

// Perplexity answers prompts through the Perplexity chat completions API.
type Perplexity struct {
	name       string
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	monitor    *Monitor
}

// NewPerplexity creates a Perplexity provider.
func NewPerplexity(name, endpoint, apiKey, model string, dailyQuota int) *Perplexity {
	if endpoint == "" {
		endpoint = defaultPerplexityURL
	}
	if model == "" {
		model = "sonar"
	}
	return &Perplexity{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		monitor: NewMonitor(dailyQuota),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete answers the prompt through the chat completions endpoint.
func (p *Perplexity) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	metrics.ProviderCallsTotal.WithLabelValues(p.name).Inc()

	if status := p.monitor.CheckStatus(); status == StatusThrottled || status == StatusBlocked {
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "throttled").Inc()
		return "", fmt.Errorf("provider %s is %s", p.name, status)
	}

	messages := make([]chatMessage, 0, 2)
	system := opts.System
	if opts.Concise {
		if system != "" {
			system += " "
		}
		system += "Answer in a single short sentence. Do not list sources."
	}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{Model: p.model, Messages: messages}
	if opts.Concise {
		req.MaxTokens = 80
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "network").Inc()
		return "", fmt.Errorf("provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		p.monitor.RecordThrottle(resp.StatusCode)
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "throttled").Inc()
		return "", fmt.Errorf("provider throttled (http %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "http").Inc()
		if p.monitor.DetectThrottlePattern(string(body)) {
			p.monitor.RecordThrottle(http.StatusTooManyRequests)
			return "", fmt.Errorf("throttle detected in response (http %d)", resp.StatusCode)
		}
		return "", fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "parse").Inc()
		return "", fmt.Errorf("parse response: %w", err)
	}

	if chatResp.Error != nil {
		metrics.ProviderErrorsTotal.WithLabelValues(p.name, "api").Inc()
		if p.monitor.DetectThrottlePattern(chatResp.Error.Message) {
			p.monitor.RecordThrottle(http.StatusTooManyRequests)
		}
		return "", fmt.Errorf("api error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	latency := time.Since(start)
	p.monitor.RecordCall(latency)
	metrics.ProviderLatency.WithLabelValues(p.name).Observe(latency.Seconds())

	return chatResp.Choices[0].Message.Content, nil
}

// Name returns the provider's name.
func (p *Perplexity) Name() string {
	return p.name
}

// Available reports whether the provider can take calls.
func (p *Perplexity) Available() bool {
	status := p.monitor.CheckStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Health returns a stats snapshot.
func (p *Perplexity) Health() HealthStatus {
	return p.monitor.Stats(p.name)
}

// Close cleans up resources.
func (p *Perplexity) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
