package provider

import (
	"strings"
	"sync"
	"time"
)

// Status represents the health state of a provider.
type Status int

const (
	StatusHealthy   Status = iota // Provider is working normally
	StatusDegraded                // Provider is slow but working
	StatusThrottled               // Provider is rate limiting
	StatusBlocked                 // Provider has blocked this client
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	}
	return "unknown"
}

// Monitor tracks one provider's latency, throttling, and daily usage.
type Monitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	throttle429Count   int
	throttle403Count   int
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	callTimestamps []time.Time
	dailyQuota     int // 0 = unlimited

	slowResponseThreshold time.Duration
}

var throttlePatterns = []string{
	"rate limit exceeded",
	"too many requests",
	"quota exceeded",
	"insufficient_quota",
	"resource has been exhausted",
}

// NewMonitor creates a monitor. dailyQuota 0 means unlimited.
func NewMonitor(dailyQuota int) *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		dailyQuota:            dailyQuota,
		slowResponseThreshold: 8 * time.Second,
	}
}

// RecordCall records a successful call with its latency.
func (m *Monitor) RecordCall(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.callTimestamps = append(m.callTimestamps, now)

	cutoff := now.Add(-24 * time.Hour)
	filtered := m.callTimestamps[:0]
	for _, t := range m.callTimestamps {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	m.callTimestamps = filtered
}

// RecordThrottle records a rate limiting or blocking response.
func (m *Monitor) RecordThrottle(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastThrottleTime = time.Now()

	switch statusCode {
	case 429:
		m.throttle429Count++
		m.retryAfterDuration = time.Minute
	case 403:
		m.throttle403Count++
		m.retryAfterDuration = 10 * time.Minute
	}
}

// DetectThrottlePattern checks if a provider message signals throttling.
func (m *Monitor) DetectThrottlePattern(message string) bool {
	lowerMsg := strings.ToLower(message)
	for _, pattern := range throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// CheckStatus returns the provider's current status.
func (m *Monitor) CheckStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.throttle403Count > 0 && time.Since(m.lastThrottleTime) < m.retryAfterDuration {
		return StatusBlocked
	}
	if m.throttle429Count > 0 && time.Since(m.lastThrottleTime) < m.retryAfterDuration {
		return StatusThrottled
	}

	if m.dailyQuota > 0 && len(m.callTimestamps) >= m.dailyQuota {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 {
		var total time.Duration
		for _, lat := range m.recentLatencies {
			total += lat
		}
		if total/time.Duration(len(m.recentLatencies)) > m.slowResponseThreshold {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// AverageLatency returns the average latency of recent calls.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns a health snapshot for the health endpoint.
func (m *Monitor) Stats(name string) HealthStatus {
	status := m.CheckStatus()
	avg := m.AverageLatency()

	m.mu.RLock()
	defer m.mu.RUnlock()

	return HealthStatus{
		Name:           name,
		Status:         status.String(),
		AverageLatency: avg,
		CallsToday:     len(m.callTimestamps),
		DailyQuota:     m.dailyQuota,
		ThrottleCount:  m.throttle429Count + m.throttle403Count,
	}
}
