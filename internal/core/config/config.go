package config

import (
	"time"

	redisclient "github.com/solmint/relay/internal/infra/redis"
	"github.com/solmint/relay/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
	Tracking  TrackingConfig     `yaml:"tracking"`
	Query     QueryConfig        `yaml:"query"`
	Chaindata ChaindataConfig    `yaml:"chaindata"`
	Auth      AuthConfig         `yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int     `yaml:"port"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second per client
	RateBurst int     `yaml:"rate_burst"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TrackingConfig holds message lifecycle tracking settings.
type TrackingConfig struct {
	// Source selects the status source: "relay" (store-backed) or
	// "simulated" (ticker-driven demo source).
	Source string `yaml:"source"`

	// TickInterval is the simulated source's advance interval.
	TickInterval time.Duration `yaml:"tick_interval"`

	// StaleAfter is how long a message may go without a status update
	// before the reaper fails it. 0 disables the reaper.
	StaleAfter time.Duration `yaml:"stale_after"`

	// ReapInterval is how often the reaper scans for stale messages.
	ReapInterval time.Duration `yaml:"reap_interval"`
}

// QueryConfig holds query dispatcher settings.
type QueryConfig struct {
	// Mode selects the answer path: "live" (external LLM providers) or
	// "demo" (templated local responses). Demo is an explicit mode, not
	// a fallback on provider failure.
	Mode string `yaml:"mode"`

	// CacheTTL is the default response cache TTL. Categories may
	// override it via TTLs.
	CacheTTL  time.Duration            `yaml:"cache_ttl"`
	TTLs      map[string]time.Duration `yaml:"ttls"`
	Providers []ProviderConfig         `yaml:"providers"`
}

// ProviderConfig holds settings for one LLM provider.
type ProviderConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"` // perplexity, gemini, mock
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	DailyQuota int    `yaml:"daily_quota"` // 0 = unlimited
}

// ChaindataConfig holds on-chain data source settings.
type ChaindataConfig struct {
	// Mode selects the data source: "live" (substreams binary) or
	// "synthetic" (deterministic generator).
	Mode    string        `yaml:"mode"`
	Binary  string        `yaml:"binary"`
	Package string        `yaml:"package"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	// AdminTokens may call admin endpoints (status PATCH).
	AdminTokens []string `yaml:"admin_tokens"`
	// ClientTokens authenticate WebSocket sessions. An empty list
	// allows unauthenticated sessions (demo mode).
	ClientTokens []string `yaml:"client_tokens"`
}
