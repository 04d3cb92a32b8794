package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 10
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 20
	}

	if cfg.Tracking.Source == "" {
		cfg.Tracking.Source = "simulated"
	}
	if cfg.Tracking.TickInterval == 0 {
		cfg.Tracking.TickInterval = 3 * time.Second
	}
	if cfg.Tracking.ReapInterval == 0 {
		cfg.Tracking.ReapInterval = time.Minute
	}
	if cfg.Tracking.StaleAfter == 0 {
		cfg.Tracking.StaleAfter = 10 * time.Minute
	}

	if cfg.Query.Mode == "" {
		cfg.Query.Mode = "demo"
	}
	if cfg.Query.CacheTTL == 0 {
		cfg.Query.CacheTTL = 5 * time.Minute
	}

	if cfg.Chaindata.Mode == "" {
		cfg.Chaindata.Mode = "synthetic"
	}
	if cfg.Chaindata.Timeout == 0 {
		cfg.Chaindata.Timeout = 30 * time.Second
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.Tracking.Source {
	case "simulated", "relay":
	default:
		return fmt.Errorf("invalid tracking source: %s", cfg.Tracking.Source)
	}

	switch cfg.Query.Mode {
	case "live", "demo":
	default:
		return fmt.Errorf("invalid query mode: %s", cfg.Query.Mode)
	}
	if cfg.Query.Mode == "live" && len(cfg.Query.Providers) == 0 {
		return fmt.Errorf("query mode is live but no providers configured")
	}

	switch cfg.Chaindata.Mode {
	case "live", "synthetic":
	default:
		return fmt.Errorf("invalid chaindata mode: %s", cfg.Chaindata.Mode)
	}
	if cfg.Chaindata.Mode == "live" && cfg.Chaindata.Binary == "" {
		return fmt.Errorf("chaindata mode is live but no binary configured")
	}

	return nil
}
