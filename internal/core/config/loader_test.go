package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 10 {
		t.Errorf("RateLimit = %v, want 10", cfg.Server.RateLimit)
	}
	if cfg.Tracking.Source != "simulated" {
		t.Errorf("Tracking.Source = %q, want simulated", cfg.Tracking.Source)
	}
	if cfg.Tracking.TickInterval != 3*time.Second {
		t.Errorf("TickInterval = %v, want 3s", cfg.Tracking.TickInterval)
	}
	if cfg.Tracking.StaleAfter != 10*time.Minute {
		t.Errorf("StaleAfter = %v, want 10m", cfg.Tracking.StaleAfter)
	}
	if cfg.Query.Mode != "demo" {
		t.Errorf("Query.Mode = %q, want demo", cfg.Query.Mode)
	}
	if cfg.Query.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.Query.CacheTTL)
	}
	if cfg.Chaindata.Mode != "synthetic" {
		t.Errorf("Chaindata.Mode = %q, want synthetic", cfg.Chaindata.Mode)
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_RELAY_DB_URL", "postgres://localhost/relay")

	path := writeConfig(t, "database:\n  url: ${TEST_RELAY_DB_URL}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/relay" {
		t.Errorf("Database.URL = %q, want expanded env value", cfg.Database.URL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid tracking source", "tracking:\n  source: oracle\n"},
		{"invalid query mode", "query:\n  mode: hybrid\n"},
		{"live query without providers", "query:\n  mode: live\n"},
		{"invalid chaindata mode", "chaindata:\n  mode: magic\n"},
		{"live chaindata without binary", "chaindata:\n  mode: live\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load succeeded for missing file, want error")
	}
}
