package provider

import (
	"context"
	"testing"
)

func TestGeminiRequiresAPIKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), "gemini", "", "", 100); err == nil {
		t.Fatal("NewGemini with empty API key succeeded, want error")
	}
}

func TestGeminiCloseIsIdempotent(t *testing.T) {
	g := &Gemini{name: "gemini", monitor: NewMonitor(100)}
	if err := g.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}
