package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/solmint/relay/internal/control"
)

func TestGracefulShutdown(t *testing.T) {
	app, err := control.NewRelay(testConfig())
	if err != nil {
		t.Fatalf("Failed to create relay: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Failed to start relay: %v", err)
	}

	// Let background components run for a bit
	time.Sleep(100 * time.Millisecond)

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}
