package api

import (
	"testing"
	"time"
)

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	rl := newRateLimiter(1, 1)

	rl.limiterFor("idle")
	rl.limiterFor("active")

	rl.mu.Lock()
	rl.clients["idle"].lastSeen = time.Now().Add(-2 * limiterIdleTimeout)
	rl.lastSweep = time.Now().Add(-2 * limiterSweepInterval)
	rl.mu.Unlock()

	rl.limiterFor("active")

	rl.mu.Lock()
	_, idleKept := rl.clients["idle"]
	_, activeKept := rl.clients["active"]
	rl.mu.Unlock()

	if idleKept {
		t.Error("Idle client limiter was not evicted")
	}
	if !activeKept {
		t.Error("Active client limiter was evicted")
	}
}

func TestRateLimiterSharesTokensPerClient(t *testing.T) {
	rl := newRateLimiter(0.001, 1)

	if !rl.limiterFor("client").Allow() {
		t.Fatal("First request denied, want allowed")
	}
	if rl.limiterFor("client").Allow() {
		t.Error("Second request allowed, want denied by the same limiter")
	}
	if !rl.limiterFor("other").Allow() {
		t.Error("Other client denied, want its own token bucket")
	}
}
