package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/solmint/relay/internal/chaindata"
	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/query/provider"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	opts  provider.Options
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts provider.Options) (string, error) {
	f.calls++
	f.opts = opts
	return f.reply, f.err
}

func newTestDispatcher(completer Completer) *Dispatcher {
	return NewDispatcher(completer, chaindata.NewSynthetic(), NewMemoryCache(), Config{
		CacheTTL: time.Minute,
	})
}

func TestDispatchReturnsProviderAnswer(t *testing.T) {
	fake := &fakeCompleter{reply: "SOL is around $145."}
	d := newTestDispatcher(fake)

	resp, err := d.Dispatch(context.Background(), "What is the price of SOL?")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp.Text != "SOL is around $145." {
		t.Errorf("Text = %q, want provider answer", resp.Text)
	}
	if resp.QueryType != domain.QueryMarketAnalysis {
		t.Errorf("QueryType = %s, want market_analysis", resp.QueryType)
	}
	if len(resp.Data) == 0 {
		t.Error("Expected enrichment data for market_analysis")
	}
}

func TestDispatchCacheHit(t *testing.T) {
	fake := &fakeCompleter{reply: "cached answer"}
	d := newTestDispatcher(fake)
	ctx := context.Background()

	if _, err := d.Dispatch(ctx, "What is the price of SOL?"); err != nil {
		t.Fatalf("First dispatch failed: %v", err)
	}
	resp, err := d.Dispatch(ctx, "what is the price of sol?") // same after normalization
	if err != nil {
		t.Fatalf("Second dispatch failed: %v", err)
	}

	if fake.calls != 1 {
		t.Errorf("Provider called %d times, want 1 (second served from cache)", fake.calls)
	}
	if resp.Text != "cached answer" {
		t.Errorf("Text = %q, want cached answer", resp.Text)
	}
}

func TestDispatchProviderFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("429 too many requests: raw provider body")}
	d := newTestDispatcher(fake)
	ctx := context.Background()

	resp, err := d.Dispatch(ctx, "What is the price of SOL?")
	if err != nil {
		t.Fatalf("Dispatch returned error %v, want apology response", err)
	}
	if resp.Text != userFacingError {
		t.Errorf("Text = %q, want fixed user-facing error", resp.Text)
	}
	if strings.Contains(resp.Text, "429") {
		t.Error("Raw provider error leaked into user-facing text")
	}

	// Failure responses are not cached; a recovered provider answers.
	fake.err = nil
	fake.reply = "recovered"
	resp, err = d.Dispatch(ctx, "What is the price of SOL?")
	if err != nil {
		t.Fatalf("Dispatch after recovery failed: %v", err)
	}
	if resp.Text != "recovered" {
		t.Errorf("Text = %q, want fresh answer after recovery", resp.Text)
	}
}

func TestDispatchConciseForSimpleFactual(t *testing.T) {
	fake := &fakeCompleter{reply: "ok"}
	d := newTestDispatcher(fake)

	if _, err := d.Dispatch(context.Background(), "What is the price of SOL today?"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !fake.opts.Concise {
		t.Error("Concise not set for a simple factual query")
	}

	fake2 := &fakeCompleter{reply: "ok"}
	d2 := newTestDispatcher(fake2)
	if _, err := d2.Dispatch(context.Background(), "Explain Solana NFTs"); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if fake2.opts.Concise {
		t.Error("Concise set for a non-factual query")
	}
}

func TestDispatchRelatedEvents(t *testing.T) {
	fake := &fakeCompleter{reply: "in flight"}
	d := newTestDispatcher(fake)
	d.SetRelatedEventsFunc(func(ctx context.Context) []string {
		return []string{"lz-1", "lz-2"}
	})

	resp, err := d.Dispatch(context.Background(), "Is my bridge message delivered?")
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp.QueryType != domain.QueryBridgeStatus {
		t.Fatalf("QueryType = %s, want bridge_status", resp.QueryType)
	}
	if len(resp.RelatedEvents) != 2 {
		t.Errorf("RelatedEvents = %v, want two IDs", resp.RelatedEvents)
	}
}

func TestClassifyUsesCache(t *testing.T) {
	d := newTestDispatcher(&fakeCompleter{reply: "ok"})
	ctx := context.Background()

	first := d.Classify(ctx, "What is the price of SOL?")
	second := d.Classify(ctx, "What is the price of SOL?")
	if first != second || first != domain.QueryMarketAnalysis {
		t.Errorf("Classify = %s then %s, want stable market_analysis", first, second)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.SetResponse(ctx, "general", "q", "payload", 10*time.Millisecond); err != nil {
		t.Fatalf("SetResponse failed: %v", err)
	}
	if val, ok, _ := c.GetResponse(ctx, "general", "q"); !ok || val != "payload" {
		t.Errorf("GetResponse = (%q, %v), want fresh hit", val, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.GetResponse(ctx, "general", "q"); ok {
		t.Error("GetResponse hit after TTL expiry")
	}
}
