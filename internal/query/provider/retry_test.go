package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name      string
	replies   []string
	errs      []error
	calls     int
	available bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeProvider) Available() bool { return f.available }
func (f *fakeProvider) Close() error    { return nil }

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorAction
	}{
		{errors.New("invalid request: bad prompt"), ActionFatal},
		{errors.New("http 400 bad request"), ActionFatal},
		{errors.New("context canceled"), ActionFatal},
		{errors.New("context deadline exceeded"), ActionFatal},
		{errors.New("http 429 too many requests"), ActionFailover},
		{errors.New("403 forbidden"), ActionFailover},
		{errors.New("401 unauthorized"), ActionFailover},
		{errors.New("daily quota exceeded"), ActionFailover},
		{errors.New("provider throttled"), ActionFailover},
		{errors.New("rate limit hit"), ActionFailover},
		{errors.New("connection refused"), ActionRetry},
		{errors.New("http 500 internal server error"), ActionRetry},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCompleteWithRetryRecovers(t *testing.T) {
	p := &fakeProvider{
		name:      "flaky",
		errs:      []error{errors.New("connection reset"), nil},
		replies:   []string{"", "answer"},
		available: true,
	}

	got, err := CompleteWithRetry(context.Background(), p, "q", Options{}, fastRetry())
	if err != nil {
		t.Fatalf("CompleteWithRetry failed: %v", err)
	}
	if got != "answer" {
		t.Errorf("reply = %q, want answer", got)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
}

func TestCompleteWithRetryFatalStopsImmediately(t *testing.T) {
	p := &fakeProvider{
		name:      "broken",
		errs:      []error{errors.New("invalid request")},
		available: true,
	}

	if _, err := CompleteWithRetry(context.Background(), p, "q", Options{}, fastRetry()); err == nil {
		t.Fatal("CompleteWithRetry succeeded, want fatal error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal)", p.calls)
	}
}

func TestChainFailover(t *testing.T) {
	throttled := &fakeProvider{
		name:      "primary",
		errs:      []error{errors.New("http 429 too many requests")},
		available: true,
	}
	backup := &fakeProvider{
		name:      "backup",
		replies:   []string{"from backup"},
		available: true,
	}
	chain := NewChain([]Provider{throttled, backup}, fastRetry())

	got, err := chain.Complete(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Chain.Complete failed: %v", err)
	}
	if got != "from backup" {
		t.Errorf("reply = %q, want backup's answer", got)
	}
	if throttled.calls != 1 {
		t.Errorf("primary calls = %d, want 1 (failover, not retry)", throttled.calls)
	}
}

func TestChainSkipsUnavailable(t *testing.T) {
	down := &fakeProvider{name: "down", available: false}
	up := &fakeProvider{name: "up", replies: []string{"ok"}, available: true}
	chain := NewChain([]Provider{down, up}, fastRetry())

	got, err := chain.Complete(context.Background(), "q", Options{})
	if err != nil {
		t.Fatalf("Chain.Complete failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("reply = %q, want ok", got)
	}
	if down.calls != 0 {
		t.Errorf("unavailable provider was called %d times", down.calls)
	}
}

func TestChainAllFailed(t *testing.T) {
	a := &fakeProvider{name: "a", errs: []error{errors.New("quota exceeded")}, available: true}
	b := &fakeProvider{name: "b", errs: []error{errors.New("429")}, available: true}
	chain := NewChain([]Provider{a, b}, fastRetry())

	if _, err := chain.Complete(context.Background(), "q", Options{}); err == nil {
		t.Fatal("Chain.Complete succeeded, want error when all providers fail")
	}
}

func TestChainEmpty(t *testing.T) {
	chain := NewChain(nil, fastRetry())
	if _, err := chain.Complete(context.Background(), "q", Options{}); !errors.Is(err, ErrNoProviders) {
		t.Errorf("err = %v, want ErrNoProviders", err)
	}
}
