package chaindata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Substreams runs a substreams binary and parses its stdout as JSON.
type Substreams struct {
	binary  string
	pkg     string
	timeout time.Duration
	log     *slog.Logger
}

// NewSubstreams creates a live substreams source.
func NewSubstreams(binary, pkg string, timeout time.Duration) *Substreams {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Substreams{
		binary:  binary,
		pkg:     pkg,
		timeout: timeout,
		log:     slog.Default(),
	}
}

// Fetch invokes `<binary> run [<package>] <module> --params=<json>`.
func (s *Substreams) Fetch(ctx context.Context, module string, params map[string]any) (json.RawMessage, error) {
	if !ValidModule(module) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModule, module)
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	args := []string{"run"}
	if s.pkg != "" {
		args = append(args, s.pkg)
	}
	args = append(args, module, "--params="+string(paramsJSON))

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		s.log.Warn("Substreams run failed",
			"module", module, "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("substreams run %s: %w", module, err)
	}
	s.log.Debug("Substreams run finished", "module", module, "took", time.Since(start))

	out := bytes.TrimSpace(stdout.Bytes())
	if !json.Valid(out) {
		return nil, fmt.Errorf("substreams %s produced invalid JSON", module)
	}
	return json.RawMessage(out), nil
}

// Name identifies the source.
func (s *Substreams) Name() string {
	return "substreams"
}
