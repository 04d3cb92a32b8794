// Package chaindata fetches on-chain data for query enrichment.
//
// Two sources exist: the live substreams runner and the synthetic
// generator. Selection is a configuration decision; the live path never
// silently degrades to synthetic data on failure.
package chaindata

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
)

// ErrInvalidModule is returned for module names failing validation,
// before any subprocess is invoked.
var ErrInvalidModule = errors.New("invalid module name")

var moduleNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidModule reports whether a module name is well-formed.
func ValidModule(module string) bool {
	return moduleNameRe.MatchString(module)
}

// Source fetches data for a named substreams module.
type Source interface {
	// Fetch runs the module and returns its JSON output.
	Fetch(ctx context.Context, module string, params map[string]any) (json.RawMessage, error)

	// Name identifies the source ("substreams" or "synthetic").
	Name() string
}
