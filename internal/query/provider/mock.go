package provider

import (
	"context"
	"fmt"
	"strings"
)

// Mock generates templated local responses for demo mode. It is
// selected explicitly by configuration, never substituted when a live
// provider fails.
type Mock struct {
	name string
}

// NewMock creates a demo provider.
func NewMock(name string) *Mock {
	if name == "" {
		name = "demo"
	}
	return &Mock{name: name}
}

// Complete returns a deterministic templated answer.
func (m *Mock) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	q := strings.ToLower(prompt)

	if opts.Concise {
		return "SOL is trading around $145 right now (demo data).", nil
	}

	switch {
	case strings.Contains(q, "nft") || strings.Contains(q, "mint"):
		return "Your attendance NFT collection holds 3 minted tokens on Solana devnet. " +
			"The most recent mint was confirmed in slot 284731077 (demo data).", nil
	case strings.Contains(q, "wallet") || strings.Contains(q, "balance"):
		return "This wallet shows 12 transactions over the last 7 days, " +
			"mostly token transfers and one NFT mint (demo data).", nil
	case strings.Contains(q, "bridge") || strings.Contains(q, "cross"):
		return "Bridge messages are relayed through LayerZero and typically settle " +
			"within a few minutes. Track a message to follow its lifecycle (demo data).", nil
	case strings.Contains(q, "price") || strings.Contains(q, "market"):
		return "Market activity is steady today with moderate volume across " +
			"major Solana pairs (demo data).", nil
	default:
		return fmt.Sprintf("Here is what I can tell you about %q: this instance runs "+
			"in demo mode, so answers are locally generated placeholders.", prompt), nil
	}
}

// Name returns the provider's name.
func (m *Mock) Name() string {
	return m.name
}

// Available always reports true.
func (m *Mock) Available() bool {
	return true
}

// Close is a no-op.
func (m *Mock) Close() error {
	return nil
}
