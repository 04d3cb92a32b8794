package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Synthetic generates deterministic mock data keyed by module name.
// The same module name always produces the same shape and values, so
// demo runs are reproducible.
type Synthetic struct{}

// NewSynthetic creates a synthetic source.
func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// Fetch generates data for the module. Module names are validated with
// the same rule as the live source so both paths reject the same input.
func (s *Synthetic) Fetch(ctx context.Context, module string, params map[string]any) (json.RawMessage, error) {
	if !ValidModule(module) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModule, module)
	}

	rng := rand.New(rand.NewSource(seedFor(module)))

	var payload any
	switch module {
	case "nft_events":
		payload = nftEvents(rng)
	case "wallet_transfers":
		payload = walletTransfers(rng)
	case "market_stats":
		payload = marketStats(rng)
	case "bridge_messages":
		payload = bridgeMessages(rng)
	default:
		payload = map[string]any{
			"module":  module,
			"records": []any{},
			"note":    "no synthetic generator for this module",
		}
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal synthetic data: %w", err)
	}
	return out, nil
}

// Name identifies the source.
func (s *Synthetic) Name() string {
	return "synthetic"
}

func seedFor(module string) int64 {
	h := fnv.New64a()
	h.Write([]byte(module))
	return int64(h.Sum64())
}

func nftEvents(rng *rand.Rand) any {
	events := make([]map[string]any, 3)
	for i := range events {
		events[i] = map[string]any{
			"type":      "mint",
			"mint":      address(rng),
			"owner":     address(rng),
			"slot":      284000000 + rng.Intn(1000000),
			"signature": signature(rng),
		}
	}
	return map[string]any{"module": "nft_events", "events": events}
}

func walletTransfers(rng *rand.Rand) any {
	transfers := make([]map[string]any, 5)
	for i := range transfers {
		transfers[i] = map[string]any{
			"from":      address(rng),
			"to":        address(rng),
			"lamports":  rng.Int63n(5_000_000_000),
			"slot":      284000000 + rng.Intn(1000000),
			"signature": signature(rng),
		}
	}
	return map[string]any{"module": "wallet_transfers", "transfers": transfers}
}

func marketStats(rng *rand.Rand) any {
	return map[string]any{
		"module":       "market_stats",
		"solPriceUsd":  100 + rng.Float64()*100,
		"volume24hUsd": rng.Float64() * 2e9,
		"change24hPct": rng.Float64()*10 - 5,
	}
}

func bridgeMessages(rng *rand.Rand) any {
	statuses := []string{"CREATED", "INFLIGHT", "DELIVERED", "COMPLETED"}
	messages := make([]map[string]any, 4)
	for i := range messages {
		messages[i] = map[string]any{
			"messageId":        fmt.Sprintf("lz-%08x", rng.Uint32()),
			"destinationChain": []string{"ethereum", "polygon", "base", "arbitrum"}[rng.Intn(4)],
			"status":           statuses[rng.Intn(len(statuses))],
		}
	}
	return map[string]any{"module": "bridge_messages", "messages": messages}
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func address(rng *rand.Rand) string {
	return base58(rng, 44)
}

func signature(rng *rand.Rand) string {
	return base58(rng, 88)
}

func base58(rng *rand.Rand, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = base58Alphabet[rng.Intn(len(base58Alphabet))]
	}
	return string(out)
}
