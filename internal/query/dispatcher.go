package query

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/solmint/relay/internal/chaindata"
	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/query/classify"
	"github.com/solmint/relay/internal/query/provider"
	"github.com/solmint/relay/internal/tracking/metrics"
)

// userFacingError is the fixed reply when every provider failed. Raw
// provider error bodies are logged, never shown to the user.
const userFacingError = "Sorry, I couldn't answer that right now. Please try again in a moment."

const classificationTTL = time.Minute

// Completer answers a prompt. Satisfied by provider.Chain.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts provider.Options) (string, error)
}

// enrichmentModules maps categories to the chain data module fetched in
// parallel with the provider call.
var enrichmentModules = map[domain.QueryType]string{
	domain.QueryNFTInfo:        "nft_events",
	domain.QueryWalletActivity: "wallet_transfers",
	domain.QueryMarketAnalysis: "market_stats",
	domain.QueryBridgeStatus:   "bridge_messages",
}

var systemPrompts = map[domain.QueryType]string{
	domain.QueryNFTInfo:        "You answer questions about Solana proof-of-attendance NFTs.",
	domain.QueryWalletActivity: "You answer questions about Solana wallet activity.",
	domain.QueryMarketAnalysis: "You answer questions about crypto market data.",
	domain.QueryBridgeStatus:   "You answer questions about LayerZero cross-chain messages.",
}

// Config tunes the dispatcher.
type Config struct {
	// CacheTTL is the default response cache TTL; TTLs overrides it
	// per category.
	CacheTTL time.Duration
	TTLs     map[string]time.Duration
}

// Dispatcher classifies free-text queries and routes them to the
// provider chain, enriched with chain data.
type Dispatcher struct {
	completer Completer
	data      chaindata.Source
	cache     Cache
	cfg       Config
	log       *slog.Logger

	// recentBridgeIDs lists in-flight message IDs attached as
	// relatedEvents on bridge_status answers. May be nil.
	recentBridgeIDs func(ctx context.Context) []string
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(completer Completer, data chaindata.Source, cache Cache, cfg Config) *Dispatcher {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Dispatcher{
		completer: completer,
		data:      data,
		cache:     cache,
		cfg:       cfg,
		log:       slog.Default(),
	}
}

// SetRelatedEventsFunc wires the source of bridge-related message IDs.
func (d *Dispatcher) SetRelatedEventsFunc(fn func(ctx context.Context) []string) {
	d.recentBridgeIDs = fn
}

// Classify returns the category for a query, consulting the
// classification cache first. Classification is a pure function of the
// normalized query text.
func (d *Dispatcher) Classify(ctx context.Context, rawQuery string) domain.QueryType {
	normalized := classify.Normalize(rawQuery)

	if cached, ok, err := d.cache.GetClassification(ctx, normalized); err == nil && ok {
		return domain.QueryType(cached)
	}

	category := classify.Classify(normalized)
	if err := d.cache.SetClassification(ctx, normalized, string(category), classificationTTL); err != nil {
		d.log.Debug("Failed to cache classification", "error", err)
	}
	return category
}

// Dispatch answers a free-text query.
func (d *Dispatcher) Dispatch(ctx context.Context, rawQuery string) (*domain.QueryResponse, error) {
	normalized := classify.Normalize(rawQuery)
	category := d.Classify(ctx, normalized)
	metrics.QueriesTotal.WithLabelValues(string(category)).Inc()

	// Response cache
	if cached, ok, err := d.cache.GetResponse(ctx, string(category), normalized); err == nil && ok {
		var resp domain.QueryResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			metrics.QueryCacheHits.WithLabelValues(string(category)).Inc()
			return &resp, nil
		}
	}

	// Fetch enrichment data in parallel with the provider call.
	dataCh := d.fetchEnrichment(ctx, category)

	opts := provider.Options{
		Concise: classify.SimpleFactual(normalized),
		System:  systemPrompts[category],
	}

	text, err := d.completer.Complete(ctx, rawQuery, opts)
	if err != nil {
		// Raw provider errors are logged, never displayed.
		d.log.Warn("Provider call failed", "category", category, "error", err)
		return &domain.QueryResponse{
			Text:      userFacingError,
			QueryType: category,
		}, nil
	}

	resp := &domain.QueryResponse{
		Text:      text,
		QueryType: category,
	}
	if dataCh != nil {
		resp.Data = <-dataCh
	}
	if category == domain.QueryBridgeStatus && d.recentBridgeIDs != nil {
		resp.RelatedEvents = d.recentBridgeIDs(ctx)
	}

	d.cacheResponse(ctx, category, normalized, resp)
	return resp, nil
}

func (d *Dispatcher) fetchEnrichment(ctx context.Context, category domain.QueryType) <-chan json.RawMessage {
	module, ok := enrichmentModules[category]
	if !ok || d.data == nil {
		return nil
	}

	ch := make(chan json.RawMessage, 1)
	go func() {
		defer close(ch)
		data, err := d.data.Fetch(ctx, module, nil)
		if err != nil {
			d.log.Warn("Enrichment fetch failed", "module", module, "error", err)
			return
		}
		ch <- data
	}()
	return ch
}

func (d *Dispatcher) cacheResponse(ctx context.Context, category domain.QueryType, normalized string, resp *domain.QueryResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return
	}

	ttl := d.cfg.CacheTTL
	if override, ok := d.cfg.TTLs[string(category)]; ok {
		ttl = override
	}
	if err := d.cache.SetResponse(ctx, string(category), normalized, string(payload), ttl); err != nil {
		d.log.Debug("Failed to cache response", "error", err)
	}
}
