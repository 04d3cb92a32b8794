package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/solmint/relay/internal/api"
	"github.com/solmint/relay/internal/chaindata"
	"github.com/solmint/relay/internal/core/config"
	"github.com/solmint/relay/internal/core/domain"
	"github.com/solmint/relay/internal/core/worker"
	redisclient "github.com/solmint/relay/internal/infra/redis"
	"github.com/solmint/relay/internal/infra/storage"
	"github.com/solmint/relay/internal/infra/storage/memory"
	"github.com/solmint/relay/internal/infra/storage/postgres"
	"github.com/solmint/relay/internal/query"
	"github.com/solmint/relay/internal/query/provider"
	"github.com/solmint/relay/internal/tracking"
	"github.com/solmint/relay/internal/tracking/hub"
	"github.com/solmint/relay/internal/tracking/source"
	"github.com/solmint/relay/internal/tracking/ws"
)

// Relay is the main application struct that wires storage, tracking,
// the query dispatcher, and the HTTP surface together.
type Relay struct {
	cfg config.AppConfig

	db          *postgres.DB
	redisClient *redisclient.Client
	hub         *hub.Hub
	tracking    *tracking.Service
	driver      source.Driver
	reaper      *worker.Reaper
	providers   *provider.Chain
	dispatcher  *query.Dispatcher
	server      *api.Server
	log         *slog.Logger

	cancel context.CancelFunc
}

// NewRelay creates a Relay with all dependencies initialized.
func NewRelay(cfg config.AppConfig) (*Relay, error) {
	r := &Relay{cfg: cfg, log: slog.Default()}

	// 1. Storage
	var repo storage.MessageRepository
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		r.db = db

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		repo = postgres.NewMessageRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		repo = memory.NewMessageRepo()
		slog.Info("Using memory storage")
	}

	// 2. Tracking core
	r.hub = hub.New()
	r.tracking = tracking.NewService(repo, r.hub)

	if cfg.Tracking.Source == "simulated" {
		r.driver = source.NewSimulated(r.tracking, cfg.Tracking.TickInterval)
		slog.Info("Using simulated status source", "interval", cfg.Tracking.TickInterval)
	} else {
		slog.Info("Using relay status source")
	}

	if cfg.Tracking.StaleAfter > 0 {
		r.reaper = worker.NewReaper(r.tracking, cfg.Tracking.StaleAfter, cfg.Tracking.ReapInterval)
	}

	// 3. Query cache
	var cache query.Cache
	if cfg.Redis.URL != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using memory cache", "error", err)
			cache = query.NewMemoryCache()
		} else {
			r.redisClient = redisClient
			cache = redisClient
			slog.Info("Using Redis query cache")
		}
	} else {
		cache = query.NewMemoryCache()
		slog.Info("Using memory query cache")
	}

	// 4. Providers
	providers, err := buildProviders(cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to init providers: %w", err)
	}
	r.providers = provider.NewChain(providers, provider.DefaultRetryConfig)

	// 5. Chain data source
	var data chaindata.Source
	if cfg.Chaindata.Mode == "live" {
		data = chaindata.NewSubstreams(cfg.Chaindata.Binary, cfg.Chaindata.Package, cfg.Chaindata.Timeout)
		slog.Info("Using substreams chain data source", "binary", cfg.Chaindata.Binary)
	} else {
		data = chaindata.NewSynthetic()
		slog.Info("Using synthetic chain data source")
	}

	// 6. Dispatcher
	r.dispatcher = query.NewDispatcher(r.providers, data, cache, query.Config{
		CacheTTL: cfg.Query.CacheTTL,
		TTLs:     cfg.Query.TTLs,
	})
	r.dispatcher.SetRelatedEventsFunc(r.recentBridgeIDs)

	// 7. HTTP surface
	pingers := map[string]api.Pinger{}
	if r.db != nil {
		pingers["database"] = r.db
	}
	if r.redisClient != nil {
		pingers["redis"] = r.redisClient
	}

	r.server = api.NewServer(api.Config{
		Port:        cfg.Server.Port,
		RateLimit:   cfg.Server.RateLimit,
		RateBurst:   cfg.Server.RateBurst,
		AdminTokens: cfg.Auth.AdminTokens,
		Tracking:    r.tracking,
		Dispatcher:  r.dispatcher,
		WS:          ws.NewServer(r.tracking, cfg.Auth.ClientTokens),
		Pingers:     pingers,
		Providers:   r.providers.Providers(),
	})

	return r, nil
}

// buildProviders constructs the LLM provider list from config. Demo
// mode ignores configured providers and uses the templated mock.
func buildProviders(cfg config.QueryConfig) ([]provider.Provider, error) {
	if cfg.Mode != "live" {
		return []provider.Provider{provider.NewMock("demo")}, nil
	}

	var providers []provider.Provider
	for _, pc := range cfg.Providers {
		switch pc.Kind {
		case "perplexity":
			providers = append(providers, provider.NewPerplexity(pc.Name, pc.URL, pc.APIKey, pc.Model, pc.DailyQuota))
		case "gemini":
			g, err := provider.NewGemini(context.Background(), pc.Name, pc.APIKey, pc.Model, pc.DailyQuota)
			if err != nil {
				return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
			}
			providers = append(providers, g)
		case "mock":
			providers = append(providers, provider.NewMock(pc.Name))
		default:
			return nil, fmt.Errorf("unknown provider kind: %s", pc.Kind)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("live query mode requires at least one provider")
	}
	return providers, nil
}

// recentBridgeIDs lists IDs of in-flight messages, attached as related
// events on bridge_status answers.
func (r *Relay) recentBridgeIDs(ctx context.Context) []string {
	status := domain.StatusInflight
	msgs, _, err := r.tracking.List(ctx, storage.ListFilter{Status: &status, Limit: 5})
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids
}

// Start starts the relay and all its background components.
func (r *Relay) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		if err := r.server.Start(); err != nil {
			r.log.Error("HTTP server failed", "error", err)
		}
	}()

	if r.db != nil {
		r.db.StartMetricsCollector(ctx)
	}

	if r.driver != nil {
		r.log.Info("Starting status source")
		go func() {
			if err := r.driver.Start(ctx); err != nil && err != context.Canceled {
				r.log.Error("Status source failed", "error", err)
			}
		}()
	}

	if r.reaper != nil {
		r.log.Info("Starting reaper",
			"staleAfter", r.cfg.Tracking.StaleAfter,
			"interval", r.cfg.Tracking.ReapInterval)
		go r.reaper.Start(ctx)
	}

	return nil
}

// Stop stops the relay.
func (r *Relay) Stop(ctx context.Context) error {
	r.log.Info("Stopping relay...")

	if r.cancel != nil {
		r.cancel()
	}

	if r.driver != nil {
		r.driver.Stop()
	}

	if err := r.providers.Close(); err != nil {
		r.log.Warn("Failed to close providers", "error", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.Warn("Failed to close Redis", "error", err)
		}
	}

	r.hub.Close()

	err := r.server.Stop(ctx)

	if r.db != nil {
		r.db.Close()
	}
	return err
}

// Tracking exposes the tracking service, for the admin CLI and tests.
func (r *Relay) Tracking() *tracking.Service {
	return r.tracking
}
