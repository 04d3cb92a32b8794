package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesCreated tracks messages accepted per destination chain
	MessagesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_messages_created_total",
			Help: "Total number of cross-chain messages created",
		},
		[]string{"destination_chain", "message_type"},
	)

	// StatusTransitions tracks lifecycle transitions
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_status_transitions_total",
			Help: "Total number of message status transitions",
		},
		[]string{"status"},
	)

	// TrackedMessages tracks currently tracked messages across sessions
	TrackedMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_tracked_messages",
			Help: "Number of messages currently tracked across all sessions",
		},
	)

	// WSConnections tracks open WebSocket sessions
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ws_connections",
			Help: "Number of open WebSocket sessions",
		},
	)

	// QueriesTotal tracks dispatched queries per category
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_queries_total",
			Help: "Total number of dispatched queries",
		},
		[]string{"category"},
	)

	// QueryCacheHits tracks response cache hits per category
	QueryCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_query_cache_hits_total",
			Help: "Total number of query response cache hits",
		},
		[]string{"category"},
	)

	// ProviderCallsTotal tracks LLM provider calls
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_provider_calls_total",
			Help: "Total number of LLM provider calls",
		},
		[]string{"provider"},
	)

	// ProviderErrorsTotal tracks LLM provider errors
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_provider_errors_total",
			Help: "Total number of LLM provider errors",
		},
		[]string{"provider", "error_type"},
	)

	// ProviderLatency tracks LLM provider call latency
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_provider_latency_seconds",
			Help:    "LLM provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// MessagesReaped tracks messages failed by the abandonment reaper
	MessagesReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_messages_reaped_total",
			Help: "Total number of stale messages failed by the reaper",
		},
	)

	// DBConnectionPoolUsage tracks connection pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_db_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)
)
