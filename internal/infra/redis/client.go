package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the query and classification caches.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks if Redis is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func responseKey(category, query string) string {
	return fmt.Sprintf("query_response:%s:%s", category, query)
}

func classificationKey(query string) string {
	return fmt.Sprintf("query_class:%s", query)
}

// GetResponse fetches a cached dispatcher response. Expired or missing
// entries return found=false.
func (c *Client) GetResponse(ctx context.Context, category, query string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, responseKey(category, query)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

// SetResponse caches a dispatcher response with a TTL.
func (c *Client) SetResponse(ctx context.Context, category, query, payload string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, responseKey(category, query), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// GetClassification fetches a cached query classification.
func (c *Client) GetClassification(ctx context.Context, query string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, classificationKey(query)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get failed: %w", err)
	}
	return val, true, nil
}

// SetClassification caches a query classification with a TTL.
func (c *Client) SetClassification(ctx context.Context, query, category string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, classificationKey(query), category, ttl).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}
