// Package mongodb provides the document storage backend: the pooled
// client, the driver binding, session-rooted transactions and the user
// repository.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds client configuration. The driver maintains its own
// connection pool internally; MinPoolSize/MaxPoolSize bound it.
type Config struct {
	URI      string
	Database string
	Username string
	Password string

	Timeout     time.Duration
	MinPoolSize uint64
	MaxPoolSize uint64

	// MaxConnecting bounds concurrent connection establishment; the
	// driver queues checkout requests beyond MaxPoolSize and fails them
	// after Timeout instead of waiting forever.
	MaxConnecting uint64
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig(uri, database string) Config {
	return Config{
		URI:           uri,
		Database:      database,
		Timeout:       10 * time.Second,
		MinPoolSize:   2,
		MaxPoolSize:   25,
		MaxConnecting: 2,
	}
}

// Client wraps mongo.Client with the bound database name. Created once at
// startup, shared by reference, torn down at shutdown.
type Client struct {
	client   *mongo.Client
	database string
}

// NewClient connects to MongoDB and verifies connectivity.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMaxConnecting(cfg.MaxConnecting)

	if cfg.Username != "" {
		opts = opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Client{client: client, database: cfg.Database}, nil
}

// Database returns the bound database handle.
func (c *Client) Database() *mongo.Database {
	return c.client.Database(c.database)
}

// Ping checks connectivity, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// Close disconnects the client, tearing down its pool.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
