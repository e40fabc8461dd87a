// Package redis publishes capture completion events as JSON on a Redis
// pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/physlink/adapter"
)

// Defaults applied by New.
const (
	DefaultChannel = "physlink:capture_completed"
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
)

// Config configures the Redis adapter.
type Config struct {
	// URL is required. Format: redis://[:password@]host:port[/db]
	URL     string
	Channel string
	// Timeout bounds each PUBLISH.
	Timeout time.Duration
	Retries int
	// Backoff is the first retry wait (adapter.DefaultBackoff when zero).
	Backoff time.Duration
}

// Adapter publishes via Redis PUBLISH.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New validates cfg, applies defaults and creates the client. No
// connection is made until the first Publish.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Adapter{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Channel returns the channel events are published on.
func (a *Adapter) Channel() string { return a.config.Channel }

// Publish sends event as JSON, retrying every failure.
func (a *Adapter) Publish(ctx context.Context, event *adapter.CaptureCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	err = adapter.Retry(ctx, a.config.Retries, a.config.Backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return a.client.Publish(publishCtx, a.config.Channel, body).Err()
	}, nil)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
