// Package redis publishes ingest notifications to Redis.
//
// Notifications go out as JSON via PUBLISH on a channel, or via XADD
// to a stream when one is configured. Failures are retried with
// exponential backoff.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/faultline/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "faultline:events"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: faultline:events).
	Channel string
	// ChannelPerLevel appends ":<level>" to the channel name.
	ChannelPerLevel bool
	// Stream switches delivery to XADD on the named stream.
	Stream string
	// StreamMaxLen caps the stream length (approximate); 0 means unbounded.
	StreamMaxLen int64
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

// Adapter publishes notifications to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.StreamMaxLen < 0 {
		return nil, fmt.Errorf("stream max length must be >= 0, got %d", cfg.StreamMaxLen)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// ChannelFor returns the channel a notification is published on.
func (a *Adapter) ChannelFor(n *adapter.Notification) string {
	if a.config.ChannelPerLevel && n.Level != "" {
		return a.config.Channel + ":" + n.Level
	}
	return a.config.Channel
}

// Publish sends the notification to the configured channel or stream.
func (a *Adapter) Publish(ctx context.Context, n *adapter.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis: marshal notification: %w", err)
	}

	var lastErr error
	attempts := 1 + a.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("redis: context canceled: %w", err)
		}
		if i > 0 {
			if err := adapter.Sleep(ctx, adapter.RetryDelay(i)); err != nil {
				return fmt.Errorf("redis: context canceled during backoff: %w", err)
			}
		}

		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		lastErr = a.send(publishCtx, n, body)
		cancel()

		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("redis: failed after %d attempts: %w", attempts, lastErr)
}

func (a *Adapter) send(ctx context.Context, n *adapter.Notification, body []byte) error {
	if a.config.Stream == "" {
		return a.client.Publish(ctx, a.ChannelFor(n), body).Err()
	}
	args := &goredis.XAddArgs{
		Stream: a.config.Stream,
		Values: map[string]any{
			"event_id": n.EventID,
			"level":    n.Level,
			"payload":  string(body),
		},
	}
	if a.config.StreamMaxLen > 0 {
		args.MaxLen = a.config.StreamMaxLen
		args.Approx = true
	}
	return a.client.XAdd(ctx, args).Err()
}

// Close releases the Redis connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
