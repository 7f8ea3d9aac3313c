// Package nats publishes ingest notifications to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pithecene-io/faultline/adapter"
	"github.com/pithecene-io/faultline/log"
)

// DefaultSubject is the default publish subject.
const DefaultSubject = "faultline.events"

// DefaultTimeout bounds the flush after each publish.
const DefaultTimeout = 5 * time.Second

// Config configures the NATS adapter.
type Config struct {
	// URL is the NATS server URL (required).
	URL string
	// Subject is the publish subject (default: faultline.events).
	Subject string
	// SubjectPerLevel appends ".<level>" to the subject.
	SubjectPerLevel bool
	// Name identifies the connection to the server.
	Name string
	// MaxReconnects is passed to the client; -1 means unlimited.
	MaxReconnects int
	// ReconnectWait is the delay between reconnect attempts.
	ReconnectWait time.Duration
	// Timeout bounds the flush after each publish.
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Logger receives connection state changes. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig returns a configuration with defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:           url,
		Subject:       DefaultSubject,
		Name:          "faultline",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       DefaultTimeout,
	}
}

// Publisher is the subset of *nats.Conn the adapter uses.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Adapter publishes notifications via NATS core publish.
type Adapter struct {
	config Config
	conn   Publisher
}

// New connects to the configured server and returns an adapter.
func New(cfg Config) (*Adapter, error) {
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Nop()
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			fields := map[string]any{}
			if err != nil {
				fields["error"] = err.Error()
			}
			logger.Warn("nats disconnected", fields)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", map[string]any{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats adapter: connect: %w", err)
	}

	return &Adapter{config: cfg, conn: conn}, nil
}

// NewWithPublisher returns an adapter over an existing connection.
func NewWithPublisher(cfg Config, conn Publisher) (*Adapter, error) {
	if conn == nil {
		return nil, errors.New("nats adapter requires a connection")
	}
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	cfg, err := withDefaults(cfg)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, conn: conn}, nil
}

func withDefaults(cfg Config) (Config, error) {
	if cfg.URL == "" {
		return cfg, errors.New("nats adapter requires a URL")
	}
	if cfg.Retries < 0 {
		return cfg, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Name == "" {
		cfg.Name = "faultline"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	return cfg, nil
}

// SubjectFor returns the subject a notification is published on.
func (a *Adapter) SubjectFor(n *adapter.Notification) string {
	if a.config.SubjectPerLevel && n.Level != "" {
		return a.config.Subject + "." + n.Level
	}
	return a.config.Subject
}

// Publish sends the notification and flushes so delivery errors surface.
func (a *Adapter) Publish(ctx context.Context, n *adapter.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("nats: marshal notification: %w", err)
	}

	subject := a.SubjectFor(n)
	var lastErr error
	attempts := 1 + a.config.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("nats: context canceled: %w", err)
		}
		if i > 0 {
			if err := adapter.Sleep(ctx, adapter.RetryDelay(i)); err != nil {
				return fmt.Errorf("nats: context canceled during backoff: %w", err)
			}
		}

		lastErr = a.conn.Publish(subject, body)
		if lastErr == nil {
			lastErr = a.conn.FlushTimeout(a.flushTimeout(ctx))
		}
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, nats.ErrConnectionClosed) || errors.Is(lastErr, nats.ErrBadSubject) {
			return fmt.Errorf("nats: non-retriable error: %w", lastErr)
		}
	}

	return fmt.Errorf("nats: failed after %d attempts: %w", attempts, lastErr)
}

// flushTimeout is the configured timeout, shortened to the context deadline.
func (a *Adapter) flushTimeout(ctx context.Context) time.Duration {
	timeout := a.config.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = max(remaining, time.Millisecond)
		}
	}
	return timeout
}

// Close closes the connection.
func (a *Adapter) Close() error {
	a.conn.Close()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
