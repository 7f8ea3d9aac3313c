// Package lode persists ingested events and session metrics in a Lode dataset.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "faultline"

// Config holds Lode sink configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source is the partition key naming the capturing application.
	Source string
	// IngestID identifies the ingestion session writing the records.
	IngestID string
}

func (c Config) withDefaults() Config {
	if c.Dataset == "" {
		c.Dataset = DefaultDataset
	}
	if c.Source == "" {
		c.Source = "unknown"
	}
	return c
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteEvents writes a batch of events.
	// Must preserve ordering within the batch.
	WriteEvents(ctx context.Context, events []*types.Event) error

	// WriteMetrics writes the session metrics record.
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error

	// Close releases client resources.
	Close() error
}

// Sink is a Lode-backed implementation of policy.Sink.
type Sink struct {
	client Client
}

// NewSink creates a new Lode sink.
func NewSink(client Client) *Sink {
	return &Sink{client: client}
}

// WriteEvents implements policy.Sink.
func (s *Sink) WriteEvents(ctx context.Context, events []*types.Event) error {
	return s.client.WriteEvents(ctx, events)
}

// WriteMetrics persists the session metrics snapshot.
func (s *Sink) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	return s.client.WriteMetrics(ctx, snap, completedAt)
}

// Close implements policy.Sink.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Verify Sink implements policy.Sink.
var _ policy.Sink = (*Sink)(nil)

// StubClient is a test client that accepts writes without persisting.
type StubClient struct {
	mu sync.Mutex

	Batches [][]*types.Event
	Metrics []metrics.Snapshot
	Closed  bool

	// ErrorOnWrite, if non-nil, is returned by every write.
	ErrorOnWrite error
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteEvents implements Client.
func (c *StubClient) WriteEvents(_ context.Context, events []*types.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Batches = append(c.Batches, events)
	return nil
}

// WriteMetrics implements Client.
func (c *StubClient) WriteMetrics(_ context.Context, snap metrics.Snapshot, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ErrorOnWrite != nil {
		return c.ErrorOnWrite
	}
	c.Metrics = append(c.Metrics, snap)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

// EventCount returns the number of events written across all batches.
func (c *StubClient) EventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range c.Batches {
		n += len(b)
	}
	return n
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
