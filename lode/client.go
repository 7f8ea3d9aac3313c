package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/types"
)

// LodeClient is a Lode-backed implementation of Client.
// Uses Lode's HiveLayout with partition keys: source/day/level.
type LodeClient struct {
	dataset lode.Dataset
	config  Config

	mu sync.Mutex // serializes dataset writes
}

// NewLodeClient creates a new Lode client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a new Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	cfg = cfg.withDefaults()
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return &LodeClient{dataset: ds, config: cfg}, nil
}

// newDataset opens a dataset with the shared layout and codec.
func newDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteEvents writes a batch of events as one snapshot.
func (c *LodeClient) WriteEvents(ctx context.Context, events []*types.Event) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]any, 0, len(events))
	for _, e := range events {
		record, err := toEventRecordMap(e, c.config)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/events")
	}
	return nil
}

// WriteMetrics writes one metrics record for the session.
func (c *LodeClient) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	record := toMetricsRecordMap(snap, completedAt, c.config)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.dataset.Write(ctx, []any{record}, lode.Metadata{}); err != nil {
		return WrapWriteError(err, c.config.Dataset+"/metrics")
	}
	return nil
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
