package lode

import (
	"context"
	"time"

	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// InstrumentedSink wraps a Sink and records write metrics.
// Each write call increments lode_write_success or lode_write_failure.
type InstrumentedSink struct {
	inner     *Sink
	collector *metrics.Collector
}

// NewInstrumentedSink wraps a sink with metrics instrumentation.
func NewInstrumentedSink(inner *Sink, collector *metrics.Collector) *InstrumentedSink {
	return &InstrumentedSink{inner: inner, collector: collector}
}

// WriteEvents delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteEvents(ctx context.Context, events []*types.Event) error {
	err := s.inner.WriteEvents(ctx, events)
	s.record(err)
	return err
}

// WriteMetrics delegates to the inner sink and records success or failure.
func (s *InstrumentedSink) WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error {
	err := s.inner.WriteMetrics(ctx, snap, completedAt)
	s.record(err)
	return err
}

func (s *InstrumentedSink) record(err error) {
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
}

// Close delegates to the inner sink.
func (s *InstrumentedSink) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedSink implements policy.Sink.
var _ policy.Sink = (*InstrumentedSink)(nil)
