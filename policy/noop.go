package policy

import (
	"context"

	"github.com/pithecene-io/faultline/types"
)

// NoopPolicy accepts all events but persists nothing.
//
// Stats keep droppable semantics: droppable events count as dropped,
// all others count as persisted.
type NoopPolicy struct {
	stats *statsRecorder
}

// NewNoopPolicy creates a new no-op policy.
func NewNoopPolicy() *NoopPolicy {
	return &NoopPolicy{stats: newStatsRecorder()}
}

// IngestEvent accepts the event but does not persist it.
func (p *NoopPolicy) IngestEvent(_ context.Context, event *types.Event) error {
	p.stats.incTotalEvents()
	if IsDroppable(event) {
		p.stats.incEventsDropped(event.Level)
	} else {
		p.stats.incEventsPersisted(1)
	}
	return nil
}

// Flush is a no-op.
func (p *NoopPolicy) Flush(_ context.Context) error {
	p.stats.incFlush()
	return nil
}

// Close is a no-op.
func (p *NoopPolicy) Close() error {
	return nil
}

// Stats returns the policy statistics.
func (p *NoopPolicy) Stats() Stats {
	return p.stats.snapshot()
}
