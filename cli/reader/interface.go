package reader

import "context"

// Reader abstracts read-only data access for CLI commands.
// Implementations may read a Lode dataset or return fixtures.
type Reader interface {
	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, opts ListOptions) ([]EventListItem, error)
	// InspectEvent returns one event by ID.
	InspectEvent(ctx context.Context, eventID string) (*InspectEventResponse, error)
	// StatsEvents aggregates the events matching opts.
	StatsEvents(ctx context.Context, opts ListOptions) (*EventStats, error)
	// StatsMetrics returns the latest session metrics record.
	StatsMetrics(ctx context.Context, ingestID, source string) (*MetricsSnapshot, error)
}
