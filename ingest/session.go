package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pithecene-io/faultline/adapter"
	"github.com/pithecene-io/faultline/eventbuilder"
	"github.com/pithecene-io/faultline/log"
	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// DefaultFlushTimeout bounds the end-of-stream flush.
const DefaultFlushTimeout = 30 * time.Second

// OutcomeStatus is the terminal status of a session.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeSuccess       OutcomeStatus = "success"
	OutcomeStreamError   OutcomeStatus = "stream_error"
	OutcomePolicyFailure OutcomeStatus = "policy_failure"
	OutcomeBuildError    OutcomeStatus = "build_error"
	OutcomeCanceled      OutcomeStatus = "canceled"
)

// Outcome describes how a session ended.
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
}

// MetricsWriter persists the session metrics snapshot.
type MetricsWriter interface {
	WriteMetrics(ctx context.Context, snap metrics.Snapshot, completedAt time.Time) error
}

// SessionConfig configures a single ingestion session.
type SessionConfig struct {
	// Input is the frame stream (required).
	Input io.Reader
	// Meta identifies the session (required: IngestID and Source).
	Meta *types.IngestMeta
	// Policy is the ingestion policy (required).
	Policy policy.Policy
	// Builder defaults to eventbuilder.New(nil).
	Builder *eventbuilder.Builder
	// Adapter is optional.
	Adapter adapter.Adapter
	// Metrics receives the metrics record when set.
	Metrics MetricsWriter
	// Collector may be nil.
	Collector *metrics.Collector
	// Logger defaults to log.NewLogger(Meta).
	Logger *log.Logger
	// FlushTimeout bounds the final flush (default 30s).
	FlushTimeout time.Duration
	// PublishTimeout bounds each notification publish.
	PublishTimeout time.Duration
	// FailOnDecodeError stops the session on an undecodable frame.
	FailOnDecodeError bool
}

// SessionResult represents the result of a session.
type SessionResult struct {
	Meta        *types.IngestMeta
	Outcome     *Outcome
	Duration    time.Duration
	PolicyStats policy.Stats
	Engine      Result
	Metrics     metrics.Snapshot
}

// Validate checks the required fields.
func (c *SessionConfig) Validate() error {
	if c.Input == nil {
		return errors.New("input is required")
	}
	if c.Policy == nil {
		return errors.New("policy is required")
	}
	if c.Meta == nil {
		return errors.New("ingest metadata is required")
	}
	if c.Meta.IngestID == "" {
		return errors.New("ingest_id is required")
	}
	if c.Meta.Source == "" {
		return errors.New("source is required")
	}
	return nil
}

// RunSession ingests the input stream end-to-end.
//
// Flow:
//  1. Run the engine until EOF or a fatal error
//  2. Flush the policy (best effort on every path)
//  3. Classify the outcome
//  4. Absorb policy stats and write the metrics record
//
// The returned error is non-nil only for invalid configuration; ingestion
// failures are reported in the outcome.
func RunSession(ctx context.Context, cfg SessionConfig) (*SessionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewLogger(cfg.Meta)
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = DefaultFlushTimeout
	}

	start := time.Now()
	logger := cfg.Logger
	logger.Info("starting ingestion", nil)

	engine := NewEngine(cfg.Input, EngineConfig{
		Builder:           cfg.Builder,
		Policy:            cfg.Policy,
		Adapter:           cfg.Adapter,
		Meta:              *cfg.Meta,
		Logger:            logger,
		Collector:         cfg.Collector,
		PublishTimeout:    cfg.PublishTimeout,
		FailOnDecodeError: cfg.FailOnDecodeError,
	})
	ingErr := engine.Run(ctx)

	// Use WithoutCancel so a canceled session still flushes what it buffered.
	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.FlushTimeout)
	flushErr := cfg.Policy.Flush(flushCtx)
	flushCancel()
	if flushErr != nil {
		logger.Warn("policy flush failed (best effort)", map[string]any{
			"error": flushErr.Error(),
		})
	}

	outcome := classify(ingErr, flushErr)
	result := &SessionResult{
		Meta:        cfg.Meta,
		Outcome:     outcome,
		Duration:    time.Since(start),
		PolicyStats: cfg.Policy.Stats(),
		Engine:      engine.Result(),
	}

	ps := result.PolicyStats
	cfg.Collector.AbsorbPolicyStats(ps.TotalEvents, ps.EventsPersisted, ps.EventsDropped, ps.DroppedByLevelStrings())
	result.Metrics = cfg.Collector.Snapshot()

	if cfg.Metrics != nil && cfg.Collector != nil {
		metricsCtx, metricsCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.FlushTimeout)
		if err := cfg.Metrics.WriteMetrics(metricsCtx, result.Metrics, time.Now()); err != nil {
			logger.Warn("metrics write failed", map[string]any{"error": err.Error()})
		}
		metricsCancel()
	}

	logger.Info("ingestion completed", map[string]any{
		"outcome":   string(outcome.Status),
		"captures":  result.Engine.Captures,
		"persisted": ps.EventsPersisted,
		"dropped":   ps.EventsDropped,
		"duration":  result.Duration.String(),
	})
	return result, nil
}

// classify maps engine and flush errors to an outcome.
// Engine errors take precedence over a failed final flush.
func classify(ingErr, flushErr error) *Outcome {
	switch {
	case ingErr == nil && flushErr == nil:
		return &Outcome{Status: OutcomeSuccess, Message: "stream ingested"}
	case ingErr == nil:
		return &Outcome{Status: OutcomePolicyFailure, Message: fmt.Sprintf("policy flush failed: %v", flushErr)}
	case IsPolicyError(ingErr):
		return &Outcome{Status: OutcomePolicyFailure, Message: ingErr.Error()}
	case IsCanceledError(ingErr):
		return &Outcome{Status: OutcomeCanceled, Message: fmt.Sprintf("ingestion canceled: %v", ingErr)}
	case IsBuildError(ingErr):
		return &Outcome{Status: OutcomeBuildError, Message: ingErr.Error()}
	default:
		return &Outcome{Status: OutcomeStreamError, Message: fmt.Sprintf("stream error: %v", ingErr)}
	}
}

// ExitCode maps an outcome to a process exit code.
func (o *Outcome) ExitCode() int {
	switch o.Status {
	case OutcomeSuccess:
		return 0
	case OutcomePolicyFailure:
		return 3
	default:
		return 2
	}
}
