// Package ingest runs the capture ingestion loop.
//
// An Engine reads length-prefixed msgpack frames from an SDK host, builds
// one event per capture, hands it to the ingestion policy and publishes a
// notification. A Session wraps an Engine with end-of-stream flushing,
// outcome classification and the metrics record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/faultline/adapter"
	"github.com/pithecene-io/faultline/eventbuilder"
	"github.com/pithecene-io/faultline/ipc"
	"github.com/pithecene-io/faultline/log"
	"github.com/pithecene-io/faultline/metrics"
	"github.com/pithecene-io/faultline/policy"
	"github.com/pithecene-io/faultline/types"
)

// DefaultPublishTimeout bounds a single adapter publish.
const DefaultPublishTimeout = 10 * time.Second

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Builder builds events. Nil uses eventbuilder defaults.
	Builder *eventbuilder.Builder
	// Policy receives every built event (required).
	Policy policy.Policy
	// Adapter publishes notifications. Nil disables publishing.
	Adapter adapter.Adapter
	// Meta identifies the session on notifications.
	Meta types.IngestMeta
	// Logger defaults to a no-op logger.
	Logger *log.Logger
	// Collector may be nil; all Collector methods are nil-safe.
	Collector *metrics.Collector
	// PublishTimeout bounds each publish (default 10s).
	PublishTimeout time.Duration
	// FailOnDecodeError stops ingestion on the first undecodable frame
	// instead of skipping it.
	FailOnDecodeError bool
	// NewID generates event IDs for captures that carry none.
	NewID func() string
	// Now is the clock for captures without a timestamp.
	Now func() time.Time
}

// Result summarizes an engine run.
type Result struct {
	Captures       int64
	Exceptions     int64
	Messages       int64
	DecodeErrors   int64
	FlushFrames    int64
	PublishErrors  int64
	LastEventID    string
	InvalidLevels  int64
	FramesParsed   int64
	SyntheticCount int64
}

// Engine handles capture frame ingestion.
//   - Frames are processed in order
//   - Partial or oversized frames are fatal (no resync)
//   - Undecodable frames are skipped unless FailOnDecodeError is set
//   - Policy failure stops ingestion
//   - Publish failures are logged and counted, never fatal
type Engine struct {
	decoder *ipc.FrameDecoder
	config  EngineConfig
	logger  *log.Logger
	result  Result
}

// NewEngine creates an engine reading frames from r.
func NewEngine(r io.Reader, cfg EngineConfig) *Engine {
	if cfg.Builder == nil {
		cfg.Builder = eventbuilder.New(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if cfg.NewID == nil {
		cfg.NewID = newEventID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		decoder: ipc.NewFrameDecoder(r),
		config:  cfg,
		logger:  cfg.Logger,
	}
}

// newEventID returns a dashless UUID, the event_id format SDK hosts use.
func newEventID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Result returns the counts accumulated so far.
func (e *Engine) Result() Result {
	return e.result
}

// Run runs the ingestion loop until EOF or a fatal error.
// Returns:
//   - nil: stream ended cleanly (EOF)
//   - *IngestError with Kind=IngestErrorStream: frame/stream error
//   - *IngestError with Kind=IngestErrorPolicy: policy failure
//   - *IngestError with Kind=IngestErrorBuild: undecodable capture (FailOnDecodeError)
//   - *IngestError with Kind=IngestErrorCanceled: context canceled
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return &IngestError{Kind: IngestErrorCanceled, Err: err}
		}

		payload, err := e.decoder.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			e.logger.Error("frame error", map[string]any{
				"error": err.Error(),
			})
			return &IngestError{
				Kind: IngestErrorStream,
				Err:  fmt.Errorf("frame error: %w", err),
			}
		}

		if err := e.processFrame(ctx, payload); err != nil {
			return err
		}
	}
}

func (e *Engine) processFrame(ctx context.Context, payload []byte) error {
	decoded, err := ipc.DecodeFrame(payload)
	if err != nil {
		e.result.DecodeErrors++
		e.config.Collector.IncIPCDecodeErrors()
		if ipc.IsFatalFrameError(err) {
			return &IngestError{Kind: IngestErrorStream, Err: fmt.Errorf("frame decode error: %w", err)}
		}
		if e.config.FailOnDecodeError {
			e.logger.Error("frame decode error", map[string]any{"error": err.Error()})
			return &IngestError{Kind: IngestErrorBuild, Err: fmt.Errorf("frame decode error: %w", err)}
		}
		e.logger.Warn("skipping undecodable frame", map[string]any{"error": err.Error()})
		return nil
	}

	switch frame := decoded.(type) {
	case *types.CaptureEnvelope:
		return e.processCapture(ctx, frame)
	case *types.FlushFrame:
		e.result.FlushFrames++
		if err := e.config.Policy.Flush(ctx); err != nil {
			e.logger.Error("policy flush failed", map[string]any{"error": err.Error()})
			return &IngestError{Kind: IngestErrorPolicy, Err: fmt.Errorf("policy flush: %w", err)}
		}
		return nil
	default:
		return &IngestError{
			Kind: IngestErrorStream,
			Err:  fmt.Errorf("unexpected frame type: %T", decoded),
		}
	}
}

func (e *Engine) processCapture(ctx context.Context, env *types.CaptureEnvelope) error {
	e.result.Captures++
	e.config.Collector.IncCaptureReceived()

	event := e.BuildEvent(env)
	e.record(event)

	if err := e.config.Policy.IngestEvent(ctx, event); err != nil {
		e.logger.Error("policy ingestion failed", map[string]any{
			"event_id": event.EventID,
			"level":    string(event.Level),
			"error":    err.Error(),
		})
		return &IngestError{
			Kind: IngestErrorPolicy,
			Err:  fmt.Errorf("policy failure: %w", err),
		}
	}

	e.result.LastEventID = event.EventID
	e.publish(ctx, event)
	return nil
}

// BuildEvent turns one capture into an event.
func (e *Engine) BuildEvent(env *types.CaptureEnvelope) *types.Event {
	hint := &eventbuilder.Hint{
		EventID:              env.EventID,
		IsUnhandledRejection: env.UnhandledRejection,
		Mechanism:            env.Mechanism,
		Timestamp:            env.Timestamp(e.config.Now().UTC()),
	}
	if hint.EventID == "" {
		hint.EventID = e.config.NewID()
	}
	if env.Synthetic != nil {
		if synthetic, ok := env.Synthetic.Decode().(*types.ErrorValue); ok {
			hint.SyntheticException = synthetic
		}
	}

	var event *types.Event
	switch env.Kind {
	case types.CaptureMessage:
		event = e.config.Builder.EventFromMessage(env.MessageValue(), e.captureLevel(env), hint)
	default:
		event = e.config.Builder.EventFromException(env.Value.Decode(), hint)
	}

	if env.Source != "" && env.Source != e.config.Meta.Source {
		if event.Tags == nil {
			event.Tags = map[string]string{}
		}
		event.Tags["capture.source"] = env.Source
	}
	if e.config.Meta.Release != nil {
		if event.Tags == nil {
			event.Tags = map[string]string{}
		}
		event.Tags["release"] = *e.config.Meta.Release
	}
	return event
}

// captureLevel parses the message level. Unknown levels fall back to info.
func (e *Engine) captureLevel(env *types.CaptureEnvelope) types.Severity {
	if env.Level == "" {
		return types.SeverityInfo
	}
	level, err := types.ParseSeverity(env.Level)
	if err != nil {
		e.result.InvalidLevels++
		e.logger.Warn("invalid capture level, using info", map[string]any{
			"level":    env.Level,
			"event_id": env.EventID,
		})
		return types.SeverityInfo
	}
	return level
}

func (e *Engine) record(event *types.Event) {
	exc := event.PrimaryException()
	if exc == nil {
		e.result.Messages++
		e.config.Collector.IncMessageEvent()
		return
	}
	e.result.Exceptions++
	e.config.Collector.IncExceptionEvent()

	frames := exc.FrameCount()
	e.result.FramesParsed += int64(frames)
	e.config.Collector.AddFramesParsed(frames)

	if exc.Mechanism != nil && exc.Mechanism.Synthetic != nil && *exc.Mechanism.Synthetic {
		e.result.SyntheticCount++
		e.config.Collector.IncSyntheticEvent()
	}
}

func (e *Engine) publish(ctx context.Context, event *types.Event) {
	if e.config.Adapter == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, e.config.PublishTimeout)
	defer cancel()

	n := adapter.NewNotification(event, e.config.Meta)
	if err := e.config.Adapter.Publish(pubCtx, n); err != nil {
		e.result.PublishErrors++
		e.config.Collector.IncPublishFailure()
		e.logger.Warn("notification publish failed", map[string]any{
			"event_id": event.EventID,
			"error":    err.Error(),
		})
		return
	}
	e.config.Collector.IncPublishSuccess()
}
