// Package eventbuilder turns captured values into exception records and events.
//
// Classification follows a fixed precedence (see Classify). Native errors
// have their stacks parsed; objects and UI events are described by a
// message template and a bounded structural copy; primitives become
// message captures. Nothing in this package fails: every input yields an
// exception or a message.
package eventbuilder

import (
	"time"

	"github.com/pithecene-io/faultline/normalize"
	"github.com/pithecene-io/faultline/stack"
	"github.com/pithecene-io/faultline/types"
)

const defaultMechanismType = "generic"

// Builder builds exceptions and events.
// A Builder holds no mutable state and is safe for concurrent use.
type Builder struct {
	parser    *stack.Parser
	options   OptionsSource
	synthetic SyntheticFactory
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithParser sets the stack parser. The default uses stack.DefaultParsers.
func WithParser(p *stack.Parser) Option {
	return func(b *Builder) {
		if p != nil {
			b.parser = p
		}
	}
}

// WithSyntheticFactory sets the factory used when a hint carries no synthetic error.
func WithSyntheticFactory(f SyntheticFactory) Option {
	return func(b *Builder) {
		b.synthetic = f
	}
}

// WithClock sets the clock used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a builder. A nil options source uses DefaultOptions.
func New(options OptionsSource, opts ...Option) *Builder {
	if options == nil {
		options = StaticOptions(DefaultOptions())
	}
	b := &Builder{
		parser:  stack.New(),
		options: options,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is an exception with the event context gathered while building it.
type Result struct {
	Exception types.Exception
	// Extra holds extra.__serialized__ for non-error captures.
	Extra map[string]any
	// Tags holds DOMException.code when present.
	Tags map[string]string
	// Synthetic is set when the capture was not an error.
	Synthetic bool
}

// draft is an event under construction.
type draft struct {
	exception *types.Exception
	message   string
	logEntry  *types.LogEntry
	extra     map[string]any
	tags      map[string]string
	synthetic bool
}

// BuildExceptionFromValue builds the exception record for any captured value.
// The exception carries no mechanism; EventFromException attaches it.
func (b *Builder) BuildExceptionFromValue(value types.Thrown, hint *Hint) Result {
	hint = orEmpty(hint)
	opts := b.options.ClientOptions().withDefaults()
	d := b.fromUnknown(value, b.syntheticFor(hint), opts, hint.IsUnhandledRejection)
	return Result{
		Exception: *d.exception,
		Extra:     d.extra,
		Tags:      d.tags,
		Synthetic: d.synthetic,
	}
}

// EventFromException builds an error-level event from any captured value.
func (b *Builder) EventFromException(value types.Thrown, hint *Hint) *types.Event {
	hint = orEmpty(hint)
	opts := b.options.ClientOptions().withDefaults()
	d := b.fromUnknown(value, b.syntheticFor(hint), opts, hint.IsUnhandledRejection)

	ev := b.assemble(d, hint)
	ev.Level = types.SeverityError
	return ev
}

// EventFromMessage builds a message event. An empty level means info.
func (b *Builder) EventFromMessage(message types.Thrown, level types.Severity, hint *Hint) *types.Event {
	hint = orEmpty(hint)
	opts := b.options.ClientOptions().withDefaults()
	d := b.fromString(message, b.syntheticFor(hint), opts.AttachStacktrace)

	ev := b.assemble(d, hint)
	if level == "" {
		level = types.SeverityInfo
	}
	ev.Level = level
	return ev
}

// ParseStack parses raw stack text with the builder's parser.
func (b *Builder) ParseStack(text string, skipLines, popFrames int) []types.Frame {
	return b.parser.Parse(text, skipLines, popFrames)
}

// fromUnknown dispatches on the classification of value.
func (b *Builder) fromUnknown(value types.Thrown, synthetic *types.ErrorValue, opts ClientOptions, unhandled bool) *draft {
	switch Classify(value) {
	case ClassErrorEvent:
		return b.fromUnknown(value.(*types.ErrorEvent).Error, synthetic, opts, unhandled)

	case ClassDOMException:
		dom := value.(*types.DOMException)
		var d *draft
		if dom.Stack != nil {
			d = b.fromError(domAsError(dom))
		} else {
			d = &draft{exception: &types.Exception{Type: "Error", Value: domMessage(dom)}}
		}
		d.tags = domCodeTags(dom)
		return d

	case ClassError:
		return b.fromError(value.(*types.ErrorValue))

	case ClassObject:
		d := b.fromPlainObject(value, synthetic, opts, unhandled)
		d.synthetic = true
		return d

	default:
		d := b.fromString(types.Primitive{Value: messageText(value)}, synthetic, opts.AttachStacktrace)
		text := d.message
		d.message = ""
		if d.exception == nil {
			d.exception = &types.Exception{Value: text}
		}
		if d.exception.Value == "" {
			d.exception.Value = noErrorMessage
		}
		if d.exception.Type == "" {
			d.exception.Type = "Error"
		}
		d.synthetic = true
		return d
	}
}

func (b *Builder) fromError(ex *types.ErrorValue) *draft {
	return &draft{exception: b.exceptionFromError(ex)}
}

// exceptionFromError extracts type, value and frames from a native error.
func (b *Builder) exceptionFromError(ex *types.ErrorValue) *types.Exception {
	exc := &types.Exception{
		Type:  extractType(ex),
		Value: extractMessage(ex),
	}
	if frames := b.parser.ParseError(ex); len(frames) > 0 {
		exc.Stacktrace = &types.Stacktrace{Frames: frames}
	}
	if exc.Type == "" && exc.Value == "" {
		exc.Value = unrecoverableMessage
	}
	return exc
}

// fromPlainObject describes an object, UI event or inner-less error event.
// An own property holding a native error is reported instead of the wrapper.
func (b *Builder) fromPlainObject(value types.Thrown, synthetic *types.ErrorValue, opts ClientOptions, unhandled bool) *draft {
	props := ownProperties(value)
	d := &draft{
		extra: map[string]any{
			SerializedExtraKey: normalize.NormalizeToSize(value, opts.NormalizeDepth, opts.NormalizeMaxBreadth, opts.MaxSerializedSize),
		},
	}

	if nested := errorPropertyFromObject(props); nested != nil {
		d.exception = b.exceptionFromError(nested)
		return d
	}

	d.exception = &types.Exception{
		Type:  nonErrorObjectType(value, unhandled),
		Value: nonErrorObjectValue(value, props, unhandled),
	}
	if synthetic != nil {
		if frames := b.parser.ParseError(synthetic); len(frames) > 0 {
			d.exception.Stacktrace = &types.Stacktrace{Frames: frames}
		}
	}
	return d
}

// fromString builds a message capture. Parameterized messages become a
// log entry and never carry an exception. Otherwise, with attachStacktrace
// and a synthetic stack, the message becomes an exception value.
func (b *Builder) fromString(message types.Thrown, synthetic *types.ErrorValue, attachStacktrace bool) *draft {
	if ps, ok := message.(types.ParameterizedString); ok {
		return &draft{logEntry: &types.LogEntry{Message: ps.Template, Params: ps.Params}}
	}

	text := messageText(message)
	if attachStacktrace && synthetic != nil {
		if frames := b.parser.ParseError(synthetic); len(frames) > 0 {
			return &draft{
				exception: &types.Exception{Value: text, Stacktrace: &types.Stacktrace{Frames: frames}},
				synthetic: true,
			}
		}
	}
	return &draft{message: text}
}

// assemble wraps a draft into an event and stamps mechanism defaults.
func (b *Builder) assemble(d *draft, hint *Hint) *types.Event {
	ev := &types.Event{
		EventID:   hint.EventID,
		Message:   d.message,
		LogEntry:  d.logEntry,
		Extra:     d.extra,
		Tags:      d.tags,
		Timestamp: hint.Timestamp,
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.now().UTC()
	}
	if d.exception != nil {
		exc := *d.exception
		exc.Mechanism = mergeMechanism(exc.Mechanism, d.synthetic, hint.Mechanism)
		ev.Exception = &types.ExceptionValues{Values: []types.Exception{exc}}
	}
	return ev
}

// mergeMechanism layers defaults, the current mechanism, the synthetic
// marker and the hint override, in that order.
func mergeMechanism(current *types.Mechanism, synthetic bool, override *types.Mechanism) *types.Mechanism {
	handled := true
	m := &types.Mechanism{Type: defaultMechanismType, Handled: &handled}
	apply := func(src *types.Mechanism) {
		if src == nil {
			return
		}
		if src.Type != "" {
			m.Type = src.Type
		}
		if src.Handled != nil {
			h := *src.Handled
			m.Handled = &h
		}
		if src.Synthetic != nil {
			s := *src.Synthetic
			m.Synthetic = &s
		}
	}
	apply(current)
	if synthetic {
		s := true
		m.Synthetic = &s
	}
	apply(override)
	return m
}

func (b *Builder) syntheticFor(hint *Hint) *types.ErrorValue {
	if hint.SyntheticException != nil {
		return hint.SyntheticException
	}
	if b.synthetic != nil {
		return b.synthetic()
	}
	return nil
}

func orEmpty(hint *Hint) *Hint {
	if hint == nil {
		return &Hint{}
	}
	return hint
}
