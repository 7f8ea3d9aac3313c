package eventbuilder

import (
	"time"

	"github.com/pithecene-io/faultline/normalize"
	"github.com/pithecene-io/faultline/types"
)

// ClientOptions are the SDK options the builder reads on every call.
type ClientOptions struct {
	// NormalizeDepth bounds the depth of extra.__serialized__.
	NormalizeDepth int
	// NormalizeMaxBreadth bounds the entries per container in extra.__serialized__.
	NormalizeMaxBreadth int
	// MaxSerializedSize bounds the JSON size of extra.__serialized__ in bytes.
	MaxSerializedSize int
	// AttachStacktrace attaches synthetic frames to message captures.
	AttachStacktrace bool
}

// DefaultOptions returns the default client options.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		NormalizeDepth:      normalize.DefaultDepth,
		NormalizeMaxBreadth: normalize.DefaultMaxBreadth,
		MaxSerializedSize:   normalize.DefaultMaxSize,
	}
}

// withDefaults fills unset bounds.
func (o ClientOptions) withDefaults() ClientOptions {
	if o.NormalizeDepth <= 0 {
		o.NormalizeDepth = normalize.DefaultDepth
	}
	if o.NormalizeMaxBreadth <= 0 {
		o.NormalizeMaxBreadth = normalize.DefaultMaxBreadth
	}
	if o.MaxSerializedSize <= 0 {
		o.MaxSerializedSize = normalize.DefaultMaxSize
	}
	return o
}

// OptionsSource provides the current client options.
// Options may change between calls; the builder never caches them.
type OptionsSource interface {
	ClientOptions() ClientOptions
}

// StaticOptions is an OptionsSource with fixed options.
type StaticOptions ClientOptions

// ClientOptions implements OptionsSource.
func (o StaticOptions) ClientOptions() ClientOptions {
	return ClientOptions(o)
}

// SyntheticFactory constructs a throwaway error at the capture site,
// used only for its stack.
type SyntheticFactory func() *types.ErrorValue

// Hint carries capture-site context.
type Hint struct {
	// SyntheticException provides a stack for non-error captures.
	SyntheticException *types.ErrorValue
	// EventID is copied onto the event when set.
	EventID string
	// IsUnhandledRejection selects the promise rejection message templates.
	IsUnhandledRejection bool
	// Mechanism overrides the default mechanism fields.
	Mechanism *types.Mechanism
	// Timestamp is the capture time; zero means now.
	Timestamp time.Time
}
