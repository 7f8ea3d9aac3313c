package types

import (
	"fmt"
	"time"
)

// ContractVersion is the capture and notification contract version.
const ContractVersion = "1.0.0"

// UnknownFunction is the function name used when an engine did not report one.
const UnknownFunction = "?"

// Severity is the level of an assembled event.
type Severity string

// Severity constants.
const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityLog     Severity = "log"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

var validSeverities = map[Severity]bool{
	SeverityFatal:   true,
	SeverityError:   true,
	SeverityWarning: true,
	SeverityLog:     true,
	SeverityInfo:    true,
	SeverityDebug:   true,
}

// ParseSeverity parses a severity string.
// The empty string is rejected; callers choose their own default.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !validSeverities[sev] {
		return "", fmt.Errorf("invalid severity %q (must be fatal, error, warning, log, info, or debug)", s)
	}
	return sev, nil
}

// Frame is one normalized call-stack frame.
type Frame struct {
	// Filename is the origin URI, path or pseudo-URI of the frame.
	Filename string `json:"filename,omitempty" msgpack:"filename,omitempty" yaml:"filename,omitempty"`
	// Function is the display name, UnknownFunction when not reported.
	Function string `json:"function,omitempty" msgpack:"function,omitempty" yaml:"function,omitempty"`
	// Lineno is absent when the engine did not report a line.
	Lineno *int `json:"lineno,omitempty" msgpack:"lineno,omitempty" yaml:"lineno,omitempty"`
	// Colno is absent when the engine did not report a column.
	Colno *int `json:"colno,omitempty" msgpack:"colno,omitempty" yaml:"colno,omitempty"`
	// InApp is always true for parsed frames.
	InApp bool `json:"in_app" msgpack:"in_app" yaml:"in_app"`
}

// Stacktrace holds frames ordered outermost caller first, throw site last.
type Stacktrace struct {
	Frames []Frame `json:"frames" msgpack:"frames" yaml:"frames"`
}

// Mechanism describes how an exception was captured.
type Mechanism struct {
	// Type is the capture mechanism, "generic" unless set by the capture site.
	Type string `json:"type" msgpack:"type" yaml:"type"`
	// Handled is false for exceptions reaching a global handler.
	Handled *bool `json:"handled,omitempty" msgpack:"handled,omitempty" yaml:"handled,omitempty"`
	// Synthetic marks exceptions built from a non-error value.
	Synthetic *bool `json:"synthetic,omitempty" msgpack:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// Exception is a normalized exception record.
type Exception struct {
	// Type is the exception type; empty when unknown.
	Type string `json:"type,omitempty" msgpack:"type,omitempty" yaml:"type,omitempty"`
	// Value is the exception message.
	Value string `json:"value" msgpack:"value" yaml:"value"`
	// Stacktrace is nil when no frames could be parsed.
	Stacktrace *Stacktrace `json:"stacktrace,omitempty" msgpack:"stacktrace,omitempty" yaml:"stacktrace,omitempty"`
	// Mechanism is attached by the event assembler.
	Mechanism *Mechanism `json:"mechanism,omitempty" msgpack:"mechanism,omitempty" yaml:"mechanism,omitempty"`
}

// FrameCount returns the number of parsed frames.
func (e Exception) FrameCount() int {
	if e.Stacktrace == nil {
		return 0
	}
	return len(e.Stacktrace.Frames)
}

// ExceptionValues wraps the exception list of an event.
type ExceptionValues struct {
	Values []Exception `json:"values" msgpack:"values" yaml:"values"`
}

// LogEntry is a parameterized message.
type LogEntry struct {
	// Message is the template string.
	Message string `json:"message" msgpack:"message" yaml:"message"`
	// Params are the positional template arguments.
	Params []any `json:"params,omitempty" msgpack:"params,omitempty" yaml:"params,omitempty"`
}

// Event is the outward shape produced for one capture.
// Exception and Message/LogEntry are mutually exclusive.
type Event struct {
	EventID   string            `json:"event_id,omitempty" msgpack:"event_id,omitempty" yaml:"event_id,omitempty"`
	Level     Severity          `json:"level,omitempty" msgpack:"level,omitempty" yaml:"level,omitempty"`
	Message   string            `json:"message,omitempty" msgpack:"message,omitempty" yaml:"message,omitempty"`
	LogEntry  *LogEntry         `json:"logentry,omitempty" msgpack:"logentry,omitempty" yaml:"logentry,omitempty"`
	Exception *ExceptionValues  `json:"exception,omitempty" msgpack:"exception,omitempty" yaml:"exception,omitempty"`
	Extra     map[string]any    `json:"extra,omitempty" msgpack:"extra,omitempty" yaml:"extra,omitempty"`
	Tags      map[string]string `json:"tags,omitempty" msgpack:"tags,omitempty" yaml:"tags,omitempty"`
	Timestamp time.Time         `json:"timestamp" msgpack:"timestamp" yaml:"timestamp"`
}

// PrimaryException returns the first exception value, or nil for message events.
func (e *Event) PrimaryException() *Exception {
	if e == nil || e.Exception == nil || len(e.Exception.Values) == 0 {
		return nil
	}
	return &e.Exception.Values[0]
}

// IsMessage reports whether the event carries a message instead of an exception.
func (e *Event) IsMessage() bool {
	return e.PrimaryException() == nil
}

// Summary returns a one-line description of the event.
func (e *Event) Summary() string {
	if ex := e.PrimaryException(); ex != nil {
		if ex.Type == "" {
			return ex.Value
		}
		return ex.Type + ": " + ex.Value
	}
	if e.LogEntry != nil {
		return e.LogEntry.Message
	}
	return e.Message
}
