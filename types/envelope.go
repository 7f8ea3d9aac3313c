package types

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// FrameType discriminates frames on the capture stream.
type FrameType string

// Frame type constants.
const (
	FrameTypeCapture FrameType = "capture"
	FrameTypeFlush   FrameType = "flush"
)

// CaptureKind selects the event builder entry point.
type CaptureKind string

// Capture kinds.
const (
	CaptureException CaptureKind = "exception"
	CaptureMessage   CaptureKind = "message"
)

// CaptureEnvelope is one capture sent by an SDK host.
// All fields use msgpack tags to match the host wire format.
type CaptureEnvelope struct {
	// Type is always FrameTypeCapture.
	Type FrameType `msgpack:"type" json:"type"`
	// Kind selects exception or message capture.
	Kind CaptureKind `msgpack:"kind" json:"kind"`
	// EventID is copied onto the event when present.
	EventID string `msgpack:"event_id,omitempty" json:"event_id,omitempty"`
	// Level applies to message captures; exceptions are always error.
	Level string `msgpack:"level,omitempty" json:"level,omitempty"`
	// Source names the capturing application.
	Source string `msgpack:"source,omitempty" json:"source,omitempty"`
	// Value is the captured value for exception captures.
	Value *ThrownValue `msgpack:"value,omitempty" json:"value,omitempty"`
	// Message is the captured text for message captures.
	Message string `msgpack:"message,omitempty" json:"message,omitempty"`
	// Template and Params carry a parameterized message.
	Template string `msgpack:"template,omitempty" json:"template,omitempty"`
	Params   []any  `msgpack:"params,omitempty" json:"params,omitempty"`
	// Synthetic is an error constructed at the capture site for its stack.
	Synthetic *ThrownValue `msgpack:"synthetic,omitempty" json:"synthetic,omitempty"`
	// UnhandledRejection marks captures from a rejection handler.
	UnhandledRejection bool `msgpack:"unhandled_rejection,omitempty" json:"unhandled_rejection,omitempty"`
	// Mechanism overrides the default capture mechanism.
	Mechanism *Mechanism `msgpack:"mechanism,omitempty" json:"mechanism,omitempty"`
	// Ts is the capture timestamp in ISO 8601 UTC format.
	Ts string `msgpack:"ts,omitempty" json:"ts,omitempty"`
}

// Timestamp parses Ts, falling back to now.
func (c *CaptureEnvelope) Timestamp(now time.Time) time.Time {
	if c.Ts == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339Nano, c.Ts)
	if err != nil {
		return now
	}
	return ts
}

// MessageValue returns the message capture as a thrown value.
func (c *CaptureEnvelope) MessageValue() Thrown {
	if c.Template != "" {
		return ParameterizedString{Template: c.Template, Params: c.Params}
	}
	return Primitive{Value: c.Message}
}

// FlushFrame asks the ingester to flush buffered events.
type FlushFrame struct {
	Type FrameType `msgpack:"type" json:"type"`
}

// ThrownKind discriminates wire thrown values.
type ThrownKind string

// Thrown kinds.
const (
	ThrownKindError        ThrownKind = "error"
	ThrownKindDOMException ThrownKind = "dom_exception"
	ThrownKindDOMError     ThrownKind = "dom_error"
	ThrownKindErrorEvent   ThrownKind = "error_event"
	ThrownKindEvent        ThrownKind = "event"
	ThrownKindObject       ThrownKind = "object"
	ThrownKindPrimitive    ThrownKind = "primitive"
)

// ThrownValue is the wire form of a captured value.
// Object fields holding a map with a known "kind" decode as nested thrown values.
type ThrownValue struct {
	Kind        ThrownKind     `msgpack:"kind" json:"kind"`
	Name        string         `msgpack:"name,omitempty" json:"name,omitempty"`
	Message     any            `msgpack:"message,omitempty" json:"message,omitempty"`
	Stack       *string        `msgpack:"stack,omitempty" json:"stack,omitempty"`
	Stacktrace  string         `msgpack:"stacktrace,omitempty" json:"stacktrace,omitempty"`
	FramesToPop *int           `msgpack:"frames_to_pop,omitempty" json:"frames_to_pop,omitempty"`
	Wasm        bool           `msgpack:"wasm,omitempty" json:"wasm,omitempty"`
	Code        *int           `msgpack:"code,omitempty" json:"code,omitempty"`
	ClassName   string         `msgpack:"class_name,omitempty" json:"class_name,omitempty"`
	EventType   string         `msgpack:"event_type,omitempty" json:"event_type,omitempty"`
	Error       *ThrownValue   `msgpack:"error,omitempty" json:"error,omitempty"`
	Fields      map[string]any `msgpack:"fields,omitempty" json:"fields,omitempty"`
	Value       any            `msgpack:"value,omitempty" json:"value,omitempty"`
}

var thrownKinds = map[ThrownKind]bool{
	ThrownKindError:        true,
	ThrownKindDOMException: true,
	ThrownKindDOMError:     true,
	ThrownKindErrorEvent:   true,
	ThrownKindEvent:        true,
	ThrownKindObject:       true,
	ThrownKindPrimitive:    true,
}

// Decode maps the wire value onto the thrown-value model.
// Unknown kinds decode as primitives so every capture still yields an event.
func (v *ThrownValue) Decode() Thrown {
	if v == nil {
		return Primitive{}
	}
	switch v.Kind {
	case ThrownKindError:
		ev := &ErrorValue{
			Name:        v.Name,
			Message:     decodeField(v.Message),
			Stacktrace:  v.Stacktrace,
			FramesToPop: v.FramesToPop,
			Wasm:        v.Wasm,
			Fields:      decodeFields(v.Fields),
		}
		if v.Stack != nil {
			ev.Stack = *v.Stack
		}
		return ev
	case ThrownKindDOMException, ThrownKindDOMError:
		msg, _ := v.Message.(string)
		return &DOMException{
			Legacy:  v.Kind == ThrownKindDOMError,
			Name:    v.Name,
			Message: msg,
			Code:    v.Code,
			Stack:   v.Stack,
		}
	case ThrownKindErrorEvent:
		msg, _ := v.Message.(string)
		ev := &ErrorEvent{Message: msg, Fields: decodeFields(v.Fields)}
		if v.Error != nil {
			ev.Error = v.Error.Decode()
		}
		return ev
	case ThrownKindEvent:
		return &UIEvent{
			ClassName: v.ClassName,
			EventType: v.EventType,
			Fields:    decodeFields(v.Fields),
		}
	case ThrownKindObject:
		obj := decodeFields(v.Fields)
		if obj == nil {
			obj = map[string]any{}
		}
		return Object(obj)
	default:
		return Primitive{Value: v.Value}
	}
}

func decodeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, f := range fields {
		out[k] = decodeField(f)
	}
	return out
}

// decodeField converts nested wire values. Maps tagged with a known kind
// become thrown values; other maps and slices are walked.
func decodeField(f any) any {
	switch val := f.(type) {
	case map[string]any:
		if kind, ok := val["kind"].(string); ok && thrownKinds[ThrownKind(kind)] {
			if tv, err := thrownValueFromMap(val); err == nil {
				switch d := tv.Decode().(type) {
				case Object:
					return map[string]any(d)
				case Primitive:
					return d.Value
				default:
					return d
				}
			}
		}
		return decodeFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = decodeField(item)
		}
		return out
	default:
		return f
	}
}

// thrownValueFromMap re-decodes a generic map through msgpack so both
// msgpack and JSON captures share one struct mapping.
func thrownValueFromMap(m map[string]any) (*ThrownValue, error) {
	data, err := msgpack.Marshal(m)
	if err != nil {
		return nil, err
	}
	var tv ThrownValue
	if err := msgpack.Unmarshal(data, &tv); err != nil {
		return nil, err
	}
	return &tv, nil
}
