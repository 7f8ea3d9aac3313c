package types

import (
	"fmt"
	"strings"
)

// Thrown is a value captured at a throw or capture site.
// The set of variants is closed; classification switches over them.
type Thrown interface {
	isThrown()
}

// ErrorValue is a native error object.
type ErrorValue struct {
	// Name is the error name, empty when absent.
	Name string
	// Message is usually a string. Structured messages may carry a nested
	// error.message; WebAssembly traps may carry a [name, message] pair.
	Message any
	// Stack is the engine's multi-line stack text.
	Stack string
	// Stacktrace is the legacy Opera stacktrace property.
	Stacktrace string
	// FramesToPop is the number of innermost frames to discard, when set.
	FramesToPop *int
	// Wasm marks a WebAssembly exception.
	Wasm bool
	// Fields holds the remaining own enumerable properties.
	Fields map[string]any
}

// DOMException is a DOMException, or a DOMError when Legacy is set.
type DOMException struct {
	Legacy  bool
	Name    string
	Message string
	Code    *int
	// Stack is nil when the object exposes no stack property.
	Stack *string
}

// ErrorEvent is a host error-event wrapper.
type ErrorEvent struct {
	Message string
	// Error is nil for cross-origin events that carry no inner error.
	Error  Thrown
	Fields map[string]any
}

// UIEvent is a generic host event.
type UIEvent struct {
	ClassName string
	EventType string
	Fields    map[string]any
}

// Object is a plain structured value.
type Object map[string]any

// Primitive is a string, number, boolean or null.
type Primitive struct {
	Value any
}

// ParameterizedString is a message template with positional arguments.
type ParameterizedString struct {
	Template string
	Params   []any
}

// Guarded is implemented by host objects whose property reads can fail.
type Guarded interface {
	Keys() ([]string, error)
	Get(key string) (any, error)
}

// HostObject wraps a foreign object behind Guarded access.
type HostObject struct {
	Source Guarded
}

func (*ErrorValue) isThrown()         {}
func (*DOMException) isThrown()       {}
func (*ErrorEvent) isThrown()         {}
func (*UIEvent) isThrown()            {}
func (Object) isThrown()              {}
func (Primitive) isThrown()           {}
func (ParameterizedString) isThrown() {}
func (HostObject) isThrown()          {}

// UnknownProperty replaces a property whose read failed.
const UnknownProperty = "<unknown>"

// MessageText returns the message as text for pattern checks.
func (e *ErrorValue) MessageText() string {
	switch m := e.Message.(type) {
	case nil:
		return ""
	case string:
		return m
	default:
		return fmt.Sprint(m)
	}
}

// String renders the template, substituting %s placeholders in order.
func (p ParameterizedString) String() string {
	var b strings.Builder
	rest := p.Template
	i := 0
	for {
		idx := strings.Index(rest, "%s")
		if idx < 0 || i >= len(p.Params) {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:idx])
		fmt.Fprint(&b, p.Params[i])
		rest = rest[idx+2:]
		i++
	}
}

// String renders a primitive the way a host would coerce it to text.
func (p Primitive) String() string {
	switch v := p.Value.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Properties returns the own enumerable properties of a host object.
// Failed reads are replaced with UnknownProperty.
func (h HostObject) Properties() map[string]any {
	if h.Source == nil {
		return map[string]any{}
	}
	keys, err := h.Source.Keys()
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := h.Source.Get(k)
		if err != nil {
			out[k] = UnknownProperty
			continue
		}
		out[k] = v
	}
	return out
}
