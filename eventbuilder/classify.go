package eventbuilder

import "github.com/pithecene-io/faultline/types"

// Class is the extraction path chosen for a captured value.
type Class int

// Classes in precedence order.
const (
	// ClassErrorEvent is an error event wrapping an inner value.
	ClassErrorEvent Class = iota
	// ClassDOMException is a DOMException or legacy DOMError.
	ClassDOMException
	// ClassError is a native error.
	ClassError
	// ClassObject is a UI event, an error event without an inner value, or a plain object.
	ClassObject
	// ClassPrimitive is anything else; it is captured as a message.
	ClassPrimitive
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassErrorEvent:
		return "error_event"
	case ClassDOMException:
		return "dom_exception"
	case ClassError:
		return "error"
	case ClassObject:
		return "object"
	default:
		return "primitive"
	}
}

// Classify decides which extraction path applies to v.
// The first matching case wins.
func Classify(v types.Thrown) Class {
	switch val := v.(type) {
	case *types.ErrorEvent:
		if val == nil {
			return ClassPrimitive
		}
		if val.Error != nil {
			return ClassErrorEvent
		}
		return ClassObject
	case *types.DOMException:
		if val == nil {
			return ClassPrimitive
		}
		return ClassDOMException
	case *types.ErrorValue:
		if val == nil {
			return ClassPrimitive
		}
		return ClassError
	case *types.UIEvent:
		if val == nil {
			return ClassPrimitive
		}
		return ClassObject
	case types.Object, types.HostObject:
		return ClassObject
	default:
		return ClassPrimitive
	}
}
