package eventbuilder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pithecene-io/faultline/normalize"
	"github.com/pithecene-io/faultline/types"
)

const (
	noErrorMessage       = "No error message"
	unrecoverableMessage = "Unrecoverable error caught"
	wasmExceptionType    = "WebAssembly.Exception"
	noKeysMessage        = "[object has no keys]"
	maxKeysLength        = 40

	// DOMExceptionCodeTag holds the code of a captured DOMException.
	DOMExceptionCodeTag = "DOMException.code"
	// SerializedExtraKey holds the bounded copy of a non-error capture.
	SerializedExtraKey = "__serialized__"
)

// extractType returns the error name. WebAssembly exceptions without a
// name fall back to the type half of their message pair.
func extractType(ex *types.ErrorValue) string {
	if ex.Name != "" {
		return ex.Name
	}
	if ex.Wasm {
		if name, _, ok := wasmPair(ex.Message); ok {
			return name
		}
		return wasmExceptionType
	}
	return ""
}

// extractMessage returns the error message with fallbacks.
func extractMessage(ex *types.ErrorValue) string {
	switch m := ex.Message.(type) {
	case nil:
		return noErrorMessage
	case string:
		if m == "" {
			return noErrorMessage
		}
		return m
	case map[string]any:
		if inner, ok := m["error"].(map[string]any); ok {
			if msg, ok := inner["message"].(string); ok {
				return msg
			}
		}
		if len(m) == 0 {
			return noErrorMessage
		}
		data, err := normalize.EncodeJSON(m)
		if err != nil {
			return fmt.Sprint(m)
		}
		return string(data)
	}

	if ex.Wasm {
		if _, msg, ok := wasmPair(ex.Message); ok {
			return msg
		}
	}
	text := fmt.Sprint(ex.Message)
	if text == "" {
		return noErrorMessage
	}
	return text
}

// wasmPair unpacks a [name, message] pair.
func wasmPair(message any) (string, string, bool) {
	switch pair := message.(type) {
	case []string:
		if len(pair) == 2 {
			return pair[0], pair[1], true
		}
	case []any:
		if len(pair) == 2 {
			name, ok1 := pair[0].(string)
			msg, ok2 := pair[1].(string)
			if ok1 && ok2 {
				return name, msg, true
			}
		}
	}
	return "", "", false
}

// domAsError treats a DOMException that exposes a stack as a native error.
func domAsError(d *types.DOMException) *types.ErrorValue {
	ev := &types.ErrorValue{Name: d.Name, Message: d.Message}
	if d.Stack != nil {
		ev.Stack = *d.Stack
	}
	return ev
}

// domMessage synthesizes "name: message" for a stackless DOMException.
func domMessage(d *types.DOMException) string {
	name := d.Name
	if name == "" {
		if d.Legacy {
			name = "DOMError"
		} else {
			name = "DOMException"
		}
	}
	if d.Message == "" {
		return name
	}
	return name + ": " + d.Message
}

func domCodeTags(d *types.DOMException) map[string]string {
	if d.Code == nil {
		return nil
	}
	return map[string]string{DOMExceptionCodeTag: strconv.Itoa(*d.Code)}
}

// ownProperties returns the enumerable properties of an object-like capture.
func ownProperties(v types.Thrown) map[string]any {
	switch val := v.(type) {
	case types.Object:
		return val
	case types.HostObject:
		return val.Properties()
	case *types.UIEvent:
		return val.Fields
	case *types.ErrorEvent:
		return val.Fields
	default:
		return nil
	}
}

// errorPropertyFromObject finds the first own property holding a native
// error. Keys are visited in sorted order.
func errorPropertyFromObject(props map[string]any) *types.ErrorValue {
	for _, k := range sortedKeys(props) {
		if ev, ok := props[k].(*types.ErrorValue); ok && ev != nil {
			return ev
		}
	}
	return nil
}

// nonErrorObjectValue renders the exception value for a non-error object.
func nonErrorObjectValue(v types.Thrown, props map[string]any, unhandled bool) string {
	kind := "exception"
	if unhandled {
		kind = "promise rejection"
	}
	switch val := v.(type) {
	case *types.ErrorEvent:
		return fmt.Sprintf("Event `ErrorEvent` captured as %s with message `%s`", kind, val.Message)
	case *types.UIEvent:
		return fmt.Sprintf("Event `%s` (type=%s) captured as %s", eventClassName(val), val.EventType, kind)
	}
	return fmt.Sprintf("Object captured as %s with keys: %s", kind, keysForMessage(props, maxKeysLength))
}

// nonErrorObjectType labels a non-error object exception.
func nonErrorObjectType(v types.Thrown, unhandled bool) string {
	switch val := v.(type) {
	case *types.ErrorEvent:
		return "ErrorEvent"
	case *types.UIEvent:
		return eventClassName(val)
	}
	if unhandled {
		return "UnhandledRejection"
	}
	return "Error"
}

func eventClassName(e *types.UIEvent) string {
	if e.ClassName == "" {
		return "Event"
	}
	return e.ClassName
}

// keysForMessage joins as many sorted keys as fit within maxLength.
// A first key longer than maxLength is truncated with an ellipsis.
func keysForMessage(props map[string]any, maxLength int) string {
	keys := sortedKeys(props)
	if len(keys) == 0 {
		return noKeysMessage
	}
	if utf8.RuneCountInString(keys[0]) >= maxLength {
		return truncate(keys[0], maxLength)
	}
	for n := len(keys); n > 0; n-- {
		serialized := strings.Join(keys[:n], ", ")
		if utf8.RuneCountInString(serialized) > maxLength {
			continue
		}
		return serialized
	}
	return ""
}

func truncate(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// messageText renders a message capture as text.
func messageText(v types.Thrown) string {
	switch val := v.(type) {
	case nil:
		return ""
	case types.Primitive:
		return val.String()
	case types.ParameterizedString:
		return val.String()
	case *types.ErrorValue:
		if val == nil {
			return ""
		}
		return extractMessage(val)
	case *types.DOMException:
		if val == nil {
			return ""
		}
		return domMessage(val)
	default:
		return fmt.Sprint(val)
	}
}
