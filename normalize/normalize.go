// Package normalize produces bounded structural copies of captured values.
//
// The copy is JSON-safe: containers become map[string]any or []any, and
// anything that cannot be represented is replaced by a placeholder string.
// Inputs are never mutated.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/pithecene-io/faultline/types"
)

// Defaults applied when options leave a bound unset.
const (
	DefaultDepth      = 3
	DefaultMaxBreadth = 1000
	DefaultMaxSize    = 100 * 1024
)

// Placeholders substituted for values that are cut or not representable.
const (
	CircularPlaceholder      = "[Circular ~]"
	MaxPropertiesPlaceholder = "[MaxProperties ~]"
	NaNPlaceholder           = "[NaN]"
	FunctionPlaceholder      = "[Function]"
)

// PlainObject is implemented by values that provide their own copyable form.
type PlainObject interface {
	PlainObject() any
}

// Normalize copies v, cutting containers deeper than depth and keeping at
// most maxBreadth entries per container. Non-positive maxBreadth means unbounded.
func Normalize(v any, depth, maxBreadth int) any {
	if maxBreadth <= 0 {
		maxBreadth = math.MaxInt
	}
	w := &walker{maxBreadth: maxBreadth, seen: make(map[uintptr]bool)}
	return w.visit(v, depth)
}

// NormalizeToSize normalizes v, lowering depth until the JSON encoding
// fits within maxSize bytes.
func NormalizeToSize(v any, depth, maxBreadth, maxSize int) any {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	for {
		normalized := Normalize(v, depth, maxBreadth)
		if depth <= 0 || JSONSize(normalized) <= maxSize {
			return normalized
		}
		depth--
	}
}

// JSONSize returns the length in bytes of the JSON encoding of v.
func JSONSize(v any) int {
	data, err := EncodeJSON(v)
	if err != nil {
		return 0
	}
	return len(data)
}

// EncodeJSON marshals v without HTML escaping, so <, > and & stay one
// byte each as they will be on the wire.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type walker struct {
	maxBreadth int
	seen       map[uintptr]bool
}

func (w *walker) visit(v any, depth int) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float32:
		return normalizeFloat(float64(val), val)
	case float64:
		return normalizeFloat(val, val)
	case types.Primitive:
		return w.visit(val.Value, depth)
	case types.ParameterizedString:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Func {
		return FunctionPlaceholder
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}

	plain, label := plainForm(v)

	if depth <= 0 {
		return "[" + label + "]"
	}

	if id, ok := identity(rv); ok {
		if w.seen[id] {
			return CircularPlaceholder
		}
		w.seen[id] = true
		defer delete(w.seen, id)
	}

	switch p := plain.(type) {
	case map[string]any:
		return w.visitMap(p, depth)
	case []any:
		return w.visitSlice(p, depth)
	}

	prv := reflect.ValueOf(plain)
	switch prv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, prv.Len())
		for i := range items {
			items[i] = prv.Index(i).Interface()
		}
		return w.visitSlice(items, depth)
	case reflect.Map:
		if prv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, prv.Len())
		iter := prv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return w.visitMap(m, depth)
	}

	// Anything else goes through its JSON form, one level down.
	data, err := json.Marshal(plain)
	if err != nil {
		return fmt.Sprintf("**non-serializable** (%v)", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Sprintf("**non-serializable** (%v)", err)
	}
	switch decoded.(type) {
	case map[string]any, []any:
		return w.visit(decoded, depth-1)
	default:
		return decoded
	}
}

func (w *walker) visitMap(m map[string]any, depth int) map[string]any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, min(len(keys), w.maxBreadth+1))
	for i, k := range keys {
		if i >= w.maxBreadth {
			out[k] = MaxPropertiesPlaceholder
			break
		}
		out[k] = w.visit(m[k], depth-1)
	}
	return out
}

func (w *walker) visitSlice(items []any, depth int) []any {
	out := make([]any, 0, min(len(items), w.maxBreadth+1))
	for i, item := range items {
		if i >= w.maxBreadth {
			out = append(out, MaxPropertiesPlaceholder)
			break
		}
		out = append(out, w.visit(item, depth-1))
	}
	return out
}

func normalizeFloat(f float64, orig any) any {
	switch {
	case math.IsNaN(f):
		return NaNPlaceholder
	case math.IsInf(f, 1):
		return "[Infinity]"
	case math.IsInf(f, -1):
		return "[-Infinity]"
	default:
		return orig
	}
}

// plainForm returns the copyable form of v and the label used when the
// depth bound cuts it.
func plainForm(v any) (any, string) {
	switch val := v.(type) {
	case PlainObject:
		p := val.PlainObject()
		return p, labelOf(p)
	case *types.ErrorValue:
		m := copyFields(val.Fields)
		m["message"] = val.Message
		if val.Name != "" {
			m["name"] = val.Name
		}
		if val.Stack != "" {
			m["stack"] = val.Stack
		}
		label := val.Name
		if label == "" {
			label = "Error"
		}
		return m, label
	case *types.DOMException:
		m := map[string]any{"name": val.Name, "message": val.Message}
		if val.Code != nil {
			m["code"] = *val.Code
		}
		if val.Stack != nil {
			m["stack"] = *val.Stack
		}
		if val.Legacy {
			return m, "DOMError"
		}
		return m, "DOMException"
	case *types.ErrorEvent:
		m := copyFields(val.Fields)
		m["type"] = "error"
		m["message"] = val.Message
		if val.Error != nil {
			m["error"] = val.Error
		}
		return m, "ErrorEvent"
	case *types.UIEvent:
		m := copyFields(val.Fields)
		m["type"] = val.EventType
		label := val.ClassName
		if label == "" {
			label = "Event"
		}
		return m, label
	case types.Object:
		return map[string]any(val), "Object"
	case types.HostObject:
		return val.Properties(), "Object"
	}
	return v, labelOf(v)
}

func labelOf(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "Array"
	default:
		return "Object"
	}
}

func copyFields(fields map[string]any) map[string]any {
	m := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		m[k] = v
	}
	return m
}

// identity returns a reference identity for cycle detection.
func identity(rv reflect.Value) (uintptr, bool) {
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}
