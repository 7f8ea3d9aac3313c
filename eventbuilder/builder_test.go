package eventbuilder

import (
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/faultline/normalize"
	"github.com/pithecene-io/faultline/stack"
	"github.com/pithecene-io/faultline/types"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder(opts ClientOptions, extra ...Option) *Builder {
	all := append([]Option{WithClock(func() time.Time { return fixedNow })}, extra...)
	return New(StaticOptions(opts), all...)
}

func syntheticError() *types.ErrorValue {
	return &types.ErrorValue{
		Name:    "Error",
		Message: "synthetic",
		Stack: "Error: synthetic\n" +
			"    at captureException (http://sdk/sdk.js:1:1)\n" +
			"    at handler (http://x/app.js:10:3)\n" +
			"    at main (http://x/app.js:20:1)",
	}
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	data, err := normalize.EncodeJSON(v)
	if err != nil {
		t.Fatalf("EncodeJSON() error = %v", err)
	}
	return string(data)
}

func TestBuildExceptionFromValue_ErrorWithoutStack(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(&types.ErrorValue{Name: "TypeError", Message: "x"}, nil)

	if res.Exception.Type != "TypeError" {
		t.Errorf("Type = %q, want %q", res.Exception.Type, "TypeError")
	}
	if res.Exception.Value != "x" {
		t.Errorf("Value = %q, want %q", res.Exception.Value, "x")
	}
	if res.Exception.Stacktrace != nil {
		t.Errorf("Stacktrace = %v, want nil", res.Exception.Stacktrace)
	}
	if res.Exception.Mechanism != nil {
		t.Errorf("Mechanism = %v, want nil", res.Exception.Mechanism)
	}
	if res.Extra != nil {
		t.Errorf("Extra = %v, want nil for native errors", res.Extra)
	}
	if res.Synthetic {
		t.Error("native error should not be synthetic")
	}
}

func TestBuildExceptionFromValue_ErrorWithStack(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(&types.ErrorValue{
		Name:    "TypeError",
		Message: "x",
		Stack:   "TypeError: x\n    at bar (http://x/file.js:16:5)\n    at foo (http://x/file.js:20:5)",
	}, nil)

	if res.Exception.FrameCount() != 2 {
		t.Fatalf("FrameCount() = %d, want 2", res.Exception.FrameCount())
	}
	frames := res.Exception.Stacktrace.Frames
	if frames[0].Function != "foo" || frames[1].Function != "bar" {
		t.Errorf("frames = [%s %s], want [foo bar]", frames[0].Function, frames[1].Function)
	}
}

func TestBuildExceptionFromValue_EmptyObject(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Object{}, nil)

	want := "Object captured as exception with keys: [object has no keys]"
	if res.Exception.Value != want {
		t.Errorf("Value = %q, want %q", res.Exception.Value, want)
	}
	if res.Exception.Type != "Error" {
		t.Errorf("Type = %q, want Error", res.Exception.Type)
	}
	if !res.Synthetic {
		t.Error("object capture should be synthetic")
	}
}

func TestBuildExceptionFromValue_PlainObject(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Object{"prop1": "hello", "prop2": 2}, nil)

	want := "Object captured as exception with keys: prop1, prop2"
	if res.Exception.Value != want {
		t.Errorf("Value = %q, want %q", res.Exception.Value, want)
	}
	if got := jsonOf(t, res.Extra[SerializedExtraKey]); got != `{"prop1":"hello","prop2":2}` {
		t.Errorf("__serialized__ = %s, want %s", got, `{"prop1":"hello","prop2":2}`)
	}
}

func TestBuildExceptionFromValue_UnhandledRejectionObject(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Object{"reason": "nope"}, &Hint{IsUnhandledRejection: true})

	if res.Exception.Type != "UnhandledRejection" {
		t.Errorf("Type = %q, want UnhandledRejection", res.Exception.Type)
	}
	want := "Object captured as promise rejection with keys: reason"
	if res.Exception.Value != want {
		t.Errorf("Value = %q, want %q", res.Exception.Value, want)
	}
}

func TestBuildExceptionFromValue_NestedError(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	nested := &types.ErrorValue{
		Name:    "RangeError",
		Message: "out of range",
		Stack:   "RangeError: out of range\n    at check (http://x/a.js:3:7)",
	}
	res := b.BuildExceptionFromValue(types.Object{"status": 500, "cause": nested}, nil)

	if res.Exception.Type != "RangeError" {
		t.Errorf("Type = %q, want RangeError", res.Exception.Type)
	}
	if res.Exception.Value != "out of range" {
		t.Errorf("Value = %q, want %q", res.Exception.Value, "out of range")
	}
	if res.Exception.FrameCount() != 1 {
		t.Errorf("FrameCount() = %d, want 1", res.Exception.FrameCount())
	}
	if _, ok := res.Extra[SerializedExtraKey]; !ok {
		t.Error("expected __serialized__ for wrapper object")
	}
}

func TestBuildExceptionFromValue_NestedErrorSortedKeys(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Object{
		"zeta":  &types.ErrorValue{Name: "ZetaError", Message: "z"},
		"alpha": &types.ErrorValue{Name: "AlphaError", Message: "a"},
	}, nil)

	if res.Exception.Type != "AlphaError" {
		t.Errorf("Type = %q, want AlphaError", res.Exception.Type)
	}
}

func TestBuildExceptionFromValue_Events(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	tests := []struct {
		name      string
		value     types.Thrown
		unhandled bool
		wantType  string
		wantValue string
	}{
		{
			name:      "ui event",
			value:     &types.UIEvent{ClassName: "MouseEvent", EventType: "click"},
			wantType:  "MouseEvent",
			wantValue: "Event `MouseEvent` (type=click) captured as exception",
		},
		{
			name:      "ui event rejection",
			value:     &types.UIEvent{ClassName: "CustomEvent", EventType: "fail"},
			unhandled: true,
			wantType:  "CustomEvent",
			wantValue: "Event `CustomEvent` (type=fail) captured as promise rejection",
		},
		{
			name:      "unnamed event",
			value:     &types.UIEvent{EventType: "load"},
			wantType:  "Event",
			wantValue: "Event `Event` (type=load) captured as exception",
		},
		{
			name:      "error event without inner error",
			value:     &types.ErrorEvent{Message: "Script error."},
			wantType:  "ErrorEvent",
			wantValue: "Event `ErrorEvent` captured as exception with message `Script error.`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.BuildExceptionFromValue(tt.value, &Hint{IsUnhandledRejection: tt.unhandled})
			if res.Exception.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", res.Exception.Type, tt.wantType)
			}
			if res.Exception.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", res.Exception.Value, tt.wantValue)
			}
		})
	}
}

func TestBuildExceptionFromValue_ErrorEventUnwraps(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(&types.ErrorEvent{
		Message: "Uncaught TypeError: x",
		Error:   &types.ErrorValue{Name: "TypeError", Message: "x"},
	}, nil)

	if res.Exception.Type != "TypeError" || res.Exception.Value != "x" {
		t.Errorf("Exception = %s: %s, want TypeError: x", res.Exception.Type, res.Exception.Value)
	}
	if res.Synthetic {
		t.Error("unwrapped native error should not be synthetic")
	}
}

func TestBuildExceptionFromValue_DOMException(t *testing.T) {
	b := newTestBuilder(DefaultOptions())
	code := 18
	stack := "SecurityError: denied\n    at read (http://x/a.js:1:1)"

	tests := []struct {
		name       string
		value      *types.DOMException
		wantType   string
		wantValue  string
		wantFrames int
		wantCode   string
	}{
		{
			name:      "with name and message",
			value:     &types.DOMException{Name: "SecurityError", Message: "denied", Code: &code},
			wantType:  "Error",
			wantValue: "SecurityError: denied",
			wantCode:  "18",
		},
		{
			name:      "legacy without name",
			value:     &types.DOMException{Legacy: true},
			wantType:  "Error",
			wantValue: "DOMError",
		},
		{
			name:      "modern without name",
			value:     &types.DOMException{Message: "bad"},
			wantType:  "Error",
			wantValue: "DOMException: bad",
		},
		{
			name:       "with stack",
			value:      &types.DOMException{Name: "SecurityError", Message: "denied", Stack: &stack, Code: &code},
			wantType:   "SecurityError",
			wantValue:  "denied",
			wantFrames: 1,
			wantCode:   "18",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.BuildExceptionFromValue(tt.value, nil)
			if res.Exception.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", res.Exception.Type, tt.wantType)
			}
			if res.Exception.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", res.Exception.Value, tt.wantValue)
			}
			if res.Exception.FrameCount() != tt.wantFrames {
				t.Errorf("FrameCount() = %d, want %d", res.Exception.FrameCount(), tt.wantFrames)
			}
			if got := res.Tags[DOMExceptionCodeTag]; got != tt.wantCode {
				t.Errorf("tag %s = %q, want %q", DOMExceptionCodeTag, got, tt.wantCode)
			}
		})
	}
}

func TestBuildExceptionFromValue_MessageFallbacks(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	tests := []struct {
		name      string
		value     *types.ErrorValue
		wantType  string
		wantValue string
	}{
		{
			name:      "empty message",
			value:     &types.ErrorValue{Name: "Error"},
			wantType:  "Error",
			wantValue: "No error message",
		},
		{
			name: "nested error message",
			value: &types.ErrorValue{Name: "HttpError", Message: map[string]any{
				"error": map[string]any{"message": "upstream timed out"},
			}},
			wantType:  "HttpError",
			wantValue: "upstream timed out",
		},
		{
			name:      "untyped with empty nested message",
			value:     &types.ErrorValue{Message: map[string]any{"error": map[string]any{"message": ""}}},
			wantValue: "Unrecoverable error caught",
		},
		{
			name:      "object message keeps markup",
			value:     &types.ErrorValue{Name: "Error", Message: map[string]any{"html": "<b>&</b>"}},
			wantType:  "Error",
			wantValue: `{"html":"<b>&</b>"}`,
		},
		{
			name:      "wasm pair",
			value:     &types.ErrorValue{Wasm: true, Message: []any{"RuntimeError", "unreachable"}},
			wantType:  "RuntimeError",
			wantValue: "unreachable",
		},
		{
			name:      "wasm without pair",
			value:     &types.ErrorValue{Wasm: true},
			wantType:  "WebAssembly.Exception",
			wantValue: "No error message",
		},
		{
			name:      "named wasm keeps name",
			value:     &types.ErrorValue{Wasm: true, Name: "CompileError", Message: "bad module"},
			wantType:  "CompileError",
			wantValue: "bad module",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.BuildExceptionFromValue(tt.value, nil)
			if res.Exception.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", res.Exception.Type, tt.wantType)
			}
			if res.Exception.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", res.Exception.Value, tt.wantValue)
			}
		})
	}
}

func TestBuildExceptionFromValue_Primitive(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Primitive{Value: "oops"}, nil)
	if res.Exception.Type != "Error" || res.Exception.Value != "oops" {
		t.Errorf("Exception = %s: %s, want Error: oops", res.Exception.Type, res.Exception.Value)
	}
	if res.Exception.Stacktrace != nil {
		t.Error("primitive without attachStacktrace should carry no frames")
	}
	if !res.Synthetic {
		t.Error("primitive capture should be synthetic")
	}

	nullRes := b.BuildExceptionFromValue(types.Primitive{}, nil)
	if nullRes.Exception.Value != "null" {
		t.Errorf("null Value = %q, want null", nullRes.Exception.Value)
	}

	emptyRes := b.BuildExceptionFromValue(types.Primitive{Value: ""}, nil)
	if emptyRes.Exception.Value != "No error message" {
		t.Errorf("empty Value = %q, want %q", emptyRes.Exception.Value, "No error message")
	}
}

func TestBuildExceptionFromValue_PrimitiveWithSyntheticStack(t *testing.T) {
	opts := DefaultOptions()
	opts.AttachStacktrace = true
	b := newTestBuilder(opts)

	res := b.BuildExceptionFromValue(types.Primitive{Value: 42}, &Hint{SyntheticException: syntheticError()})

	if res.Exception.Value != "42" {
		t.Errorf("Value = %q, want 42", res.Exception.Value)
	}
	// The capture frame is stripped.
	if res.Exception.FrameCount() != 2 {
		t.Fatalf("FrameCount() = %d, want 2", res.Exception.FrameCount())
	}
	if got := res.Exception.Stacktrace.Frames[1].Function; got != "handler" {
		t.Errorf("innermost = %q, want handler", got)
	}
}

func TestBuildExceptionFromValue_EmptyPrimitiveWithSyntheticStack(t *testing.T) {
	opts := DefaultOptions()
	opts.AttachStacktrace = true
	b := newTestBuilder(opts)

	tests := []struct {
		name string
		hint *Hint
	}{
		{"with synthetic stack", &Hint{SyntheticException: syntheticError()}},
		{"without synthetic stack", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.BuildExceptionFromValue(types.Primitive{Value: ""}, tt.hint)
			if res.Exception.Value != noErrorMessage {
				t.Errorf("Value = %q, want %q", res.Exception.Value, noErrorMessage)
			}
			if res.Exception.Type != "Error" {
				t.Errorf("Type = %q, want Error", res.Exception.Type)
			}
			if tt.hint != nil && res.Exception.FrameCount() != 2 {
				t.Errorf("FrameCount() = %d, want 2", res.Exception.FrameCount())
			}
		})
	}
}

func TestBuildExceptionFromValue_ObjectWithSyntheticStack(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.Object{"a": 1}, &Hint{SyntheticException: syntheticError()})
	if res.Exception.FrameCount() != 2 {
		t.Errorf("FrameCount() = %d, want 2 (objects attach synthetic frames regardless of attachStacktrace)", res.Exception.FrameCount())
	}
}

func TestBuildExceptionFromValue_KeyTruncation(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	tests := []struct {
		name  string
		value types.Object
		want  string
	}{
		{
			name:  "fits",
			value: types.Object{"b": 1, "a": 2},
			want:  "a, b",
		},
		{
			name: "drops trailing keys",
			value: types.Object{
				"alpha_alpha_alpha": 1,
				"bravo_bravo_bravo": 2,
				"charlie_charlie":   3,
			},
			want: "alpha_alpha_alpha, bravo_bravo_bravo",
		},
		{
			name:  "long first key",
			value: types.Object{"this_is_a_very_long_property_name_that_goes_on": 1},
			want:  "this_is_a_very_long_property_name_that_g...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.BuildExceptionFromValue(tt.value, nil)
			want := "Object captured as exception with keys: " + tt.want
			if res.Exception.Value != want {
				t.Errorf("Value = %q, want %q", res.Exception.Value, want)
			}
		})
	}
}

type deniedSource struct{}

func (deniedSource) Keys() ([]string, error) { return []string{"token"}, nil }

func (deniedSource) Get(string) (any, error) { return nil, errAccessDenied }

var errAccessDenied = errors.New("access denied")

func TestBuildExceptionFromValue_HostObject(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	res := b.BuildExceptionFromValue(types.HostObject{Source: deniedSource{}}, nil)

	want := "Object captured as exception with keys: token"
	if res.Exception.Value != want {
		t.Errorf("Value = %q, want %q", res.Exception.Value, want)
	}
	if got := jsonOf(t, res.Extra[SerializedExtraKey]); got != `{"token":"<unknown>"}` {
		t.Errorf("__serialized__ = %s", got)
	}
}

func TestBuildExceptionFromValue_SerializedRespectsOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.NormalizeDepth = 1
	b := newTestBuilder(opts)

	res := b.BuildExceptionFromValue(types.Object{"nested": map[string]any{"x": 1}}, nil)
	if got := jsonOf(t, res.Extra[SerializedExtraKey]); got != `{"nested":"[Object]"}` {
		t.Errorf("__serialized__ = %s, want %s", got, `{"nested":"[Object]"}`)
	}
}

type countingOptions struct {
	calls int
	opts  ClientOptions
}

func (c *countingOptions) ClientOptions() ClientOptions {
	c.calls++
	return c.opts
}

func TestBuilder_ReadsOptionsEachCall(t *testing.T) {
	src := &countingOptions{opts: DefaultOptions()}
	b := New(src)

	_ = b.EventFromMessage(types.Primitive{Value: "a"}, "", &Hint{SyntheticException: syntheticError()})
	if ev := b.EventFromMessage(types.Primitive{Value: "a"}, "", &Hint{SyntheticException: syntheticError()}); ev.Exception != nil {
		t.Error("attachStacktrace disabled: expected no exception")
	}

	src.opts.AttachStacktrace = true
	if ev := b.EventFromMessage(types.Primitive{Value: "a"}, "", &Hint{SyntheticException: syntheticError()}); ev.Exception == nil {
		t.Error("attachStacktrace enabled: expected exception")
	}
	if src.calls != 3 {
		t.Errorf("ClientOptions() called %d times, want 3", src.calls)
	}
}

func TestEventFromException_Mechanism(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	ev := b.EventFromException(&types.ErrorValue{Name: "Error", Message: "x"}, &Hint{EventID: "abc"})

	if ev.Level != types.SeverityError {
		t.Errorf("Level = %q, want error", ev.Level)
	}
	if ev.EventID != "abc" {
		t.Errorf("EventID = %q, want abc", ev.EventID)
	}
	if !ev.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, fixedNow)
	}
	ex := ev.PrimaryException()
	if ex == nil || ex.Mechanism == nil {
		t.Fatal("expected exception with mechanism")
	}
	if ex.Mechanism.Type != "generic" {
		t.Errorf("Mechanism.Type = %q, want generic", ex.Mechanism.Type)
	}
	if ex.Mechanism.Handled == nil || !*ex.Mechanism.Handled {
		t.Error("Mechanism.Handled should default to true")
	}
	if ex.Mechanism.Synthetic != nil {
		t.Error("native error should not be marked synthetic")
	}
	if ev.Message != "" || ev.LogEntry != nil {
		t.Error("exception event must not carry a message")
	}
}

func TestEventFromException_SyntheticAndOverride(t *testing.T) {
	b := newTestBuilder(DefaultOptions())
	handled := false

	ev := b.EventFromException(types.Object{"a": 1}, &Hint{
		Mechanism: &types.Mechanism{Type: "onunhandledrejection", Handled: &handled},
	})

	m := ev.PrimaryException().Mechanism
	if m.Type != "onunhandledrejection" {
		t.Errorf("Mechanism.Type = %q, want onunhandledrejection", m.Type)
	}
	if m.Handled == nil || *m.Handled {
		t.Error("Mechanism.Handled should be overridden to false")
	}
	if m.Synthetic == nil || !*m.Synthetic {
		t.Error("object capture should be marked synthetic")
	}
	if _, ok := ev.Extra[SerializedExtraKey]; !ok {
		t.Error("expected extra.__serialized__")
	}
}

func TestEventFromException_DOMCodeTag(t *testing.T) {
	b := newTestBuilder(DefaultOptions())
	code := 22

	ev := b.EventFromException(&types.DOMException{Name: "QuotaExceededError", Message: "full", Code: &code}, nil)
	if ev.Tags[DOMExceptionCodeTag] != "22" {
		t.Errorf("Tags = %v, want %s=22", ev.Tags, DOMExceptionCodeTag)
	}
}

func TestEventFromException_UsesSyntheticFactory(t *testing.T) {
	calls := 0
	b := newTestBuilder(DefaultOptions(), WithSyntheticFactory(func() *types.ErrorValue {
		calls++
		return syntheticError()
	}))

	ev := b.EventFromException(types.Object{}, nil)
	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if ev.PrimaryException().FrameCount() != 2 {
		t.Errorf("FrameCount() = %d, want 2", ev.PrimaryException().FrameCount())
	}

	_ = b.EventFromException(types.Object{}, &Hint{SyntheticException: syntheticError()})
	if calls != 1 {
		t.Errorf("factory should not run when the hint carries a synthetic error")
	}
}

func TestEventFromMessage(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	ev := b.EventFromMessage(types.Primitive{Value: "hello"}, "", &Hint{EventID: "id-1"})
	if ev.Level != types.SeverityInfo {
		t.Errorf("Level = %q, want info", ev.Level)
	}
	if ev.Message != "hello" {
		t.Errorf("Message = %q, want hello", ev.Message)
	}
	if ev.Exception != nil {
		t.Error("message event should carry no exception")
	}
	if ev.EventID != "id-1" {
		t.Errorf("EventID = %q, want id-1", ev.EventID)
	}

	warn := b.EventFromMessage(types.Primitive{Value: "careful"}, types.SeverityWarning, nil)
	if warn.Level != types.SeverityWarning {
		t.Errorf("Level = %q, want warning", warn.Level)
	}
}

func TestEventFromMessage_AttachStacktrace(t *testing.T) {
	opts := DefaultOptions()
	opts.AttachStacktrace = true
	b := newTestBuilder(opts)

	ev := b.EventFromMessage(types.Primitive{Value: "hello"}, types.SeverityInfo, &Hint{SyntheticException: syntheticError()})

	ex := ev.PrimaryException()
	if ex == nil {
		t.Fatal("expected exception with synthetic frames")
	}
	if ex.Value != "hello" {
		t.Errorf("Value = %q, want hello", ex.Value)
	}
	if ex.Type != "" {
		t.Errorf("Type = %q, want empty", ex.Type)
	}
	if ex.Mechanism.Synthetic == nil || !*ex.Mechanism.Synthetic {
		t.Error("expected synthetic mechanism")
	}
	if ev.Message != "" {
		t.Errorf("Message = %q, want empty when exception is set", ev.Message)
	}
}

func TestEventFromMessage_AttachStacktraceWithoutFrames(t *testing.T) {
	opts := DefaultOptions()
	opts.AttachStacktrace = true
	b := newTestBuilder(opts)

	ev := b.EventFromMessage(types.Primitive{Value: "hello"}, "", &Hint{SyntheticException: &types.ErrorValue{}})
	if ev.Exception != nil {
		t.Error("expected plain message when the synthetic stack yields no frames")
	}
	if ev.Message != "hello" {
		t.Errorf("Message = %q, want hello", ev.Message)
	}
}

func TestEventFromMessage_Parameterized(t *testing.T) {
	opts := DefaultOptions()
	opts.AttachStacktrace = true
	b := newTestBuilder(opts)

	ev := b.EventFromMessage(types.ParameterizedString{
		Template: "user %s failed %s",
		Params:   []any{"ann", "login"},
	}, types.SeverityWarning, &Hint{SyntheticException: syntheticError()})

	if ev.LogEntry == nil {
		t.Fatal("expected logentry")
	}
	if ev.LogEntry.Message != "user %s failed %s" {
		t.Errorf("LogEntry.Message = %q", ev.LogEntry.Message)
	}
	if len(ev.LogEntry.Params) != 2 {
		t.Errorf("LogEntry.Params = %v, want 2 params", ev.LogEntry.Params)
	}
	if ev.Exception != nil || ev.Message != "" {
		t.Error("parameterized message must carry only a logentry")
	}
}

func TestBuilder_ParseStack(t *testing.T) {
	b := New(nil, WithParser(stack.New(stack.AllParsers()...)))

	frames := b.ParseStack("at bar (http://x/file.js:16:5)\nat foo (http://x/file.js:20:5)", 0, 0)
	if len(frames) != 2 || frames[0].Function != "foo" {
		t.Errorf("ParseStack() = %v, want foo before bar", frames)
	}
}
