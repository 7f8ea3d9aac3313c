package eventbuilder

import (
	"testing"

	"github.com/pithecene-io/faultline/types"
)

func TestClassify(t *testing.T) {
	var nilErr *types.ErrorValue
	stack := "Error: x"

	tests := []struct {
		name  string
		value types.Thrown
		want  Class
	}{
		{"error event with inner", &types.ErrorEvent{Error: types.Primitive{Value: "x"}}, ClassErrorEvent},
		{"error event without inner", &types.ErrorEvent{Message: "Script error."}, ClassObject},
		{"dom exception", &types.DOMException{Name: "AbortError"}, ClassDOMException},
		{"dom exception with stack", &types.DOMException{Stack: &stack}, ClassDOMException},
		{"legacy dom error", &types.DOMException{Legacy: true}, ClassDOMException},
		{"native error", &types.ErrorValue{Name: "TypeError"}, ClassError},
		{"ui event", &types.UIEvent{ClassName: "MouseEvent"}, ClassObject},
		{"plain object", types.Object{"a": 1}, ClassObject},
		{"host object", types.HostObject{}, ClassObject},
		{"string", types.Primitive{Value: "x"}, ClassPrimitive},
		{"parameterized", types.ParameterizedString{Template: "x"}, ClassPrimitive},
		{"nil", nil, ClassPrimitive},
		{"typed nil error", nilErr, ClassPrimitive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.value); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildExceptionFromValue_ErrorEventWithPrimitiveInner(t *testing.T) {
	b := newTestBuilder(DefaultOptions())

	// The inner value is reclassified, not assumed to be an error.
	res := b.BuildExceptionFromValue(&types.ErrorEvent{Error: types.Primitive{Value: "thrown string"}}, nil)
	if res.Exception.Type != "Error" || res.Exception.Value != "thrown string" {
		t.Errorf("Exception = %s: %s, want Error: thrown string", res.Exception.Type, res.Exception.Value)
	}
}
