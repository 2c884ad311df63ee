package hit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

func Test_Value_Constructors_SetKindAndMember(t *testing.T) {
	tests := []struct {
		name     string
		value    hit.Value
		kind     hit.ValueKind
		rendered string
	}{
		{name: "string", value: hit.String("home"), kind: hit.KindString, rendered: "home"},
		{name: "integer", value: hit.Int(-42), kind: hit.KindInteger, rendered: "-42"},
		{name: "float", value: hit.Float(1.5), kind: hit.KindFloat, rendered: "1.5"},
		{name: "bool", value: hit.Bool(true), kind: hit.KindBool, rendered: "true"},
		{name: "array", value: hit.Array("a", "b"), kind: hit.KindArray, rendered: "a,b"},
		{name: "json", value: hit.JSON(map[string]any{"a": 1}), kind: hit.KindJSON, rendered: ""},
		{name: "lazy", value: hit.Lazy(func() string { return "later" }), kind: hit.KindLazy, rendered: "later"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.value.Kind())
			assert.Equal(t, tc.rendered, tc.value.String())
		})
	}
}

func Test_Value_Array_CopiesItsInput(t *testing.T) {
	// arrange
	elems := []string{"a", "b"}
	v := hit.Array(elems...)

	// act
	elems[0] = "changed"
	out := v.AsArray()
	out[1] = "changed too"

	// assert
	assert.Equal(t, []string{"a", "b"}, v.AsArray())
}

func Test_Value_Resolve_EvaluatesLazyOnEveryCall(t *testing.T) {
	// arrange
	calls := 0
	v := hit.Lazy(func() string {
		calls++
		return "tick"
	})

	// act
	first := v.Resolve()
	second := v.Resolve()

	// assert
	assert.Equal(t, 2, calls)
	assert.Equal(t, hit.KindString, first.Kind())
	assert.Equal(t, "tick", second.AsString())
}

func Test_Value_Resolve_NilLazyResolvesToEmptyString(t *testing.T) {
	v := hit.Lazy(nil).Resolve()

	assert.Equal(t, hit.KindString, v.Kind())
	assert.Empty(t, v.AsString())
}

func Test_Value_Resolve_LeavesEagerValuesUnchanged(t *testing.T) {
	v := hit.Int(7)

	assert.Equal(t, v, v.Resolve())
}

func Test_ValueKind_String(t *testing.T) {
	assert.Equal(t, "json", hit.KindJSON.String())
	assert.Equal(t, "unknown", hit.ValueKind(99).String())
}
