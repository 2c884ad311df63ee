package hit

import (
	"slices"
	"strconv"
	"strings"
)

// ValueKind identifies which member of the Value union is set.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInteger
	KindFloat
	KindBool
	KindArray
	KindJSON
	KindLazy
)

// String provides a string representation of ValueKind for logging and debugging.
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindJSON:
		return "json"
	case KindLazy:
		return "lazy"
	default:
		return "unknown"
	}
}

// Value is a closed union of the values a Parameter can hold.
//
// It should only be constructed with the supplied factory functions:
//   - String, Int, Float, Bool, Array, JSON, Lazy
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	bln  bool
	arr  []string
	json any
	lazy func() string
}

// ValueFunc is a zero-argument thunk producing a Value. It is evaluated at serialization time.
type ValueFunc func() Value

// String creates a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int creates an integer Value.
func Int(i int64) Value {
	return Value{kind: KindInteger, num: i}
}

// Float creates a float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, flt: f}
}

// Bool creates a bool Value.
func Bool(b bool) Value {
	return Value{kind: KindBool, bln: b}
}

// Array creates a string-array Value. The elements are copied.
func Array(elems ...string) Value {
	return Value{kind: KindArray, arr: slices.Clone(elems)}
}

// JSON creates a Value holding an arbitrary JSON-serializable structure.
func JSON(v any) Value {
	return Value{kind: KindJSON, json: v}
}

// Lazy creates a deferred string Value. fn is called every time the Value is serialized,
// so time-sensitive values reflect the moment of hit construction.
func Lazy(fn func() string) Value {
	return Value{kind: KindLazy, lazy: fn}
}

// Kind returns the union member which is set.
func (v Value) Kind() ValueKind {
	return v.kind
}

// AsString returns the string member.
func (v Value) AsString() string {
	return v.str
}

// AsInt returns the integer member.
func (v Value) AsInt() int64 {
	return v.num
}

// AsFloat returns the float member.
func (v Value) AsFloat() float64 {
	return v.flt
}

// AsBool returns the bool member.
func (v Value) AsBool() bool {
	return v.bln
}

// AsArray returns a copy of the array member.
func (v Value) AsArray() []string {
	return slices.Clone(v.arr)
}

// AsJSON returns the JSON member.
func (v Value) AsJSON() any {
	return v.json
}

// Resolve evaluates a lazy Value into a string Value. Other kinds are returned unchanged.
// A lazy Value without a function resolves to the empty string.
func (v Value) Resolve() Value {
	if v.kind != KindLazy {
		return v
	}

	if v.lazy == nil {
		return String("")
	}

	return String(v.lazy())
}

// String renders the Value in its natural, locale-independent form. JSON values render as "";
// their formatting belongs to the builder.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInteger:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bln)
	case KindArray:
		return strings.Join(v.arr, DefaultSeparator)
	case KindLazy:
		return v.Resolve().str
	default:
		return ""
	}
}

// thunk wraps the Value into a ValueFunc. Lazy values are resolved on every call.
func (v Value) thunk() ValueFunc {
	return func() Value {
		return v.Resolve()
	}
}
