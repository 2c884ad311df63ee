package hit

import (
	"slices"
)

// Parameters is an alias type for a slice of Parameter.
type Parameters = []Parameter

// Parameter is a named, typed value holder. Its key and type never change after creation;
// its value list only grows through Buffer.SetParam with the Append option.
//
// Parameter is a value type. Appending a value creates a new backing array, so copies held by
// a Snapshot are never affected by later writes.
type Parameter struct {
	key       KeyString
	values    []ValueFunc
	valueType ValueType
	options   ParamOptions
}

// NewParameter is a factory method for Parameter with a single value.
func NewParameter(key KeyString, value Value, valueType ValueType, opts ...ParamOption) Parameter {
	return Parameter{
		key:       key,
		values:    []ValueFunc{value.thunk()},
		valueType: valueType,
		options:   BuildParamOptions(opts...),
	}
}

// Key returns the parameter key.
func (p Parameter) Key() KeyString {
	return p.key
}

// Type returns the ValueType which governs formatting.
func (p Parameter) Type() ValueType {
	return p.valueType
}

// Options returns the placement and behavior options.
func (p Parameter) Options() ParamOptions {
	return p.options
}

// Values returns the value thunks in write order.
func (p Parameter) Values() []ValueFunc {
	return slices.Clone(p.values)
}

// Value evaluates the first value thunk. Serialization always walks the full list, see Values.
func (p Parameter) Value() Value {
	if len(p.values) == 0 {
		return String("")
	}

	return p.values[0]()
}

// IsZero reports whether p is the zero Parameter.
func (p Parameter) IsZero() bool {
	return p.key == "" && len(p.values) == 0
}

// withAppendedValue returns a copy of p with one more value thunk.
func (p Parameter) withAppendedValue(value Value) Parameter {
	p.values = append(slices.Clip(p.values), value.thunk())

	return p
}
