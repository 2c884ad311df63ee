package hit

// DefaultSeparator joins array values when ParamOptions.Separator is empty.
const DefaultSeparator = ","

// ValueType governs how a Parameter is formatted when serialized. It does not affect storage.
type ValueType int

const (
	TypeString ValueType = iota
	TypeInteger
	TypeFloat
	TypeBool
	TypeArray
	TypeJSON
)

// String provides a string representation of ValueType for logging and debugging.
func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeArray:
		return "array"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// RelativePosition is a placement hint for the builder.
type RelativePosition int

const (
	PositionNone RelativePosition = iota
	PositionFirst
	PositionLast
	PositionBefore
	PositionAfter
)

// String provides a string representation of RelativePosition for logging and debugging.
func (p RelativePosition) String() string {
	switch p {
	case PositionNone:
		return "none"
	case PositionFirst:
		return "first"
	case PositionLast:
		return "last"
	case PositionBefore:
		return "before"
	case PositionAfter:
		return "after"
	default:
		return "unknown"
	}
}

/***** ParamOptions *****/

// ParamOptions are declarative placement and behavior modifiers attached to a Parameter at write time.
// The zero value means default placement, volatile, replace on write, single encoding and "," separator.
type ParamOptions struct {
	// RelativePosition places the parameter first, last, or before/after RelativeParameterKey.
	RelativePosition RelativePosition

	// RelativeParameterKey is the anchor for PositionBefore and PositionAfter; ignored otherwise.
	RelativeParameterKey KeyString

	// Persistent routes the write into the persistent collection.
	Persistent bool

	// Append adds a value thunk to an existing parameter instead of replacing it.
	Append bool

	// Encode applies an additional percent-encoding pass to the serialized value.
	Encode bool

	// Separator joins array values. Empty means DefaultSeparator.
	Separator string
}

// EffectiveSeparator returns Separator or DefaultSeparator if none was set.
func (o ParamOptions) EffectiveSeparator() string {
	if o.Separator == "" {
		return DefaultSeparator
	}

	return o.Separator
}

/***** ParamOption *****/

// ParamOption modifies ParamOptions for a single write.
type ParamOption func(*ParamOptions)

// First places the parameter at the front of the adjustable region, right after the protocol keys.
func First() ParamOption {
	return func(o *ParamOptions) {
		o.RelativePosition = PositionFirst
		o.RelativeParameterKey = ""
	}
}

// Last places the parameter at the end of the hit.
func Last() ParamOption {
	return func(o *ParamOptions) {
		o.RelativePosition = PositionLast
		o.RelativeParameterKey = ""
	}
}

// Before places the parameter immediately before the parameter with the given key.
func Before(key KeyString) ParamOption {
	return func(o *ParamOptions) {
		o.RelativePosition = PositionBefore
		o.RelativeParameterKey = key
	}
}

// After places the parameter immediately after the parameter with the given key.
func After(key KeyString) ParamOption {
	return func(o *ParamOptions) {
		o.RelativePosition = PositionAfter
		o.RelativeParameterKey = key
	}
}

// Persistent keeps the parameter across hit constructions until it is explicitly unset.
func Persistent() ParamOption {
	return func(o *ParamOptions) {
		o.Persistent = true
	}
}

// Append accumulates values under the key instead of replacing them.
func Append() ParamOption {
	return func(o *ParamOptions) {
		o.Append = true
	}
}

// Encode forces an additional percent-encoding pass, e.g. for JSON payloads which must be double encoded.
func Encode() ParamOption {
	return func(o *ParamOptions) {
		o.Encode = true
	}
}

// Separator sets the separator used to join array values.
func Separator(sep string) ParamOption {
	return func(o *ParamOptions) {
		o.Separator = sep
	}
}

// WithOptions replaces all options with the given struct.
func WithOptions(opts ParamOptions) ParamOption {
	return func(o *ParamOptions) {
		*o = opts
	}
}

// BuildParamOptions applies the given ParamOption(s) onto zero ParamOptions.
func BuildParamOptions(opts ...ParamOption) ParamOptions {
	var o ParamOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
