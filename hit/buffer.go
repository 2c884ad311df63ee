package hit

import (
	"slices"
)

/***** orderedParameters *****/

// orderedParameters is a key→Parameter map which remembers insertion order.
type orderedParameters struct {
	keys   []KeyString
	params map[KeyString]Parameter
}

func newOrderedParameters() orderedParameters {
	return orderedParameters{
		params: make(map[KeyString]Parameter),
	}
}

func (op *orderedParameters) get(key KeyString) (Parameter, bool) {
	p, ok := op.params[key]
	return p, ok
}

// put replaces an existing key in place or appends a new key at the end.
func (op *orderedParameters) put(p Parameter) {
	if _, exists := op.params[p.key]; !exists {
		op.keys = append(op.keys, p.key)
	}

	op.params[p.key] = p
}

func (op *orderedParameters) remove(key KeyString) bool {
	if _, exists := op.params[key]; !exists {
		return false
	}

	delete(op.params, key)
	op.keys = slices.DeleteFunc(op.keys, func(k KeyString) bool { return k == key })

	return true
}

func (op *orderedParameters) clear() {
	op.keys = nil
	op.params = make(map[KeyString]Parameter)
}

func (op *orderedParameters) ordered() Parameters {
	out := make(Parameters, 0, len(op.keys))
	for _, key := range op.keys {
		out = append(out, op.params[key])
	}

	return out
}

/***** Buffer *****/

// Buffer holds the persistent and the volatile parameter collections.
//
// Persistent parameters survive across hit constructions until they are unset. Volatile parameters
// represent one-shot event data and are conventionally cleared with ClearVolatile after a build.
//
// A key lives in at most one collection. Buffer is not safe for concurrent use.
type Buffer struct {
	persistent orderedParameters
	volatile   orderedParameters
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		persistent: newOrderedParameters(),
		volatile:   newOrderedParameters(),
	}
}

// SetParam writes a parameter.
//
// The target collection is chosen by the Persistent option (default volatile). With the Append option
// and the key present in the target collection, a new value thunk is added to the existing Parameter
// (its type and options are kept). Otherwise the Parameter is replaced in place or created at the end.
// If the key lives in the other collection, it is moved: removed there and written into the target.
//
// An empty key is ignored. No validation of the value against valueType is performed.
func (b *Buffer) SetParam(key KeyString, value Value, valueType ValueType, opts ...ParamOption) {
	if key == "" {
		return
	}

	param := NewParameter(key, value, valueType, opts...)

	target, other := b.collections(param.options.Persistent)
	other.remove(key)

	if existing, ok := target.get(key); ok && param.options.Append {
		target.put(existing.withAppendedValue(value))
		return
	}

	target.put(param)
}

// UnsetParam removes the key from whichever collection holds it. Absent keys are a no-op.
func (b *Buffer) UnsetParam(key KeyString) {
	if !b.volatile.remove(key) {
		b.persistent.remove(key)
	}
}

// Persistent returns the persistent Parameter stored under key.
func (b *Buffer) Persistent(key KeyString) (Parameter, bool) {
	return b.persistent.get(key)
}

// Volatile returns the volatile Parameter stored under key.
func (b *Buffer) Volatile(key KeyString) (Parameter, bool) {
	return b.volatile.get(key)
}

// Param returns the Parameter stored under key in either collection.
func (b *Buffer) Param(key KeyString) (Parameter, bool) {
	if p, ok := b.volatile.get(key); ok {
		return p, true
	}

	return b.persistent.get(key)
}

// PersistentKeys returns the persistent keys in insertion order.
func (b *Buffer) PersistentKeys() []KeyString {
	return slices.Clone(b.persistent.keys)
}

// VolatileKeys returns the volatile keys in insertion order.
func (b *Buffer) VolatileKeys() []KeyString {
	return slices.Clone(b.volatile.keys)
}

// Len returns the total number of parameters.
func (b *Buffer) Len() int {
	return len(b.persistent.keys) + len(b.volatile.keys)
}

// ClearVolatile drops all volatile parameters.
func (b *Buffer) ClearVolatile() {
	b.volatile.clear()
}

// Snapshot captures both collections. Later writes to the Buffer do not affect the Snapshot.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		persistent: b.persistent.ordered(),
		volatile:   b.volatile.ordered(),
	}
}

func (b *Buffer) collections(persistent bool) (target, other *orderedParameters) {
	if persistent {
		return &b.persistent, &b.volatile
	}

	return &b.volatile, &b.persistent
}

/***** Snapshot *****/

// Snapshot is an immutable, insertion-ordered copy of a Buffer's collections taken for one build.
type Snapshot struct {
	persistent Parameters
	volatile   Parameters
}

// NewSnapshot creates a Snapshot from directly supplied collections, e.g. for callers which keep
// their own parameter lists. Later duplicates of a key are dropped.
func NewSnapshot(persistent Parameters, volatile Parameters) Snapshot {
	seen := make(map[KeyString]struct{}, len(persistent)+len(volatile))
	dedupe := func(params Parameters) Parameters {
		out := make(Parameters, 0, len(params))
		for _, p := range params {
			if p.key == "" {
				continue
			}
			if _, dup := seen[p.key]; dup {
				continue
			}
			seen[p.key] = struct{}{}
			out = append(out, p)
		}

		return out
	}

	return Snapshot{
		persistent: dedupe(persistent),
		volatile:   dedupe(volatile),
	}
}

// Persistent returns the persistent parameters in insertion order.
func (s Snapshot) Persistent() Parameters {
	return slices.Clone(s.persistent)
}

// Volatile returns the volatile parameters in insertion order.
func (s Snapshot) Volatile() Parameters {
	return slices.Clone(s.volatile)
}

// Len returns the total number of parameters.
func (s Snapshot) Len() int {
	return len(s.persistent) + len(s.volatile)
}
