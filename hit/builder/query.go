package builder

import (
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

const (
	// appendJoiner joins the values of a parameter written several times with the Append option.
	appendJoiner = ","

	jsonMemberJoiner = ","
)

// jsonAPI produces compact JSON with sorted object keys, so equal structures serialize identically.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

/***** QueryFragment *****/

// QueryFragment is the serialized form of one Parameter: "&key=encodedValue".
//
// Besides the full value it keeps the encoded atoms the value consists of (array elements, or the whole
// value for other types) and the encoded joiner preceding each atom, so that splittable values can be
// distributed over several hits at atom boundaries.
type QueryFragment struct {
	parameter hit.Parameter
	key       string
	value     string
	atoms     []string
	joiners   []string
}

// Parameter returns the Parameter the fragment was serialized from.
func (f QueryFragment) Parameter() hit.Parameter {
	return f.parameter
}

// Key returns the encoded key.
func (f QueryFragment) Key() string {
	return f.key
}

// Value returns the encoded value.
func (f QueryFragment) Value() string {
	return f.value
}

// Atoms returns the number of atoms the value can be split into.
func (f QueryFragment) Atoms() int {
	return len(f.atoms)
}

// String returns the fragment as it appears in a hit: "&key=value".
func (f QueryFragment) String() string {
	return "&" + f.key + "=" + f.value
}

// Len returns the byte length of String.
func (f QueryFragment) Len() int {
	return len(f.key) + len(f.value) + 2
}

/***** PrepareQuery *****/

// PrepareQuery serializes the ordered parameters into query fragments, in the same order.
//
// Every value thunk is evaluated now. Values are formatted per ValueType, multiple values of one key are
// joined with "," (JSON objects written with Append are merged by key instead), and the result is
// percent-encoded; the Encode option adds a second encoding pass. JSON values of splittable keys are
// divided into atoms at their top-level members or elements.
func (b Builder) PrepareQuery(ordered hit.Parameters) []QueryFragment {
	fragments := make([]QueryFragment, 0, len(ordered))
	for _, p := range ordered {
		fragments = append(fragments, prepareFragment(p, b.IsSplittable(p.Key())))
	}

	return fragments
}

func prepareFragment(p hit.Parameter, splittable bool) QueryFragment {
	atoms, joiners := formatParameter(p, splittable)

	encode := percentEncode
	if p.Options().Encode {
		encode = func(s string) string { return percentEncode(percentEncode(s)) }
	}

	var value strings.Builder
	for i := range atoms {
		atoms[i] = encode(atoms[i])
		joiners[i] = encode(joiners[i])
		value.WriteString(joiners[i])
		value.WriteString(atoms[i])
	}

	return QueryFragment{
		parameter: p,
		key:       percentEncode(p.Key()),
		value:     value.String(),
		atoms:     atoms,
		joiners:   joiners,
	}
}

// formatParameter returns the raw atoms of a parameter's value and the joiner preceding each of them.
// There is always at least one atom.
func formatParameter(p hit.Parameter, splittable bool) ([]string, []string) {
	values := make([]hit.Value, 0, len(p.Values()))
	for _, thunk := range p.Values() {
		values = append(values, thunk())
	}

	if p.Type() == hit.TypeJSON && len(values) > 1 {
		if merged, ok := mergeJSONObjects(values); ok {
			if !splittable {
				return []string{merged}, []string{""}
			}

			atoms := jsonMembers(merged)
			return atoms, jsonJoiners(len(atoms))
		}
	}

	separator := p.Options().EffectiveSeparator()
	if p.Type() == hit.TypeJSON {
		separator = jsonMemberJoiner
	}

	var atoms, joiners []string
	for i, v := range values {
		elems := formatValue(v, p.Type())
		if splittable && p.Type() == hit.TypeJSON {
			elems = jsonMembers(elems[0])
		}

		for j, elem := range elems {
			joiner := ""
			switch {
			case j > 0:
				joiner = separator
			case i > 0:
				joiner = appendJoiner
			}

			atoms = append(atoms, elem)
			joiners = append(joiners, joiner)
		}
	}

	if len(atoms) == 0 {
		return []string{""}, []string{""}
	}

	return atoms, joiners
}

// formatValue formats one evaluated value per the parameter's ValueType.
// Array values yield one element per atom; every other type yields exactly one atom.
func formatValue(v hit.Value, valueType hit.ValueType) []string {
	v = v.Resolve()

	switch valueType {
	case hit.TypeArray:
		switch v.Kind() {
		case hit.KindArray:
			return v.AsArray()
		case hit.KindJSON:
			return formatJSONElements(v.AsJSON())
		default:
			return []string{v.String()}
		}

	case hit.TypeJSON:
		return []string{formatJSON(v)}

	case hit.TypeInteger:
		switch v.Kind() {
		case hit.KindFloat:
			return []string{strconv.FormatInt(int64(v.AsFloat()), 10)}
		case hit.KindBool:
			if v.AsBool() {
				return []string{"1"}
			}
			return []string{"0"}
		}

	case hit.TypeFloat:
		if v.Kind() == hit.KindInteger {
			return []string{strconv.FormatFloat(float64(v.AsInt()), 'f', -1, 64)}
		}

	case hit.TypeBool:
		if v.Kind() == hit.KindInteger {
			return []string{strconv.FormatBool(v.AsInt() != 0)}
		}
	}

	if v.Kind() == hit.KindJSON {
		return []string{formatJSON(v)}
	}

	return []string{v.String()}
}

// formatJSON returns compact JSON. Strings are taken as JSON text. Unmarshalable values yield "".
func formatJSON(v hit.Value) string {
	switch v.Kind() {
	case hit.KindJSON:
		out, err := jsonAPI.MarshalToString(v.AsJSON())
		if err != nil {
			return ""
		}
		return out

	case hit.KindArray:
		out, err := jsonAPI.MarshalToString(v.AsArray())
		if err != nil {
			return ""
		}
		return out

	default:
		return v.String()
	}
}

// formatJSONElements splits a JSON array structure into one atom per element.
func formatJSONElements(structure any) []string {
	var elems []any

	switch typed := structure.(type) {
	case []any:
		elems = typed
	case []string:
		return append([]string(nil), typed...)
	default:
		return []string{formatJSON(hit.JSON(structure))}
	}

	out := make([]string, 0, len(elems))
	for _, elem := range elems {
		if s, ok := elem.(string); ok {
			out = append(out, s)
			continue
		}
		out = append(out, formatJSON(hit.JSON(elem)))
	}

	return out
}

// jsonMembers divides JSON text at the top-level members of an object or elements of an array.
// The opening bracket belongs to the first atom and the closing one to the last, so joining the atoms
// with "," restores the text. Scalars, empty structures and invalid text yield a single atom.
func jsonMembers(text string) []string {
	iter := jsoniter.ParseString(jsonAPI, text)

	var members []string
	var open, closing string

	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		open, closing = "{", "}"
		iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			name, err := jsonAPI.MarshalToString(field)
			if err != nil {
				it.ReportError("jsonMembers", err.Error())
				return false
			}

			members = append(members, name+":"+strings.TrimSpace(string(it.SkipAndReturnBytes())))
			return true
		})

	case jsoniter.ArrayValue:
		open, closing = "[", "]"
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			members = append(members, strings.TrimSpace(string(it.SkipAndReturnBytes())))
			return true
		})

	default:
		return []string{text}
	}

	if iter.Error != nil || len(members) < 2 {
		return []string{text}
	}

	members[0] = open + members[0]
	members[len(members)-1] += closing

	return members
}

func jsonJoiners(n int) []string {
	joiners := make([]string, n)
	for i := 1; i < n; i++ {
		joiners[i] = jsonMemberJoiner
	}

	return joiners
}

// mergeJSONObjects merges JSON object values by key union, later values winning on scalar conflicts.
// It reports false if any value is not a JSON object.
func mergeJSONObjects(values []hit.Value) (string, bool) {
	merged := make(map[string]any)

	for _, v := range values {
		obj, ok := toJSONObject(v.Resolve())
		if !ok {
			return "", false
		}
		deepMerge(merged, obj)
	}

	out, err := jsonAPI.MarshalToString(merged)
	if err != nil {
		return "", false
	}

	return out, true
}

func toJSONObject(v hit.Value) (map[string]any, bool) {
	var raw []byte

	switch v.Kind() {
	case hit.KindJSON:
		if obj, ok := v.AsJSON().(map[string]any); ok {
			return obj, true
		}

		encoded, err := jsonAPI.Marshal(v.AsJSON())
		if err != nil {
			return nil, false
		}
		raw = encoded

	case hit.KindString:
		raw = []byte(v.AsString())

	default:
		return nil, false
	}

	var obj map[string]any
	if err := jsonAPI.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, false
	}

	return obj, true
}

func deepMerge(dst, src map[string]any) {
	for key, srcVal := range src {
		srcObj, srcIsObj := srcVal.(map[string]any)
		dstObj, dstIsObj := dst[key].(map[string]any)

		if srcIsObj && dstIsObj {
			copied := make(map[string]any, len(dstObj))
			for k, v := range dstObj {
				copied[k] = v
			}
			deepMerge(copied, srcObj)
			dst[key] = copied
			continue
		}

		dst[key] = srcVal
	}
}

// percentEncode escapes everything except RFC 3986 unreserved characters. Spaces become "%20".
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
