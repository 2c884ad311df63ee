package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

var (
	errUnknownValueType  = errors.New("unknown value type")
	errUnknownPosition   = errors.New("unknown position")
	errMissingRelative   = errors.New("position requires relative_key")
	errInvalidParamValue = errors.New("invalid parameter value")
	errEmptyParamKey     = errors.New("parameter key must not be empty")
)

// paramSpec is one entry of a parameter file.
type paramSpec struct {
	Key         string `yaml:"key"`
	Value       any    `yaml:"value"`
	Type        string `yaml:"type"`
	Persistent  bool   `yaml:"persistent"`
	Append      bool   `yaml:"append"`
	Encode      bool   `yaml:"encode"`
	Separator   string `yaml:"separator"`
	Position    string `yaml:"position"`
	RelativeKey string `yaml:"relative_key"`
}

func readParamFile(path string) ([]paramSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}

	var specs []paramSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}

	return specs, nil
}

// write is one SetParam call derived from a paramSpec.
type write struct {
	key       hit.KeyString
	value     hit.Value
	valueType hit.ValueType
	options   []hit.ParamOption
}

func (p paramSpec) toWrite() (write, error) {
	if p.Key == "" {
		return write{}, errEmptyParamKey
	}

	valueType, value, err := p.typedValue()
	if err != nil {
		return write{}, fmt.Errorf("parameter %q: %w", p.Key, err)
	}

	options, err := p.paramOptions()
	if err != nil {
		return write{}, fmt.Errorf("parameter %q: %w", p.Key, err)
	}

	return write{key: p.Key, value: value, valueType: valueType, options: options}, nil
}

func (p paramSpec) typedValue() (hit.ValueType, hit.Value, error) {
	switch strings.ToLower(p.Type) {
	case "", "string":
		return hit.TypeString, hit.String(scalarString(p.Value)), nil

	case "int", "integer":
		switch v := p.Value.(type) {
		case int:
			return hit.TypeInteger, hit.Int(int64(v)), nil
		case float64:
			return hit.TypeInteger, hit.Float(v), nil
		case bool:
			return hit.TypeInteger, hit.Bool(v), nil
		case string:
			i, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, hit.Value{}, errors.Join(errInvalidParamValue, err)
			}
			return hit.TypeInteger, hit.Int(i), nil
		}

	case "float":
		switch v := p.Value.(type) {
		case int:
			return hit.TypeFloat, hit.Int(int64(v)), nil
		case float64:
			return hit.TypeFloat, hit.Float(v), nil
		}

	case "bool":
		switch v := p.Value.(type) {
		case bool:
			return hit.TypeBool, hit.Bool(v), nil
		case int:
			return hit.TypeBool, hit.Int(int64(v)), nil
		}

	case "array":
		if elems, ok := p.Value.([]any); ok {
			out := make([]string, 0, len(elems))
			for _, elem := range elems {
				out = append(out, scalarString(elem))
			}
			return hit.TypeArray, hit.Array(out...), nil
		}
		return hit.TypeArray, hit.Array(scalarString(p.Value)), nil

	case "json":
		return hit.TypeJSON, hit.JSON(p.Value), nil

	default:
		return 0, hit.Value{}, fmt.Errorf("%w: %q", errUnknownValueType, p.Type)
	}

	return 0, hit.Value{}, fmt.Errorf("%w: %v is not a valid %s", errInvalidParamValue, p.Value, p.Type)
}

func (p paramSpec) paramOptions() ([]hit.ParamOption, error) {
	var options []hit.ParamOption

	switch strings.ToLower(p.Position) {
	case "":
	case "first":
		options = append(options, hit.First())
	case "last":
		options = append(options, hit.Last())
	case "before", "after":
		if p.RelativeKey == "" {
			return nil, fmt.Errorf("%w: %s", errMissingRelative, p.Position)
		}
		if strings.EqualFold(p.Position, "before") {
			options = append(options, hit.Before(p.RelativeKey))
		} else {
			options = append(options, hit.After(p.RelativeKey))
		}
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownPosition, p.Position)
	}

	if p.Persistent {
		options = append(options, hit.Persistent())
	}
	if p.Append {
		options = append(options, hit.Append())
	}
	if p.Encode {
		options = append(options, hit.Encode())
	}
	if p.Separator != "" {
		options = append(options, hit.Separator(p.Separator))
	}

	return options, nil
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
