package core

import (
	"encoding/json"
	"math"
	"reflect"
)

// Args carries the keyword arguments of one run. The keys are action
// specific; there is no core-level schema.
type Args map[string]any

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Get returns the raw value for key.
func (a Args) Get(key string) (any, bool) {
	v, ok := a[key]
	return v, ok
}

// String returns a required string argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgumentError{Arg: key, Value: v, Reason: "expected a string"}
	}
	return s, nil
}

// Float returns a required numeric argument.
func (a Args) Float(key string) (float64, error) {
	v, ok := a[key]
	if !ok {
		return 0, missing(key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, &ArgumentError{Arg: key, Value: v, Reason: "expected a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ArgumentError{Arg: key, Value: v, Reason: "expected a finite number"}
	}
	return f, nil
}

// FloatOr returns a numeric argument or def when key is absent.
func (a Args) FloatOr(key string, def float64) (float64, error) {
	if !a.Has(key) {
		return def, nil
	}
	return a.Float(key)
}

// Int returns a required integral argument.
func (a Args) Int(key string) (int, error) {
	f, err := a.Float(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &ArgumentError{Arg: key, Value: a[key], Reason: "expected an integer"}
	}
	if f > math.MaxInt || f < math.MinInt {
		return 0, &ArgumentError{Arg: key, Value: a[key], Reason: "integer out of range"}
	}
	return int(f), nil
}

// Slice returns a required list argument. Any slice or array value is
// accepted and copied into a []any.
func (a Args) Slice(key string) ([]any, error) {
	v, ok := a[key]
	if !ok {
		return nil, missing(key)
	}
	if s, ok := v.([]any); ok {
		return append([]any(nil), s...), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, &ArgumentError{Arg: key, Value: v, Reason: "expected a list"}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func missing(key string) error {
	return &ArgumentError{Arg: key, Reason: "required argument is missing"}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
