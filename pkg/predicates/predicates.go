// Package predicates ships the builtin named predicates that class files
// and hand-written specifications attach to attributes and constructor
// parameters, plus a registry for resolving predicates by name.
package predicates

import (
	"encoding/json"
	"math"
	"reflect"

	"github.com/classkit/minion/pkg/assert"
)

// Defined accepts any non-nil value.
func Defined(v any) bool {
	return v != nil
}

// IsInt accepts Go integer kinds and numbers that carry an integral
// value. YAML decodes integers to int while JSON decodes every number
// to float64, so integral floats and json.Number values count too.
func IsInt(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return isIntegral(float64(n))
	case float64:
		return isIntegral(n)
	case json.Number:
		_, err := n.Int64()
		return err == nil
	default:
		return false
	}
}

func isIntegral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && math.Trunc(f) == f
}

// IsNumber accepts any integer or floating point value.
func IsNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}

// IsString accepts string values.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// IsBool accepts boolean values.
func IsBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// IsSlice accepts slices and arrays.
func IsSlice(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// IsMap accepts map values.
func IsMap(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Map
}

// IsCallable accepts values that expose the selector-based call surface
// minion instances implement.
func IsCallable(v any) bool {
	_, ok := v.(interface {
		Call(selector string, args ...any) (any, error)
	})
	return ok
}

// NonEmpty accepts strings, slices, arrays and maps with at least one
// element. Everything else is rejected.
func NonEmpty(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	default:
		return false
	}
}

// Positive accepts numbers greater than zero.
func Positive(v any) bool {
	f, ok := asFloat(v)
	return ok && f > 0
}

// NonNegative accepts numbers greater than or equal to zero.
func NonNegative(v any) bool {
	f, ok := asFloat(v)
	return ok && f >= 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// OneOf builds a predicate accepting only the listed values, compared
// with reflect.DeepEqual.
func OneOf(allowed ...any) assert.Predicate {
	return func(v any) bool {
		for _, a := range allowed {
			if reflect.DeepEqual(v, a) {
				return true
			}
		}
		return false
	}
}
