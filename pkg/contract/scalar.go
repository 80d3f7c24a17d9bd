// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/invopop/jsonschema"
)

// Number accepts any finite Go numeric value or json.Number and normalizes it to float64.
func Number() Typed[float64] {
	return Func(&jsonschema.Schema{Type: "number"}, parseNumber)
}

// Integer accepts integral numeric values and normalizes them to int64.
// Floats are accepted only when they carry no fractional part.
func Integer() Typed[int64] {
	return Func(&jsonschema.Schema{Type: "integer"}, func(value any) (int64, error) {
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int8:
			return int64(v), nil
		case int16:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case uint8:
			return int64(v), nil
		case uint16:
			return int64(v), nil
		case uint32:
			return int64(v), nil
		case uint:
			if uint64(v) > math.MaxInt64 {
				return 0, fmt.Errorf("integer %d overflows int64", v)
			}
			return int64(v), nil
		case uint64:
			if v > math.MaxInt64 {
				return 0, fmt.Errorf("integer %d overflows int64", v)
			}
			return int64(v), nil
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n, nil
			}
		}
		f, err := parseNumber(value)
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %s", typeName(value))
		}
		if !integral(f) || f >= 1<<63 || f < -(1<<63) {
			return 0, fmt.Errorf("expected an integer, got %v", f)
		}
		return int64(f), nil
	})
}

// integral reports whether f is finite and has no fractional part.
func integral(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

func parseNumber(value any) (float64, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", v.String())
		}
		f = n
	default:
		return 0, fmt.Errorf("expected a number, got %s", typeName(value))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected a finite number, got %v", f)
	}
	return f, nil
}

// String accepts string values.
func String() Typed[string] {
	return Func(&jsonschema.Schema{Type: "string"}, func(value any) (string, error) {
		s, ok := value.(string)
		if !ok {
			return "", fmt.Errorf("expected a string, got %s", typeName(value))
		}
		return s, nil
	})
}

// NonEmptyString accepts strings with at least one non-space character and trims them.
func NonEmptyString() Typed[string] {
	base := String()
	return Func(&jsonschema.Schema{Type: "string", MinLength: ptr(uint64(1))}, func(value any) (string, error) {
		s, err := base.ParseAs(value)
		if err != nil {
			return "", err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("expected a non-empty string")
		}
		return s, nil
	})
}

// Bool accepts boolean values.
func Bool() Typed[bool] {
	return Func(&jsonschema.Schema{Type: "boolean"}, func(value any) (bool, error) {
		b, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("expected a boolean, got %s", typeName(value))
		}
		return b, nil
	})
}

// Any accepts every value unchanged, including nil.
func Any() Typed[any] {
	return Func(&jsonschema.Schema{}, func(value any) (any, error) {
		return value, nil
	})
}

// SliceOf accepts a slice whose elements all satisfy elem.
// Both []T and []any are accepted; every invalid element is reported.
func SliceOf[T any](elem Typed[T]) Typed[[]T] {
	schema := &jsonschema.Schema{Type: "array", Items: elem.Schema()}
	return Func(schema, func(value any) ([]T, error) {
		var items []any
		switch v := value.(type) {
		case []T:
			items = make([]any, len(v))
			for i := range v {
				items[i] = v[i]
			}
		case []any:
			items = v
		default:
			return nil, fmt.Errorf("expected an array, got %s", typeName(value))
		}
		out := make([]T, 0, len(items))
		var violations Violations
		for i, item := range items {
			parsed, err := elem.ParseAs(item)
			if err != nil {
				violations.Add(fmt.Sprintf("[%d]", i), err)
				continue
			}
			out = append(out, parsed)
		}
		if err := violations.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
}

func ptr[T any](v T) *T {
	return &v
}
