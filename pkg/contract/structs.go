// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
)

// Validator is implemented by struct payloads with cross-field rules.
type Validator interface {
	Validate() error
}

// Struct accepts T, *T, map[string]any or raw JSON objects and decodes them into T.
//
// Field names follow the `json` tags of T. Fields without `omitempty` are
// required. Unknown keys are rejected. When T implements Validator, Validate
// runs after decoding.
func Struct[T any]() Typed[T] {
	schema := SchemaFor[T]()
	required := append([]string(nil), schema.Required...)
	return Func(schema, func(value any) (T, error) {
		var out T
		var fields map[string]any
		switch v := value.(type) {
		case T:
			return out, validateStruct(v, &out)
		case *T:
			if v == nil {
				return out, fmt.Errorf("expected an object, got null")
			}
			return out, validateStruct(*v, &out)
		case map[string]any:
			fields = v
		case json.RawMessage:
			m, err := decodeObject(v)
			if err != nil {
				return out, err
			}
			fields = m
		case []byte:
			m, err := decodeObject(v)
			if err != nil {
				return out, err
			}
			fields = m
		default:
			return out, fmt.Errorf("expected an object, got %s", typeName(value))
		}

		var violations Violations
		for _, name := range required {
			if _, ok := fields[name]; !ok {
				violations.Addf(name, "required field missing")
			}
		}
		if err := violations.Err(); err != nil {
			return out, err
		}

		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:     "json",
			Result:      &out,
			ErrorUnused: true,
			DecodeHook:  mapstructure.ComposeDecodeHookFunc(integerHook),
		})
		if err != nil {
			return out, fmt.Errorf("build decoder: %w", err)
		}
		if err := decoder.Decode(fields); err != nil {
			return out, fmt.Errorf("%s", flatten(err.Error()))
		}
		return out, validateStruct(out, &out)
	})
}

// SchemaFor reflects the JSON schema of T with inlined definitions.
func SchemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	return schema
}

func validateStruct[T any](value T, out *T) error {
	*out = value
	if v, ok := any(value).(Validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// integerHook rejects fractional or out of range numbers bound for integer
// fields instead of letting the decoder truncate them.
func integerHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case json.Number:
		if to.Kind() >= reflect.Int && to.Kind() <= reflect.Int64 {
			if n, err := v.Int64(); err == nil {
				return checkInt(to, n)
			}
		}
		parsed, err := v.Float64()
		if err != nil {
			return data, nil
		}
		f = parsed
	default:
		return data, nil
	}

	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !integral(f) || f >= 1<<63 || f < -(1<<63) {
			return nil, fmt.Errorf("expected an integer, got %v", f)
		}
		return checkInt(to, int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if !integral(f) || f < 0 || f >= 1<<64 {
			return nil, fmt.Errorf("expected a non-negative integer, got %v", f)
		}
		n := uint64(f)
		if reflect.New(to).Elem().OverflowUint(n) {
			return nil, fmt.Errorf("integer %d overflows %s", n, to)
		}
		return n, nil
	}
	return data, nil
}

func checkInt(to reflect.Type, n int64) (any, error) {
	if reflect.New(to).Elem().OverflowInt(n) {
		return nil, fmt.Errorf("integer %d overflows %s", n, to)
	}
	return n, nil
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("expected a JSON object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("expected an object, got null")
	}
	return m, nil
}

// flatten collapses multi-line decoder errors onto one line.
func flatten(msg string) string {
	lines := strings.Split(msg, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, " ")
}
