// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package contract describes the data a skill accepts and produces.
//
// A contract parses an untrusted value into its normalized form or fails
// with a descriptive error. Contracts also publish a JSON schema so that
// transports such as MCP can advertise the shape to remote callers.
package contract

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/invopop/jsonschema"
)

// Contract validates and normalizes values crossing the skill boundary.
type Contract interface {
	// Parse returns the normalized value or an error describing the mismatch.
	Parse(value any) (any, error)
	// Schema describes accepted values as JSON schema.
	Schema() *jsonschema.Schema
}

// Typed is a Contract whose normalized value has static type T.
type Typed[T any] struct {
	parse  func(value any) (T, error)
	schema *jsonschema.Schema
}

// Func builds a typed contract from a parse function and schema.
// A nil schema advertises an unconstrained value.
func Func[T any](schema *jsonschema.Schema, parse func(value any) (T, error)) Typed[T] {
	if schema == nil {
		schema = &jsonschema.Schema{}
	}
	return Typed[T]{parse: parse, schema: schema}
}

// Parse implements Contract.
func (c Typed[T]) Parse(value any) (any, error) {
	return c.ParseAs(value)
}

// ParseAs parses value into T.
func (c Typed[T]) ParseAs(value any) (T, error) {
	if c.parse == nil {
		var zero T
		return zero, fmt.Errorf("contract has no parser")
	}
	return c.parse(value)
}

// Schema implements Contract.
func (c Typed[T]) Schema() *jsonschema.Schema {
	return c.schema
}

// Describe returns a short label for the schema, e.g. "number" or "object".
func Describe(c Contract) string {
	if c == nil {
		return "nil"
	}
	s := c.Schema()
	if s == nil || s.Type == "" {
		return "any"
	}
	return s.Type
}

// Violations collects field-level contract errors into one error.
type Violations struct {
	merr *multierror.Error
}

// Add records a violation at path. An empty path refers to the value itself.
func (v *Violations) Add(path string, err error) {
	if err == nil {
		return
	}
	if path != "" {
		err = fmt.Errorf("%s: %w", path, err)
	}
	v.merr = multierror.Append(v.merr, err)
}

// Addf records a formatted violation at path.
func (v *Violations) Addf(path, format string, args ...any) {
	v.Add(path, fmt.Errorf(format, args...))
}

// Len returns the number of recorded violations.
func (v *Violations) Len() int {
	if v.merr == nil {
		return 0
	}
	return v.merr.Len()
}

// Err returns nil when nothing was recorded, otherwise a single-line error.
func (v *Violations) Err() error {
	if v.merr == nil {
		return nil
	}
	v.merr.ErrorFormat = joinErrors
	return v.merr.ErrorOrNil()
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

func typeName(value any) string {
	if value == nil {
		return "null"
	}
	return fmt.Sprintf("%T", value)
}
