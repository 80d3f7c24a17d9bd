// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills defines skill descriptors and the registry that resolves them.
package skills

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/jllopis/skillrt/pkg/contract"
)

// Category tags a skill for filtering. Values are compared by string equality.
type Category string

const (
	CategoryGeneration    Category = "generation"
	CategoryOptimisation  Category = "optimisation"
	CategoryAnalysis      Category = "analysis"
	CategoryCustomisation Category = "customisation"
)

// Implementation performs the work of a skill.
// Input has already passed the skill's input contract. The returned value is
// checked against the output contract by the runtime.
type Implementation interface {
	Execute(ctx context.Context, input any, call CallContext) (any, error)
}

// ImplementationFunc adapts a function to Implementation.
type ImplementationFunc func(ctx context.Context, input any, call CallContext) (any, error)

// Execute implements Implementation.
func (f ImplementationFunc) Execute(ctx context.Context, input any, call CallContext) (any, error) {
	return f(ctx, input, call)
}

// Skill describes a named capability. It is treated as immutable once registered.
type Skill struct {
	ID          string
	Name        string
	Description string
	Category    Category

	Input  contract.Contract
	Output contract.Contract

	// EstimatedDuration and Cost are planning hints and are never enforced.
	EstimatedDuration time.Duration
	Cost              map[string]float64

	Impl Implementation
}

// Validate checks that the descriptor can be registered.
func (s Skill) Validate() error {
	var violations contract.Violations
	if s.ID == "" {
		violations.Addf("id", "is required")
	}
	if s.Input == nil {
		violations.Addf("input", "contract is required")
	}
	if s.Output == nil {
		violations.Addf("output", "contract is required")
	}
	if s.Impl == nil {
		violations.Addf("impl", "implementation is required")
	}
	if s.EstimatedDuration < 0 {
		violations.Addf("estimated_duration", "must not be negative")
	}
	if err := violations.Err(); err != nil {
		return fmt.Errorf("invalid skill %q: %w", s.ID, err)
	}
	return nil
}

// clone returns a copy that does not share the Cost map.
func (s Skill) clone() Skill {
	s.Cost = maps.Clone(s.Cost)
	return s
}

// TypedFunc is a skill body working on normalized, typed values.
type TypedFunc[In, Out any] func(ctx context.Context, input In, call CallContext) (Out, error)

// Typed fills the contracts and implementation of meta from typed parts.
//
//	double := skills.Typed(skills.Skill{ID: "double"}, contract.Number(), contract.Number(),
//		func(_ context.Context, x float64, _ skills.CallContext) (float64, error) { return x * 2, nil })
func Typed[In, Out any](meta Skill, in contract.Typed[In], out contract.Typed[Out], fn TypedFunc[In, Out]) Skill {
	meta.Input = in
	meta.Output = out
	meta.Impl = ImplementationFunc(func(ctx context.Context, input any, call CallContext) (any, error) {
		var typed In
		if input != nil {
			v, ok := input.(In)
			if !ok {
				return nil, fmt.Errorf("skill %q received %T, expected %T", meta.ID, input, typed)
			}
			typed = v
		}
		result, err := fn(ctx, typed, call)
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	return meta
}
