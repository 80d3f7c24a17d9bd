// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package skilltest provides utilities for testing skills and the runtime.
//
// This package includes:
//   - Spy implementations that count and record invocations
//   - Ready-made numeric skills for sequence tests
//   - Fluent assertions over runtime results
//
// Example usage:
//
//	spy := skilltest.NewSpy(func(_ context.Context, in any, _ skills.CallContext) (any, error) {
//	    return in, nil
//	})
//	reg.MustRegister(skilltest.SkillWith("echo", spy))
//	res := rt.Run(ctx, "echo", "hi", skills.CallContext{})
//	skilltest.AssertResult(t, res).Succeeded().DataEquals("hi")
package skilltest

import (
	"context"
	"sync"
	"time"

	"github.com/jllopis/skillrt/pkg/contract"
	"github.com/jllopis/skillrt/pkg/skills"
)

// Spy is an Implementation that records every call before delegating.
type Spy struct {
	mu     sync.Mutex
	fn     skills.ImplementationFunc
	inputs []any
	calls  []skills.CallContext
}

// NewSpy wraps fn. A nil fn echoes its input.
func NewSpy(fn skills.ImplementationFunc) *Spy {
	if fn == nil {
		fn = func(_ context.Context, input any, _ skills.CallContext) (any, error) {
			return input, nil
		}
	}
	return &Spy{fn: fn}
}

// Execute implements skills.Implementation.
func (s *Spy) Execute(ctx context.Context, input any, call skills.CallContext) (any, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, input)
	s.calls = append(s.calls, call)
	s.mu.Unlock()
	return s.fn(ctx, input, call)
}

// Calls returns how many times the spy ran.
func (s *Spy) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

// Inputs returns the validated inputs seen so far.
func (s *Spy) Inputs() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]any(nil), s.inputs...)
}

// CallContexts returns the call contexts seen so far.
func (s *Spy) CallContexts() []skills.CallContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]skills.CallContext(nil), s.calls...)
}

// SkillWith builds an analysis skill with permissive contracts around impl.
func SkillWith(id string, impl skills.Implementation) skills.Skill {
	return skills.Skill{
		ID:       id,
		Name:     id,
		Category: skills.CategoryAnalysis,
		Input:    contract.Any(),
		Output:   contract.Any(),
		Impl:     impl,
	}
}

// NumberSkill builds a number-to-number skill backed by a spy.
func NumberSkill(id string, fn func(float64) float64) (skills.Skill, *Spy) {
	spy := NewSpy(func(_ context.Context, input any, _ skills.CallContext) (any, error) {
		return fn(input.(float64)), nil
	})
	return skills.Skill{
		ID:                id,
		Name:              id,
		Category:          skills.CategoryAnalysis,
		Input:             contract.Number(),
		Output:            contract.Number(),
		EstimatedDuration: 10 * time.Millisecond,
		Impl:              spy,
	}, spy
}

// Double returns the "double" skill (x => x*2) and its spy.
func Double() (skills.Skill, *Spy) {
	return NumberSkill("double", func(x float64) float64 { return x * 2 })
}

// Inc returns the "inc" skill (x => x+1) and its spy.
func Inc() (skills.Skill, *Spy) {
	return NumberSkill("inc", func(x float64) float64 { return x + 1 })
}

// Blocking returns an implementation that waits for release or ctx.
func Blocking(release <-chan struct{}) skills.ImplementationFunc {
	return func(ctx context.Context, input any, _ skills.CallContext) (any, error) {
		select {
		case <-release:
			return input, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
