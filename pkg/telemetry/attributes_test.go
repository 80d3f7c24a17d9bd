// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSkillAttributes(t *testing.T) {
	attrs := SkillAttributes("double", "run-123", "user-1")

	expected := map[string]any{
		AttrSkillID:   "double",
		AttrRunID:     "run-123",
		AttrRunUserID: "user-1",
	}

	assertAttributes(t, attrs, expected)
}

func TestSkillAttributesOmitEmpty(t *testing.T) {
	attrs := SkillAttributes("double", "", "")
	if len(attrs) != 1 {
		t.Fatalf("expected only skill id, got %v", attrs)
	}
}

func TestOutcomeAttributes(t *testing.T) {
	attrs := OutcomeAttributes(false, "INVALID_INPUT", 12)

	expected := map[string]any{
		AttrRunSuccess:   false,
		AttrRunErrorCode: "INVALID_INPUT",
		AttrRunDuration:  int64(12),
	}

	assertAttributes(t, attrs, expected)
}

func TestSequenceAttributes(t *testing.T) {
	attrs := SequenceAttributes(3, 2)

	expected := map[string]any{
		AttrSequenceLength:   3,
		AttrSequenceExecuted: 2,
		AttrSequenceHalted:   true,
	}

	assertAttributes(t, attrs, expected)
}

func assertAttributes(t *testing.T, attrs []attribute.KeyValue, expected map[string]any) {
	t.Helper()
	got := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.AsInterface()
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d attributes, got %d: %v", len(expected), len(got), got)
	}
	for key, want := range expected {
		value, ok := got[key]
		if !ok {
			t.Fatalf("missing attribute %s", key)
		}
		if w, ok := want.(int); ok {
			want = int64(w)
		}
		if value != want {
			t.Fatalf("attribute %s: expected %v (%T), got %v (%T)", key, want, want, value, value)
		}
	}
}
