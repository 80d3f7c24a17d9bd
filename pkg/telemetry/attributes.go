// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides logging, tracing and metrics for skill execution.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for skill runtime telemetry.
const (
	// Skill attributes
	AttrSkillID       = "skillrt.skill.id"
	AttrSkillCategory = "skillrt.skill.category"

	// Run attributes
	AttrRunID        = "skillrt.run.id"
	AttrRunUserID    = "skillrt.run.user_id"
	AttrRunSuccess   = "skillrt.run.success"
	AttrRunErrorCode = "skillrt.run.error_code"
	AttrRunDuration  = "skillrt.run.duration_ms"

	// Sequence attributes
	AttrSequenceLength   = "skillrt.sequence.length"
	AttrSequenceExecuted = "skillrt.sequence.executed"
	AttrSequenceHalted   = "skillrt.sequence.halted"
)

// SkillAttributes returns the attributes identifying a run of a skill.
func SkillAttributes(skillID, runID, userID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrSkillID, skillID),
	}
	if runID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, runID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(AttrRunUserID, userID))
	}
	return attrs
}

// OutcomeAttributes describes how a run finished.
func OutcomeAttributes(success bool, code string, durationMs int64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrRunSuccess, success),
		attribute.Int64(AttrRunDuration, durationMs),
	}
	if code != "" {
		attrs = append(attrs, attribute.String(AttrRunErrorCode, code))
	}
	return attrs
}

// SequenceAttributes describes a fail-fast sequence after it stopped.
func SequenceAttributes(length, executed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSequenceLength, length),
		attribute.Int(AttrSequenceExecuted, executed),
		attribute.Bool(AttrSequenceHalted, executed < length),
	}
}
