// SPDX-License-Identifier: Apache-2.0
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SkillMetrics records run counts, failures and latency per skill.
type SkillMetrics struct {
	// runCounter counts every run by skill and outcome
	runCounter metric.Int64Counter

	// failureCounter counts failed runs by skill and error code
	failureCounter metric.Int64Counter

	// durationHistogram tracks wall-clock run time in milliseconds
	durationHistogram metric.Float64Histogram

	// sequenceCounter counts sequences by whether they were halted early
	sequenceCounter metric.Int64Counter
}

// NewSkillMetrics creates instruments on the global meter provider.
func NewSkillMetrics(ctx context.Context) (*SkillMetrics, error) {
	return NewSkillMetricsWithMeter(ctx, otel.Meter("skillrt/runtime"))
}

// NewSkillMetricsWithMeter creates instruments on the given meter.
func NewSkillMetricsWithMeter(_ context.Context, meter metric.Meter) (*SkillMetrics, error) {
	runCounter, err := meter.Int64Counter(
		"skillrt.runs.total",
		metric.WithDescription("Skill runs by skill and outcome"),
	)
	if err != nil {
		return nil, err
	}

	failureCounter, err := meter.Int64Counter(
		"skillrt.runs.failed",
		metric.WithDescription("Failed skill runs by skill and error code"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"skillrt.run.duration",
		metric.WithDescription("Skill run wall-clock duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sequenceCounter, err := meter.Int64Counter(
		"skillrt.sequences.total",
		metric.WithDescription("Skill sequences by completion"),
	)
	if err != nil {
		return nil, err
	}

	return &SkillMetrics{
		runCounter:        runCounter,
		failureCounter:    failureCounter,
		durationHistogram: durationHistogram,
		sequenceCounter:   sequenceCounter,
	}, nil
}

// RecordRun records one finished run. A nil receiver is a no-op.
func (sm *SkillMetrics) RecordRun(ctx context.Context, skillID string, success bool, code string, durationMs float64) {
	if sm == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	sm.runCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(AttrSkillID, skillID),
			attribute.String("outcome", outcome),
		),
	)
	sm.durationHistogram.Record(ctx, durationMs,
		metric.WithAttributes(
			attribute.String(AttrSkillID, skillID),
			attribute.Bool(AttrRunSuccess, success),
		),
	)
	if !success {
		sm.failureCounter.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String(AttrSkillID, skillID),
				attribute.String(AttrRunErrorCode, code),
			),
		)
	}
}

// RecordSequence records a finished sequence. A nil receiver is a no-op.
func (sm *SkillMetrics) RecordSequence(ctx context.Context, length, executed int) {
	if sm == nil {
		return
	}
	sm.sequenceCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool(AttrSequenceHalted, executed < length),
		),
	)
}
