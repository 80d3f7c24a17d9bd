package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/skillrt/pkg/errors"
	"github.com/jllopis/skillrt/pkg/skills"
	"github.com/jllopis/skillrt/pkg/telemetry"
)

// RunSequence runs skillIDs[i] with inputs[i] in order and stops at the first
// failure. The returned slice holds the results up to and including the
// failing one.
//
// A length mismatch between skillIDs and inputs is a caller error: it is
// returned before any skill runs.
func (r *Runtime) RunSequence(ctx context.Context, skillIDs []string, inputs []any, call skills.CallContext) ([]*Result, error) {
	if len(skillIDs) != len(inputs) {
		return nil, errors.Newf(errors.CodePrecondition,
			"skill ids and inputs must have the same length (got %d ids, %d inputs)", len(skillIDs), len(inputs))
	}
	steps := make([]Step, len(skillIDs))
	for i, id := range skillIDs {
		steps[i] = Step{SkillID: id, Input: inputs[i]}
	}
	return r.RunSteps(ctx, steps, call), nil
}

// RunSteps runs steps in order with fail-fast semantics. All steps share one run id.
func (r *Runtime) RunSteps(ctx context.Context, steps []Step, call skills.CallContext) []*Result {
	return r.chain(ctx, len(steps), call, func(i int, _ any) Step {
		return steps[i]
	})
}

// RunPipeline runs skillIDs in order, feeding each successful output to the
// next skill as input. The first skill receives input.
func (r *Runtime) RunPipeline(ctx context.Context, skillIDs []string, input any, call skills.CallContext) []*Result {
	return r.chain(ctx, len(skillIDs), call, func(i int, prev any) Step {
		if i == 0 {
			return Step{SkillID: skillIDs[0], Input: input}
		}
		return Step{SkillID: skillIDs[i], Input: prev}
	})
}

func (r *Runtime) chain(ctx context.Context, n int, call skills.CallContext, next func(i int, prev any) Step) []*Result {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, runID := skills.EnsureRunID(ctx)
	ctx, span := r.tracer.Start(ctx, "Runtime.RunSequence",
		trace.WithAttributes(telemetry.SkillAttributes("", runID, call.UserID)...),
	)
	defer span.End()

	results := make([]*Result, 0, n)
	var prev any
	for i := 0; i < n; i++ {
		step := next(i, prev)
		res := r.Run(ctx, step.SkillID, step.Input, call)
		results = append(results, res)
		if !res.Success {
			r.logger.WarnContext(ctx, "runtime.sequence.halted",
				slog.String("run_id", runID),
				slog.Int("step", i),
				slog.String("skill_id", step.SkillID),
				slog.String("code", string(res.Code)),
			)
			span.SetStatus(codes.Error, fmt.Sprintf("step %d (%s) failed", i, step.SkillID))
			break
		}
		prev = res.Data
	}

	span.SetAttributes(telemetry.SequenceAttributes(n, len(results))...)
	r.metrics.RecordSequence(ctx, n, len(results))
	r.logger.InfoContext(ctx, "runtime.sequence.complete",
		slog.String("run_id", runID),
		slog.Int("length", n),
		slog.Int("executed", len(results)),
	)
	return results
}

// Estimate returns the static duration and cost hints of an enabled skill.
// It never invokes the implementation.
func (r *Runtime) Estimate(skillID string) (*Estimate, bool) {
	skill, ok := r.resolver.Get(skillID)
	if !ok {
		return nil, false
	}
	est := &Estimate{Duration: skill.EstimatedDuration}
	if len(skill.Cost) > 0 {
		est.Cost = make(map[string]float64, len(skill.Cost))
		for k, v := range skill.Cost {
			est.Cost[k] = v
		}
	}
	return est, true
}
