// Package runtime executes registered skills with contract checks, timing and logs.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/skillrt/pkg/contract"
	"github.com/jllopis/skillrt/pkg/errors"
	"github.com/jllopis/skillrt/pkg/skills"
	"github.com/jllopis/skillrt/pkg/telemetry"
)

const defaultExecutionError = "Skill execution failed"

// Resolver looks up enabled skills by id. *skills.Registry implements it.
type Resolver interface {
	Get(id string) (skills.Skill, bool)
}

// Runtime is a stateless execution engine over a Resolver.
// It is safe for concurrent use; every call builds its own trail and result.
type Runtime struct {
	resolver Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *telemetry.SkillMetrics
	audit    AuditStore
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTracer overrides the tracer, which defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runtime) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMetrics records run metrics.
func WithMetrics(metrics *telemetry.SkillMetrics) Option {
	return func(r *Runtime) {
		r.metrics = metrics
	}
}

// WithAuditStore records every finished run in store.
func WithAuditStore(store AuditStore) Option {
	return func(r *Runtime) {
		r.audit = store
	}
}

// WithTimeout bounds each implementation call. Zero, the default, waits indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock overrides the time source for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runtime) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a runtime that resolves skills through resolver.
func New(resolver Resolver, opts ...Option) *Runtime {
	r := &Runtime{
		resolver: resolver,
		logger:   slog.Default(),
		tracer:   otel.Tracer("skillrt/runtime"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves, validates and executes one skill.
//
// Run never panics and never returns an error: resolution failures,
// contract violations, implementation errors and timeouts all produce a
// Result with Success false.
func (r *Runtime) Run(ctx context.Context, skillID string, input any, call skills.CallContext) *Result {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, runID := skills.EnsureRunID(ctx)
	ctx, span := r.tracer.Start(ctx, "Runtime.Run",
		trace.WithAttributes(telemetry.SkillAttributes(skillID, runID, call.UserID)...),
	)
	defer span.End()

	t := &trail{}
	t.add(fmt.Sprintf("Starting skill '%s'", skillID))
	r.logger.InfoContext(ctx, "runtime.run.start",
		slog.String("skill_id", skillID),
		slog.String("run_id", runID),
		slog.String("user_id", call.UserID),
	)

	data, failure := r.execute(ctx, skillID, input, call, t)

	elapsed := time.Since(start)
	if elapsed < 0 {
		elapsed = 0
	}
	res := &Result{
		Success:    failure == nil,
		DurationMs: elapsed.Milliseconds(),
		Metadata: Metadata{
			SkillID:   skillID,
			Timestamp: r.now().UTC(),
			UserID:    call.UserID,
			RunID:     runID,
		},
	}
	if failure != nil {
		res.Error = failure.Message
		res.Code = failure.Code
		t.add(fmt.Sprintf("Skill '%s' failed after %dms: %s", skillID, res.DurationMs, res.Error))
	} else {
		res.Data = data
		t.add(fmt.Sprintf("Skill '%s' completed in %dms", skillID, res.DurationMs))
	}
	res.Logs = t.snapshot()

	r.observe(ctx, span, res, start)
	return res
}

// execute walks the resolve, validate, invoke, validate pipeline and
// returns the output or the classified failure.
func (r *Runtime) execute(ctx context.Context, skillID string, input any, call skills.CallContext, t *trail) (any, *errors.SkillError) {
	skill, ok := r.resolver.Get(skillID)
	if !ok {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("Skill '%s' not found or disabled", skillID), nil).
			WithContext("skill_id", skillID)
	}
	t.add(fmt.Sprintf("Resolved skill '%s' (%s)", skill.ID, skill.Name))

	validated, err := skill.Input.Parse(input)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "Input validation failed: "+err.Error(), err)
	}
	t.add(fmt.Sprintf("Input validated against %s contract", contract.Describe(skill.Input)))

	raw, err := r.invoke(ctx, skill, validated, call)
	if err != nil {
		return nil, classifyExecution(err)
	}
	t.add("Implementation returned")

	output, err := skill.Output.Parse(raw)
	if err != nil {
		return nil, errors.New(errors.CodeInvalidOutput, "Output validation failed: "+err.Error(), err)
	}
	t.add(fmt.Sprintf("Output validated against %s contract", contract.Describe(skill.Output)))
	return output, nil
}

// invoke calls the implementation, racing it against the configured timeout
// and the caller's context. An interrupted call fails with CodeTimeout.
func (r *Runtime) invoke(ctx context.Context, skill skills.Skill, input any, call skills.CallContext) (any, error) {
	parent := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if ctx.Done() == nil {
		return r.safeExecute(ctx, skill, input, call)
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := r.safeExecute(ctx, skill, input, call)
		done <- outcome{value, err}
	}()

	select {
	case <-ctx.Done():
		return nil, r.interrupted(skill.ID, parent, ctx)
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return nil, r.interrupted(skill.ID, parent, ctx)
		}
		return res.value, res.err
	}
}

// interrupted reports why ctx ended. The runtime deadline is blamed only
// while the caller's context is still live.
func (r *Runtime) interrupted(skillID string, parent, ctx context.Context) *errors.SkillError {
	if err := parent.Err(); err != nil {
		return errors.New(errors.CodeTimeout,
			fmt.Sprintf("Skill '%s' cancelled: %v", skillID, err), err).
			WithRecoverable(true)
	}
	return errors.New(errors.CodeTimeout,
		fmt.Sprintf("Skill '%s' timed out after %s", skillID, r.timeout), ctx.Err()).
		WithRecoverable(true)
}

func (r *Runtime) safeExecute(ctx context.Context, skill skills.Skill, input any, call skills.CallContext) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "runtime.run.panic",
				slog.String("skill_id", skill.ID),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			value, err = nil, fmt.Errorf("skill panicked: %v", rec)
		}
	}()
	return skill.Impl.Execute(ctx, input, call)
}

// classifyExecution maps an implementation error onto the execution-failure
// family. Timeout and parse failures keep their own codes.
func classifyExecution(err error) *errors.SkillError {
	msg := err.Error()
	code := errors.CodeExecutionFailure
	if kind := errors.CodeOf(err); kind != "" {
		se := errors.AsSkillError(err)
		msg = se.Detail()
		if kind == errors.CodeTimeout || kind == errors.CodeParseFailure {
			code = kind
			if se.Message != "" {
				msg = se.Message
			}
		}
	}
	if msg == "" {
		msg = defaultExecutionError
	}
	return errors.New(code, msg, err)
}

func (r *Runtime) observe(ctx context.Context, span trace.Span, res *Result, start time.Time) {
	span.SetAttributes(telemetry.OutcomeAttributes(res.Success, string(res.Code), res.DurationMs)...)
	r.metrics.RecordRun(ctx, res.Metadata.SkillID, res.Success, string(res.Code), float64(time.Since(start).Microseconds())/1000)

	attrs := []any{
		slog.String("skill_id", res.Metadata.SkillID),
		slog.String("run_id", res.Metadata.RunID),
		slog.Int64("duration_ms", res.DurationMs),
	}
	if res.Success {
		span.SetStatus(codes.Ok, "")
		r.logger.InfoContext(ctx, "runtime.run.complete", attrs...)
	} else {
		span.SetStatus(codes.Error, res.Error)
		attrs = append(attrs,
			slog.String("code", string(res.Code)),
			slog.String("error", res.Error),
		)
		r.logger.WarnContext(ctx, "runtime.run.error", attrs...)
	}

	if r.audit == nil {
		return
	}
	if err := r.audit.Record(ctx, newAuditEvent(res, start)); err != nil {
		r.logger.WarnContext(ctx, "runtime.audit.error",
			slog.String("skill_id", res.Metadata.SkillID),
			slog.String("run_id", res.Metadata.RunID),
			slog.String("error", err.Error()),
		)
	}
}
