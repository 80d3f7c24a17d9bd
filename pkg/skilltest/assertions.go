// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package skilltest

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jllopis/skillrt/pkg/errors"
	"github.com/jllopis/skillrt/pkg/runtime"
)

// ResultAssertions provides assertion helpers for runtime results.
type ResultAssertions struct {
	t      testing.TB
	res    *runtime.Result
	failed bool
}

// AssertResult creates assertions for the given result.
func AssertResult(t testing.TB, res *runtime.Result) *ResultAssertions {
	t.Helper()
	if res == nil {
		t.Fatal("result is nil")
	}
	return &ResultAssertions{t: t, res: res}
}

// Failed returns true if any assertion has failed.
func (r *ResultAssertions) Failed() bool {
	return r.failed
}

func (r *ResultAssertions) errorf(format string, args ...any) {
	r.t.Helper()
	r.t.Errorf(format, args...)
	r.failed = true
}

// Succeeded asserts the run succeeded.
func (r *ResultAssertions) Succeeded() *ResultAssertions {
	r.t.Helper()
	if !r.res.Success {
		r.errorf("expected success, got failure [%s] %q", r.res.Code, r.res.Error)
	}
	if r.res.Error != "" {
		r.errorf("successful result carries error %q", r.res.Error)
	}
	return r
}

// FailedWith asserts the run failed with the given code.
func (r *ResultAssertions) FailedWith(code errors.ErrorCode) *ResultAssertions {
	r.t.Helper()
	if r.res.Success {
		r.errorf("expected failure %s, got success with data %v", code, r.res.Data)
		return r
	}
	if r.res.Error == "" {
		r.errorf("failed result has empty error")
	}
	if r.res.Code != code {
		r.errorf("expected code %s, got %s (%q)", code, r.res.Code, r.res.Error)
	}
	if r.res.Data != nil {
		r.errorf("failed result carries data %v", r.res.Data)
	}
	return r
}

// DataEquals asserts the payload deep-equals expected.
func (r *ResultAssertions) DataEquals(expected any) *ResultAssertions {
	r.t.Helper()
	if !reflect.DeepEqual(r.res.Data, expected) {
		r.errorf("expected data %v (%T), got %v (%T)", expected, expected, r.res.Data, r.res.Data)
	}
	return r
}

// ErrorEquals asserts the exact error text.
func (r *ResultAssertions) ErrorEquals(expected string) *ResultAssertions {
	r.t.Helper()
	if r.res.Error != expected {
		r.errorf("expected error %q, got %q", expected, r.res.Error)
	}
	return r
}

// ErrorContains asserts the error text contains substr.
func (r *ResultAssertions) ErrorContains(substr string) *ResultAssertions {
	r.t.Helper()
	if !strings.Contains(r.res.Error, substr) {
		r.errorf("error %q does not contain %q", r.res.Error, substr)
	}
	return r
}

// LogsContain asserts some log line contains substr.
func (r *ResultAssertions) LogsContain(substr string) *ResultAssertions {
	r.t.Helper()
	for _, line := range r.res.Logs {
		if strings.Contains(line, substr) {
			return r
		}
	}
	r.errorf("no log line contains %q in %q", substr, r.res.Logs)
	return r
}

// HasMetadata asserts the provenance fields.
func (r *ResultAssertions) HasMetadata(skillID, userID string) *ResultAssertions {
	r.t.Helper()
	md := r.res.Metadata
	if md.SkillID != skillID {
		r.errorf("expected metadata skill %q, got %q", skillID, md.SkillID)
	}
	if md.UserID != userID {
		r.errorf("expected metadata user %q, got %q", userID, md.UserID)
	}
	if md.Timestamp.IsZero() {
		r.errorf("metadata timestamp is zero")
	}
	if md.RunID == "" {
		r.errorf("metadata run id is empty")
	}
	if r.res.DurationMs < 0 {
		r.errorf("negative duration %d", r.res.DurationMs)
	}
	return r
}

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}

// RequireLen fails the test immediately if results has the wrong length.
func RequireLen(t testing.TB, results []*runtime.Result, expected int) {
	t.Helper()
	if len(results) != expected {
		t.Fatalf("expected %d results, got %d", expected, len(results))
	}
}
