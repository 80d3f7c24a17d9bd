package builtin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	skerrors "github.com/jllopis/skillrt/pkg/errors"
	"github.com/jllopis/skillrt/pkg/llm"
	"github.com/jllopis/skillrt/pkg/runtime"
	"github.com/jllopis/skillrt/pkg/skills"
	"github.com/jllopis/skillrt/pkg/skills/builtin"
	"github.com/jllopis/skillrt/pkg/skilltest"
)

func setup(t *testing.T, provider llm.Provider) *runtime.Runtime {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := skills.NewRegistry(skills.WithLogger(quiet))
	if err := builtin.Register(reg, provider, "test-model"); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	return runtime.New(reg, runtime.WithLogger(quiet))
}

func TestArithmetic(t *testing.T) {
	rt := setup(t, nil)
	ctx := context.Background()
	call := skills.CallContext{}

	skilltest.AssertResult(t, rt.Run(ctx, "inc", 41, call)).Succeeded().DataEquals(float64(42))
	skilltest.AssertResult(t, rt.Run(ctx, "double", 2.5, call)).Succeeded().DataEquals(float64(5))
	skilltest.AssertResult(t, rt.Run(ctx, "sum", []any{1, 2, 3.5}, call)).Succeeded().DataEquals(float64(6.5))
	skilltest.AssertResult(t, rt.Run(ctx, "sum", []any{}, call)).Succeeded().DataEquals(float64(0))
	skilltest.AssertResult(t, rt.Run(ctx, "sum", []any{1, "x"}, call)).
		FailedWith(skerrors.CodeInvalidInput).
		ErrorContains("[1]")
}

func TestSlugify(t *testing.T) {
	rt := setup(t, nil)
	cases := map[string]string{
		"Hello, World!":          "hello-world",
		"  Agent   Skills 2026 ": "agent-skills-2026",
		"Crème brûlée":           "crème-brûlée",
	}
	for in, want := range cases {
		res := rt.Run(context.Background(), "slugify", in, skills.CallContext{})
		skilltest.AssertResult(t, res).Succeeded().DataEquals(want)
	}

	res := rt.Run(context.Background(), "slugify", "!!!", skills.CallContext{})
	skilltest.AssertResult(t, res).FailedWith(skerrors.CodeInvalidOutput)
}

func TestTagline(t *testing.T) {
	provider := &llm.MockProvider{Response: "Here you go:\n```json\n{\"tagline\": \" Skills that ship. \"}\n```"}
	rt := setup(t, provider)

	call := skills.CallContext{UserID: "u-1", Values: map[string]any{"locale": "es"}}
	res := rt.Run(context.Background(), "tagline", map[string]any{"product": "skillrt", "tone": "bold"}, call)
	skilltest.AssertResult(t, res).
		Succeeded().
		DataEquals(builtin.TaglineResult{Tagline: "Skills that ship."})

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected one model call, got %d", len(reqs))
	}
	if !reqs[0].JSON || reqs[0].Model != "test-model" {
		t.Fatalf("unexpected request %+v", reqs[0])
	}
	prompt := reqs[0].Messages[1].Content
	for _, want := range []string{"Product: skillrt", "Tone: bold", "Language: es"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt %q missing %q", prompt, want)
		}
	}
}

func TestTaglineInputValidation(t *testing.T) {
	provider := &llm.MockProvider{Response: `{"tagline": "x"}`}
	rt := setup(t, provider)

	skilltest.AssertResult(t, rt.Run(context.Background(), "tagline", map[string]any{"tone": "bold"}, skills.CallContext{})).
		FailedWith(skerrors.CodeInvalidInput).
		ErrorContains("product")
	skilltest.AssertResult(t, rt.Run(context.Background(), "tagline", map[string]any{"product": "p", "tone": "sad"}, skills.CallContext{})).
		FailedWith(skerrors.CodeInvalidInput).
		ErrorContains("unsupported tone")
	if len(provider.Requests()) != 0 {
		t.Fatalf("model must not be called on invalid input")
	}
}

func TestTaglineFailures(t *testing.T) {
	rt := setup(t, &llm.MockProvider{Response: "I'd rather not."})
	skilltest.AssertResult(t, rt.Run(context.Background(), "tagline", map[string]any{"product": "p"}, skills.CallContext{})).
		FailedWith(skerrors.CodeParseFailure)

	rt = setup(t, &llm.FailingMockProvider{Err: errors.New("rate limited")})
	skilltest.AssertResult(t, rt.Run(context.Background(), "tagline", map[string]any{"product": "p"}, skills.CallContext{})).
		FailedWith(skerrors.CodeExecutionFailure).
		ErrorEquals("generate tagline: rate limited")

	long := strings.Repeat("a", 200)
	rt = setup(t, &llm.MockProvider{Response: `{"tagline": "` + long + `"}`})
	skilltest.AssertResult(t, rt.Run(context.Background(), "tagline", map[string]any{"product": "p"}, skills.CallContext{})).
		FailedWith(skerrors.CodeInvalidOutput).
		ErrorContains("at most 120")
}

func TestEstimates(t *testing.T) {
	rt := setup(t, nil)
	est, ok := rt.Estimate("tagline")
	if !ok || est.Cost["tokens"] != 200 {
		t.Fatalf("unexpected tagline estimate %+v", est)
	}
}
