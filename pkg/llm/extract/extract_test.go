package extract

import (
	"testing"

	"github.com/jllopis/skillrt/pkg/errors"
)

func TestFind(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"prose", `Sure! Here it is: {"a": "b"} Hope that helps.`, `{"a": "b"}`, true},
		{"fence", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`, true},
		{"braces in strings", `{"a": "x}y{"}`, `{"a": "x}y{"}`, true},
		{"escaped quote", `{"a": "say \"hi\" }"}`, `{"a": "say \"hi\" }"}`, true},
		{"array", `result: [1, 2, 3]`, `[1, 2, 3]`, true},
		{"skips invalid", `{nope} then {"ok": true}`, `{"ok": true}`, true},
		{"none", `no structure here`, "", false},
		{"unbalanced", `{"a": 1`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Find(tc.in)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Find(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	var out struct {
		Tagline string `json:"tagline"`
	}
	if err := JSON("Answer:\n```\n{\"tagline\": \"Fast skills\"}\n```", &out); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out.Tagline != "Fast skills" {
		t.Fatalf("unexpected tagline %q", out.Tagline)
	}
}

func TestJSONParseFailure(t *testing.T) {
	var out map[string]any
	err := JSON("I cannot help with that.", &out)
	if !errors.IsCode(err, errors.CodeParseFailure) {
		t.Fatalf("expected parse failure, got %v", err)
	}

	var wrong struct {
		N int `json:"n"`
	}
	err = JSON(`{"n": "text"}`, &wrong)
	if !errors.IsCode(err, errors.CodeParseFailure) {
		t.Fatalf("expected parse failure for type mismatch, got %v", err)
	}
}
