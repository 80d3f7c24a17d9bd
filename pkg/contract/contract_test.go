package contract

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNumber(t *testing.T) {
	c := Number()
	tests := []struct {
		name    string
		in      any
		want    float64
		wantErr string
	}{
		{name: "int", in: 21, want: 21},
		{name: "int64", in: int64(-4), want: -4},
		{name: "float", in: 2.5, want: 2.5},
		{name: "json number", in: json.Number("7.25"), want: 7.25},
		{name: "string", in: "oops", wantErr: "expected a number, got string"},
		{name: "nil", in: nil, wantErr: "expected a number, got null"},
		{name: "nan", in: math.NaN(), wantErr: "finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ParseAs(tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNumberParseReturnsFloat(t *testing.T) {
	got, err := Number().Parse(21)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := got.(float64); !ok {
		t.Fatalf("expected float64, got %T", got)
	}
}

func TestInteger(t *testing.T) {
	c := Integer()
	if got, err := c.ParseAs(3.0); err != nil || got != 3 {
		t.Fatalf("expected 3, got %v (%v)", got, err)
	}
	if got, err := c.ParseAs(json.Number("12")); err != nil || got != 12 {
		t.Fatalf("expected 12, got %v (%v)", got, err)
	}
	if _, err := c.ParseAs(3.5); err == nil {
		t.Fatalf("expected error for fractional value")
	}
	if _, err := c.ParseAs("3"); err == nil {
		t.Fatalf("expected error for string")
	}
}

func TestIntegerBounds(t *testing.T) {
	c := Integer()
	accepted := []struct {
		in   any
		want int64
	}{
		{in: -float64(1 << 63), want: math.MinInt64},
		{in: uint64(math.MaxInt64), want: math.MaxInt64},
		{in: uint(7), want: 7},
		{in: json.Number("-9223372036854775808"), want: math.MinInt64},
	}
	for _, tc := range accepted {
		if got, err := c.ParseAs(tc.in); err != nil || got != tc.want {
			t.Fatalf("ParseAs(%v): expected %d, got %d (%v)", tc.in, tc.want, got, err)
		}
	}

	rejected := []any{
		float64(1 << 63),
		math.Inf(1),
		math.NaN(),
		uint64(math.MaxUint64),
		uint64(1 << 63),
		json.Number("9223372036854775808"),
	}
	for _, in := range rejected {
		if got, err := c.ParseAs(in); err == nil {
			t.Fatalf("ParseAs(%v): expected overflow error, got %d", in, got)
		}
	}
}

func TestStrings(t *testing.T) {
	if got, err := String().ParseAs("  hi "); err != nil || got != "  hi " {
		t.Fatalf("string should pass through unchanged, got %q (%v)", got, err)
	}
	if got, err := NonEmptyString().ParseAs("  hi "); err != nil || got != "hi" {
		t.Fatalf("expected trimmed value, got %q (%v)", got, err)
	}
	if _, err := NonEmptyString().ParseAs("   "); err == nil {
		t.Fatalf("expected error for blank string")
	}
	if _, err := String().ParseAs(12); err == nil {
		t.Fatalf("expected error for non-string")
	}
}

func TestBoolAndAny(t *testing.T) {
	if got, err := Bool().ParseAs(true); err != nil || !got {
		t.Fatalf("expected true, got %v (%v)", got, err)
	}
	if _, err := Bool().ParseAs("true"); err == nil {
		t.Fatalf("expected error for string bool")
	}
	if got, err := Any().Parse(nil); err != nil || got != nil {
		t.Fatalf("any should accept nil, got %v (%v)", got, err)
	}
}

func TestSliceOf(t *testing.T) {
	c := SliceOf(Number())
	got, err := c.ParseAs([]any{1, 2.5, json.Number("3")})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected result: %v", got)
	}

	_, err = c.ParseAs([]any{1, "x", 2, true})
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "[1]") || !strings.Contains(msg, "[3]") {
		t.Fatalf("expected both bad indexes reported, got %q", msg)
	}
	if strings.Contains(msg, "\n") {
		t.Fatalf("expected single-line error, got %q", msg)
	}
	if c.Schema().Type != "array" || c.Schema().Items.Type != "number" {
		t.Fatalf("unexpected schema: %+v", c.Schema())
	}
}

type greeting struct {
	Name  string `json:"name"`
	Tone  string `json:"tone,omitempty"`
	Count int    `json:"count,omitempty"`
}

func (g greeting) Validate() error {
	if g.Tone == "angry" {
		return errors.New("tone: angry is not allowed")
	}
	return nil
}

func TestStruct(t *testing.T) {
	c := Struct[greeting]()

	got, err := c.ParseAs(map[string]any{"name": "ada", "count": 2})
	if err != nil {
		t.Fatalf("parse map: %v", err)
	}
	if got.Name != "ada" || got.Count != 2 {
		t.Fatalf("unexpected value: %+v", got)
	}

	got, err = c.ParseAs(json.RawMessage(`{"name":"grace","count":3}`))
	if err != nil {
		t.Fatalf("parse raw json: %v", err)
	}
	if got.Count != 3 {
		t.Fatalf("expected count 3, got %d", got.Count)
	}

	got, err = c.ParseAs(map[string]any{"name": "ada", "count": 4.0})
	if err != nil || got.Count != 4 {
		t.Fatalf("expected integral float to decode as 4, got %+v (%v)", got, err)
	}

	if got, err := c.ParseAs(&greeting{Name: "linus"}); err != nil || got.Name != "linus" {
		t.Fatalf("expected pointer input to be accepted, got %+v (%v)", got, err)
	}

	tests := []struct {
		name    string
		in      any
		wantErr string
	}{
		{name: "missing required", in: map[string]any{}, wantErr: "name: required field missing"},
		{name: "unknown key", in: map[string]any{"name": "ada", "extra": 1}, wantErr: "extra"},
		{name: "wrong type", in: map[string]any{"name": 5}, wantErr: "name"},
		{name: "not an object", in: "ada", wantErr: "expected an object"},
		{name: "validator", in: greeting{Name: "ada", Tone: "angry"}, wantErr: "angry"},
		{name: "bad json", in: []byte(`[1,2]`), wantErr: "expected a JSON object"},
		{name: "fractional count", in: map[string]any{"name": "ada", "count": 2.7}, wantErr: "count"},
		{name: "fractional raw count", in: json.RawMessage(`{"name":"ada","count":2.5}`), wantErr: "count"},
		{name: "exponent count", in: json.RawMessage(`{"name":"ada","count":1e300}`), wantErr: "count"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ParseAs(tt.in)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestStructSchema(t *testing.T) {
	schema := Struct[greeting]().Schema()
	if schema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}
	if _, ok := schema.Properties.Get("name"); !ok {
		t.Fatalf("expected name property")
	}
	if len(schema.Required) != 1 || schema.Required[0] != "name" {
		t.Fatalf("expected only name to be required, got %v", schema.Required)
	}
}

func TestDescribe(t *testing.T) {
	if Describe(Number()) != "number" {
		t.Fatalf("unexpected description for number")
	}
	if Describe(Any()) != "any" {
		t.Fatalf("unexpected description for any")
	}
	if Describe(nil) != "nil" {
		t.Fatalf("unexpected description for nil")
	}
}

func TestViolations(t *testing.T) {
	var v Violations
	if v.Err() != nil || v.Len() != 0 {
		t.Fatalf("empty violations should be nil")
	}
	v.Add("a", nil)
	v.Addf("a", "bad %d", 1)
	v.Add("", errors.New("whole value"))
	if v.Len() != 2 {
		t.Fatalf("expected 2 violations, got %d", v.Len())
	}
	if got := v.Err().Error(); got != "a: bad 1; whole value" {
		t.Fatalf("unexpected message %q", got)
	}
}
