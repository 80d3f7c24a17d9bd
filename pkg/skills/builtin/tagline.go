package builtin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jllopis/skillrt/pkg/contract"
	"github.com/jllopis/skillrt/pkg/llm"
	"github.com/jllopis/skillrt/pkg/llm/extract"
	"github.com/jllopis/skillrt/pkg/skills"
)

const maxTaglineLength = 120

// TaglineRequest is the input of the tagline skill.
type TaglineRequest struct {
	Product  string `json:"product" jsonschema:"description=Product or feature to promote"`
	Audience string `json:"audience,omitempty"`
	Tone     string `json:"tone,omitempty" jsonschema:"enum=playful,enum=formal,enum=bold"`
}

// Validate implements contract.Validator.
func (r TaglineRequest) Validate() error {
	var v contract.Violations
	if strings.TrimSpace(r.Product) == "" {
		v.Addf("product", "must not be empty")
	}
	switch r.Tone {
	case "", "playful", "formal", "bold":
	default:
		v.Addf("tone", "unsupported tone %q", r.Tone)
	}
	return v.Err()
}

// TaglineResult is the output of the tagline skill.
type TaglineResult struct {
	Tagline string `json:"tagline"`
}

// Validate implements contract.Validator.
func (r TaglineResult) Validate() error {
	var v contract.Violations
	switch n := len([]rune(strings.TrimSpace(r.Tagline))); {
	case n == 0:
		v.Addf("tagline", "must not be empty")
	case n > maxTaglineLength:
		v.Addf("tagline", "must be at most %d characters, got %d", maxTaglineLength, n)
	}
	return v.Err()
}

// Tagline asks a model for a one-line marketing tagline.
// The model is prompted for JSON; the answer is extracted from free text.
func Tagline(provider llm.Provider, model string) skills.Skill {
	return skills.Typed(skills.Skill{
		ID:                "tagline",
		Name:              "Tagline",
		Description:       "Writes a one-line tagline for a product.",
		Category:          skills.CategoryGeneration,
		EstimatedDuration: 2 * time.Second,
		Cost:              map[string]float64{"tokens": 200},
	}, contract.Struct[TaglineRequest](), contract.Struct[TaglineResult](),
		func(ctx context.Context, req TaglineRequest, call skills.CallContext) (TaglineResult, error) {
			if provider == nil {
				return TaglineResult{}, fmt.Errorf("no text generation provider configured")
			}
			resp, err := provider.Chat(ctx, llm.ChatRequest{
				Model:       model,
				Temperature: 0.7,
				JSON:        true,
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: `You write short product taglines. Reply with JSON only: {"tagline": "..."}.`},
					{Role: llm.RoleUser, Content: taglinePrompt(req, call)},
				},
			})
			if err != nil {
				return TaglineResult{}, fmt.Errorf("generate tagline: %w", err)
			}
			var out TaglineResult
			if err := extract.JSON(resp.Content, &out); err != nil {
				return TaglineResult{}, err
			}
			out.Tagline = strings.TrimSpace(out.Tagline)
			return out, nil
		})
}

func taglinePrompt(req TaglineRequest, call skills.CallContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", req.Product)
	if req.Audience != "" {
		fmt.Fprintf(&b, "Audience: %s\n", req.Audience)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	if locale := call.StringValue("locale"); locale != "" {
		fmt.Fprintf(&b, "Language: %s\n", locale)
	}
	fmt.Fprintf(&b, "Keep it under %d characters.", maxTaglineLength)
	return b.String()
}
