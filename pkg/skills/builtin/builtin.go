// Package builtin provides the stock skills shipped with skillrt.
package builtin

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/jllopis/skillrt/pkg/contract"
	"github.com/jllopis/skillrt/pkg/llm"
	"github.com/jllopis/skillrt/pkg/skills"
)

// All returns every builtin skill. provider backs the generation skills.
func All(provider llm.Provider, model string) []skills.Skill {
	return []skills.Skill{
		Inc(),
		Double(),
		Sum(),
		Slugify(),
		Tagline(provider, model),
	}
}

// Register adds every builtin skill to reg.
func Register(reg *skills.Registry, provider llm.Provider, model string) error {
	for _, s := range All(provider, model) {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Inc adds one to a number.
func Inc() skills.Skill {
	return skills.Typed(skills.Skill{
		ID:                "inc",
		Name:              "Increment",
		Description:       "Adds one to a number.",
		Category:          skills.CategoryAnalysis,
		EstimatedDuration: time.Millisecond,
	}, contract.Number(), contract.Number(),
		func(_ context.Context, x float64, _ skills.CallContext) (float64, error) {
			return x + 1, nil
		})
}

// Double multiplies a number by two.
func Double() skills.Skill {
	return skills.Typed(skills.Skill{
		ID:                "double",
		Name:              "Double",
		Description:       "Multiplies a number by two.",
		Category:          skills.CategoryAnalysis,
		EstimatedDuration: time.Millisecond,
	}, contract.Number(), contract.Number(),
		func(_ context.Context, x float64, _ skills.CallContext) (float64, error) {
			return x * 2, nil
		})
}

// Sum adds a list of numbers.
func Sum() skills.Skill {
	return skills.Typed(skills.Skill{
		ID:                "sum",
		Name:              "Sum",
		Description:       "Adds a list of numbers.",
		Category:          skills.CategoryAnalysis,
		EstimatedDuration: time.Millisecond,
	}, contract.SliceOf(contract.Number()), contract.Number(),
		func(_ context.Context, xs []float64, _ skills.CallContext) (float64, error) {
			var total float64
			for _, x := range xs {
				total += x
			}
			return total, nil
		})
}

// Slugify turns free text into a lowercase, dash separated identifier.
func Slugify() skills.Skill {
	return skills.Typed(skills.Skill{
		ID:                "slugify",
		Name:              "Slugify",
		Description:       "Turns a title into a URL-safe slug.",
		Category:          skills.CategoryCustomisation,
		EstimatedDuration: time.Millisecond,
	}, contract.NonEmptyString(), contract.NonEmptyString(),
		func(_ context.Context, title string, _ skills.CallContext) (string, error) {
			return slug(title), nil
		})
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
