package runtime

import (
	"time"

	"github.com/jllopis/skillrt/pkg/errors"
)

// Result is the uniform envelope returned by every skill run.
//
// Exactly one of Data and Error is meaningful: Error is non-empty iff
// Success is false. DurationMs is always set and never negative.
type Result struct {
	Success    bool             `json:"success"`
	Data       any              `json:"data,omitempty"`
	Error      string           `json:"error,omitempty"`
	Code       errors.ErrorCode `json:"code,omitempty"`
	Logs       []string         `json:"logs"`
	DurationMs int64            `json:"durationMs"`
	Metadata   Metadata         `json:"metadata"`
}

// Metadata records the provenance of a run, stamped on every outcome.
type Metadata struct {
	SkillID   string    `json:"skillId"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	RunID     string    `json:"runId,omitempty"`
}

// Estimate is the static planning hint of a skill.
type Estimate struct {
	// Duration is zero when the skill declares no estimate.
	Duration time.Duration     `json:"duration,omitempty"`
	Cost     map[string]float64 `json:"cost,omitempty"`
}

// Step pairs a skill id with its raw input for sequences.
type Step struct {
	SkillID string `json:"skillId"`
	Input   any    `json:"input"`
}

// trail accumulates the human-readable log of one run.
type trail struct {
	lines []string
}

func (t *trail) add(line string) {
	t.lines = append(t.lines, line)
}

// snapshot returns a copy so later appends never alias a returned Result.
func (t *trail) snapshot() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}
