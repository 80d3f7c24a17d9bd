package runtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jllopis/skillrt/pkg/errors"
)

// Audit statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// AuditEvent is the persisted record of one finished skill run.
type AuditEvent struct {
	RunID      string           `json:"runId"`
	SkillID    string           `json:"skillId"`
	UserID     string           `json:"userId,omitempty"`
	Status     string           `json:"status"`
	Code       errors.ErrorCode `json:"code,omitempty"`
	Error      string           `json:"error,omitempty"`
	DurationMs int64            `json:"durationMs"`
	Output     any              `json:"output,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}

// AuditStore persists run audit events.
type AuditStore interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// AuditPruner removes audit events that finished before a cutoff.
type AuditPruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// AuditFilter limits audit event queries.
// Results are ordered oldest first; Limit keeps the most recent matches.
type AuditFilter struct {
	SkillID string
	UserID  string
	RunID   string
	Status  string
	Limit   int
}

func (f AuditFilter) matches(ev AuditEvent) bool {
	if f.SkillID != "" && ev.SkillID != f.SkillID {
		return false
	}
	if f.UserID != "" && ev.UserID != f.UserID {
		return false
	}
	if f.RunID != "" && ev.RunID != f.RunID {
		return false
	}
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	return true
}

// MemoryAuditStore keeps audit events in memory.
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []AuditEvent
}

// NewMemoryAuditStore returns an in-memory audit store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

// Record appends an audit event.
func (s *MemoryAuditStore) Record(_ context.Context, event AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events.
func (s *MemoryAuditStore) List(_ context.Context, filter AuditFilter) ([]AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditEvent, 0, len(s.events))
	for _, ev := range s.events {
		if filter.matches(ev) {
			out = append(out, ev)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

// Prune drops events that finished before the cutoff.
func (s *MemoryAuditStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	removed := 0
	for _, ev := range s.events {
		if ev.FinishedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return removed, nil
}

func newAuditEvent(res *Result, started time.Time) AuditEvent {
	status := StatusSucceeded
	if !res.Success {
		status = StatusFailed
	}
	return AuditEvent{
		RunID:      res.Metadata.RunID,
		SkillID:    res.Metadata.SkillID,
		UserID:     res.Metadata.UserID,
		Status:     status,
		Code:       res.Code,
		Error:      res.Error,
		DurationMs: res.DurationMs,
		Output:     res.Data,
		StartedAt:  normalizeAuditTime(started),
		FinishedAt: res.Metadata.Timestamp,
	}
}

// encodeAuditOutput marshals the output payload into JSON.
func encodeAuditOutput(output any) ([]byte, error) {
	if output == nil {
		return []byte("null"), nil
	}
	return json.Marshal(output)
}

// decodeAuditOutput parses JSON output payload.
func decodeAuditOutput(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeAuditTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
