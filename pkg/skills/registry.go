// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/jllopis/skillrt/pkg/errors"
)

// Record is the registry's bookkeeping for one skill.
type Record struct {
	Skill        Skill
	RegisteredAt time.Time
	Enabled      bool

	// hints as registered, before any manifest override.
	baseDuration time.Duration
	baseCost     map[string]float64
}

// Filter narrows List and Records results.
type Filter struct {
	// Category keeps only skills with exactly this category when set.
	Category Category
	// IncludeDisabled surfaces disabled skills, for admin and debug views.
	IncludeDisabled bool
}

// Stats is a point-in-time snapshot of the registry.
type Stats struct {
	Total      int              `json:"total"`
	Enabled    int              `json:"enabled"`
	Disabled   int              `json:"disabled"`
	ByCategory map[Category]int `json:"byCategory"`
}

// Registry maps skill ids to registration records.
// Mutations are serialized; lookups run concurrently under a read lock.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides the time source used for RegisteredAt.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		records: make(map[string]*Record),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds skill as an enabled record.
//
// Registering an id that already exists leaves the first registration in
// place and logs a warning; it is not an error. An error is returned only
// for descriptors that fail Skill.Validate.
func (r *Registry) Register(skill Skill) error {
	if err := skill.Validate(); err != nil {
		return errors.New(errors.CodePrecondition, "register skill", err).
			WithContext("skill_id", skill.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[skill.ID]; exists {
		r.logger.Warn("registry.register.duplicate",
			slog.String("skill_id", skill.ID),
			slog.String("reason", "already registered, keeping first registration"),
		)
		return nil
	}
	r.records[skill.ID] = &Record{
		Skill:        skill.clone(),
		RegisteredAt: r.now(),
		Enabled:      true,
		baseDuration: skill.EstimatedDuration,
		baseCost:     maps.Clone(skill.Cost),
	}
	r.logger.Debug("registry.register",
		slog.String("skill_id", skill.ID),
		slog.String("category", string(skill.Category)),
	)
	return nil
}

// MustRegister registers every skill and panics on an invalid descriptor.
// Intended for process start-up wiring.
func (r *Registry) MustRegister(skills ...Skill) {
	for _, s := range skills {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Get returns the skill when it is registered and enabled.
// Absent and disabled ids are indistinguishable.
func (r *Registry) Get(id string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok || !rec.Enabled {
		return Skill{}, false
	}
	return rec.Skill.clone(), true
}

// List returns skills matching filter, ordered by id.
func (r *Registry) List(filter Filter) []Skill {
	records := r.Records(filter)
	out := make([]Skill, len(records))
	for i, rec := range records {
		out[i] = rec.Skill
	}
	return out
}

// Records returns copies of the records matching filter, ordered by id.
func (r *Registry) Records(filter Filter) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if !filter.IncludeDisabled && !rec.Enabled {
			continue
		}
		if filter.Category != "" && rec.Skill.Category != filter.Category {
			continue
		}
		cp := *rec
		cp.Skill = rec.Skill.clone()
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Skill.ID < out[j].Skill.ID
	})
	return out
}

// SetEnabled toggles a skill. Unknown ids fail with errors.CodeNotFound.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("skill %q is not registered", id), nil).
			WithContext("skill_id", id)
	}
	if rec.Enabled != enabled {
		rec.Enabled = enabled
		r.logger.Info("registry.set_enabled",
			slog.String("skill_id", id),
			slog.Bool("enabled", enabled),
		)
	}
	return nil
}

// Stats computes totals on every call.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{ByCategory: make(map[Category]int)}
	for _, rec := range r.records {
		stats.Total++
		if rec.Enabled {
			stats.Enabled++
		} else {
			stats.Disabled++
		}
		stats.ByCategory[rec.Skill.Category]++
	}
	return stats
}

// Clear removes every record. Meant for test isolation.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*Record)
}

// update replaces a registered skill's descriptor under the write lock.
func (r *Registry) update(id string, fn func(rec *Record)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return false
	}
	skill := rec.Skill
	skill.Cost = maps.Clone(skill.Cost)
	next := &Record{
		Skill:        skill,
		RegisteredAt: rec.RegisteredAt,
		Enabled:      rec.Enabled,
		baseDuration: rec.baseDuration,
		baseCost:     rec.baseCost,
	}
	fn(next)
	r.records[id] = next
	return true
}
