// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Manifest lets operators tune registered skills without code changes.
//
//	skills:
//	  - id: tagline
//	    enabled: false
//	    estimated_duration: 4s
//	    cost:
//	      tokens: 800
type Manifest struct {
	Skills []ManifestEntry `yaml:"skills"`
}

// ManifestEntry overrides the operational settings of one skill.
// Nil or empty fields leave the registered values untouched.
type ManifestEntry struct {
	ID                string             `yaml:"id"`
	Enabled           *bool              `yaml:"enabled"`
	EstimatedDuration string             `yaml:"estimated_duration"`
	Cost              map[string]float64 `yaml:"cost"`
}

// estimate parses EstimatedDuration. set is false when the field is empty,
// so an explicit "0s" still overrides.
func (e ManifestEntry) estimate() (d time.Duration, set bool, err error) {
	if e.EstimatedDuration == "" {
		return 0, false, nil
	}
	d, err = time.ParseDuration(e.EstimatedDuration)
	if err != nil || d < 0 {
		return 0, false, fmt.Errorf("invalid estimated_duration %q", e.EstimatedDuration)
	}
	return d, true, nil
}

// apply overlays the entry onto rec.
func (e ManifestEntry) apply(rec *Record, d time.Duration, set bool) {
	if e.Enabled != nil {
		rec.Enabled = *e.Enabled
	}
	if set {
		rec.Skill.EstimatedDuration = d
	}
	if len(e.Cost) > 0 {
		if rec.Skill.Cost == nil {
			rec.Skill.Cost = make(map[string]float64, len(e.Cost))
		}
		maps.Copy(rec.Skill.Cost, e.Cost)
	}
}

// LoadManifest reads and validates a YAML manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	var result *multierror.Error
	seen := make(map[string]bool, len(m.Skills))
	for i := range m.Skills {
		entry := &m.Skills[i]
		entry.ID = strings.TrimSpace(entry.ID)
		if entry.ID == "" {
			result = multierror.Append(result, fmt.Errorf("skills[%d]: id is required", i))
			continue
		}
		if seen[entry.ID] {
			result = multierror.Append(result, fmt.Errorf("skills[%d]: duplicate id %q", i, entry.ID))
			continue
		}
		seen[entry.ID] = true
		if _, _, err := entry.estimate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("skills[%d]: %w", i, err))
			continue
		}
		for unit, v := range entry.Cost {
			if v < 0 {
				result = multierror.Append(result, fmt.Errorf("skills[%d]: cost %q must not be negative", i, unit))
			}
		}
	}
	return result.ErrorOrNil()
}

// ApplyManifest applies every entry whose id is registered on top of the
// current state. Entries naming unknown ids are skipped and reported together
// in the returned error.
func (r *Registry) ApplyManifest(m Manifest) error {
	var result *multierror.Error
	for _, entry := range m.Skills {
		d, set, err := entry.estimate()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("skill %q: %w", entry.ID, err))
			continue
		}
		if !r.update(entry.ID, func(rec *Record) { entry.apply(rec, d, set) }) {
			result = multierror.Append(result, fmt.Errorf("skill %q is not registered", entry.ID))
		}
	}
	return result.ErrorOrNil()
}

// Reconcile brings every record to the state described by m and disabled,
// starting from the hints each skill was registered with. Overrides dropped
// from m therefore revert. Ids in disabled win over the manifest.
//
// The pass runs under one write lock and replaces only the records whose
// state changes. Unknown or invalid entries are reported after the rest
// has been applied.
func (r *Registry) Reconcile(m Manifest, disabled []string) error {
	var result *multierror.Error
	type override struct {
		entry ManifestEntry
		d     time.Duration
		set   bool
	}
	overrides := make(map[string]override, len(m.Skills))
	for _, entry := range m.Skills {
		d, set, err := entry.estimate()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("skill %q: %w", entry.ID, err))
			continue
		}
		overrides[entry.ID] = override{entry: entry, d: d, set: set}
	}
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range m.Skills {
		if _, ok := overrides[entry.ID]; !ok {
			continue
		}
		if _, ok := r.records[entry.ID]; !ok {
			result = multierror.Append(result, fmt.Errorf("skill %q is not registered", entry.ID))
		}
	}
	for id, rec := range r.records {
		skill := rec.Skill
		skill.EstimatedDuration = rec.baseDuration
		skill.Cost = maps.Clone(rec.baseCost)
		next := &Record{
			Skill:        skill,
			RegisteredAt: rec.RegisteredAt,
			Enabled:      true,
			baseDuration: rec.baseDuration,
			baseCost:     rec.baseCost,
		}
		if o, ok := overrides[id]; ok {
			o.entry.apply(next, o.d, o.set)
		}
		if off[id] {
			next.Enabled = false
		}
		if next.Enabled == rec.Enabled &&
			next.Skill.EstimatedDuration == rec.Skill.EstimatedDuration &&
			maps.Equal(next.Skill.Cost, rec.Skill.Cost) {
			continue
		}
		if next.Enabled != rec.Enabled {
			r.logger.Info("registry.set_enabled",
				slog.String("skill_id", id),
				slog.Bool("enabled", next.Enabled),
			)
		}
		r.records[id] = next
	}
	return result.ErrorOrNil()
}
