package runtime

import (
	"context"
	"database/sql"
	"testing"
	"time"
)

func auditFixtures(base time.Time) []AuditEvent {
	return []AuditEvent{
		{RunID: "run-1", SkillID: "double", UserID: "u-1", Status: StatusSucceeded, Output: map[string]any{"ok": true}, StartedAt: base, FinishedAt: base.Add(time.Millisecond)},
		{RunID: "run-2", SkillID: "inc", UserID: "u-2", Status: StatusFailed, Code: "INVALID_INPUT", Error: "Input validation failed: x", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour)},
		{RunID: "run-3", SkillID: "double", UserID: "u-1", Status: StatusSucceeded, Output: 42.0, StartedAt: base.Add(2 * time.Hour), FinishedAt: base.Add(2 * time.Hour)},
	}
}

func exerciseAuditStore(t *testing.T, store interface {
	AuditStore
	AuditPruner
}) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, ev := range auditFixtures(base) {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := store.List(ctx, AuditFilter{SkillID: "double"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].RunID != "run-1" || events[1].RunID != "run-3" {
		t.Fatalf("unexpected events: %+v", events)
	}

	events, err = store.List(ctx, AuditFilter{Status: StatusFailed})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 1 || events[0].Code != "INVALID_INPUT" {
		t.Fatalf("unexpected failed events: %+v", events)
	}

	events, err = store.List(ctx, AuditFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(events) != 1 || events[0].RunID != "run-3" {
		t.Fatalf("limit should keep the most recent event, got %+v", events)
	}

	removed, err := store.Prune(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned event, got %d", removed)
	}
	events, err = store.List(ctx, AuditFilter{})
	if err != nil {
		t.Fatalf("list after prune: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after prune, got %d", len(events))
	}
}

func TestMemoryAuditStore(t *testing.T) {
	exerciseAuditStore(t, NewMemoryAuditStore())
}

func TestSQLiteAuditStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:skill_runs_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteAuditStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	exerciseAuditStore(t, store)

	events, err := store.List(context.Background(), AuditFilter{RunID: "run-3"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Output != 42.0 {
		t.Fatalf("expected decoded output, got %+v", events)
	}
}

func TestNewSQLiteAuditStoreRejectsNil(t *testing.T) {
	if _, err := NewSQLiteAuditStore(nil); err == nil {
		t.Fatalf("expected error for nil db")
	}
}
