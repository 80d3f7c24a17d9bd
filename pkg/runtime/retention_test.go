package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type testPruner struct {
	calls    int64
	deadline int64
	ch       chan time.Time
}

func (p *testPruner) Prune(ctx context.Context, before time.Time) (int, error) {
	atomic.AddInt64(&p.calls, 1)
	if deadline, ok := ctx.Deadline(); ok {
		atomic.StoreInt64(&p.deadline, deadline.UnixNano())
	}
	select {
	case p.ch <- before:
	default:
	}
	return 1, nil
}

func TestRetentionSweeperTimeout(t *testing.T) {
	pruner := &testPruner{ch: make(chan time.Time, 1)}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sweeper := NewRetentionSweeper(pruner, 24*time.Hour, 10*time.Millisecond,
		WithSweepTimeout(50*time.Millisecond),
		WithSweepClock(func() time.Time { return now }),
	)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	var cutoff time.Time
	select {
	case cutoff = <-pruner.ch:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("expected sweeper call")
	}

	if !cutoff.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected cutoff %s", cutoff)
	}
	if atomic.LoadInt64(&pruner.deadline) == 0 {
		t.Fatalf("expected deadline to be set on sweep context")
	}
}

func TestRetentionSweeperDisabled(t *testing.T) {
	pruner := &testPruner{ch: make(chan time.Time, 1)}
	sweeper := NewRetentionSweeper(pruner, 0, 10*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	time.Sleep(40 * time.Millisecond)
	if atomic.LoadInt64(&pruner.calls) != 0 {
		t.Fatalf("disabled sweeper should not prune")
	}
}

func TestRetentionSweepPrunesMemoryStore(t *testing.T) {
	store := NewMemoryAuditStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	_ = store.Record(ctx, AuditEvent{RunID: "old", FinishedAt: now.Add(-48 * time.Hour)})
	_ = store.Record(ctx, AuditEvent{RunID: "new", FinishedAt: now.Add(-time.Hour)})

	sweeper := NewRetentionSweeper(store, 24*time.Hour, time.Hour, WithSweepClock(func() time.Time { return now }))
	if removed := sweeper.Sweep(ctx); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	events, _ := store.List(ctx, AuditFilter{})
	if len(events) != 1 || events[0].RunID != "new" {
		t.Fatalf("unexpected remaining events: %+v", events)
	}
}
