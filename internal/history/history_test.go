package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:         "run-1",
		StartedAt:  time.UnixMilli(1_700_000_000_123),
		Duration:   1500 * time.Millisecond,
		Status:     StatusSuccess,
		Inputs:     5,
		Loaded:     5,
		Survivors:  4,
		Duplicates: 1,
		Cols:       2,
		Rows:       2,
		Width:      100,
		Height:     80,
		OutputPath: "/tmp/collage_1_abcdef01.png",
	}
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, run.StartedAt)
	}
	got.StartedAt = run.StartedAt
	if *got != run {
		t.Errorf("Get() = %+v, want %+v", *got, run)
	}
}

func TestGetNotFound(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	run := Run{ID: "dup", StartedAt: time.Now(), Status: StatusFailed, Error: "no image could be processed"}

	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}
	if err := store.Record(ctx, run); err == nil {
		t.Error("second Record() with the same ID should fail")
	}
}

func TestRecentOrderingAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for i := 0; i < 5; i++ {
		run := Run{ID: fmt.Sprintf("run-%d", i), StartedAt: base.Add(time.Duration(i) * time.Minute), Status: StatusSuccess}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	runs, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(Recent()) = %d, want 3", len(runs))
	}
	for i, want := range []string{"run-4", "run-3", "run-2"} {
		if runs[i].ID != want {
			t.Errorf("Recent()[%d] = %s, want %s", i, runs[i].ID, want)
		}
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) error = %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Recent(0) returned %d runs, want all 5", len(all))
	}
}

func TestCountByStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	statuses := []Status{StatusSuccess, StatusSuccess, StatusFailed, StatusStopped, StatusSuccess}
	for i, st := range statuses {
		if err := store.Record(ctx, Run{ID: fmt.Sprint(i), StartedAt: time.Now(), Status: st}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	want := map[string]int{"success": 3, "failed": 1, "stopped": 1}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}

func TestOpenPersistsAcrossConnections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Record(ctx, Run{ID: "keep", StartedAt: time.Now(), Status: StatusStopped}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get(ctx, "keep"); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "nope", "history.db"))
	if err == nil {
		t.Error("Open() should fail when the parent directory does not exist")
	}
}

func TestPrune(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	for i := 0; i < 5; i++ {
		run := Run{ID: fmt.Sprintf("run-%d", i), StartedAt: base.Add(time.Duration(i) * time.Hour), Status: StatusSuccess}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	cutoff := base.Add(2 * time.Hour)
	n, err := store.CountBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("CountBefore() error = %v", err)
	}
	if n != 2 {
		t.Errorf("CountBefore() = %d, want 2", n)
	}

	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 3 || runs[len(runs)-1].ID != "run-2" {
		t.Errorf("remaining runs = %+v, want run-4..run-2", runs)
	}

	if removed, err := store.Prune(ctx, cutoff); err != nil || removed != 0 {
		t.Errorf("second Prune() = %d, %v, want 0, nil", removed, err)
	}
}
