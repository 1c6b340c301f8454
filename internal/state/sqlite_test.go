package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLite(dbPath)
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestKVPutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "pictureMissionState"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "pictureMissionState", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Put(ctx, "pictureMissionState", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := store.Get(ctx, "pictureMissionState")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("expected last write to win, got %s", got)
	}
	if err := store.Delete(ctx, "pictureMissionState"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "pictureMissionState"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestEnsureSchemaIsRepeatable(t *testing.T) {
	store := newTestStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestMissionRunSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	ids := make([]int64, 0, 3)
	for i, capability := range []string{"tap-targets", "memory-sequence", "memory-sequence"} {
		id, err := store.StartMissionRun(ctx, MissionRun{
			SessionID:  "s1",
			RunID:      "r",
			MissionID:  1 + i/2,
			Capability: capability,
			StartTS:    start.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("start run: %v", err)
		}
		ids = append(ids, id)
	}
	if err := store.FinishMissionRun(ctx, ids[0], OutcomeCompleted, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishMissionRun(ctx, ids[1], OutcomeAbandoned, 0); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishMissionRun(ctx, ids[2], OutcomeCompleted, 100); err != nil {
		t.Fatal(err)
	}
	// A closed run keeps its first outcome.
	if err := store.FinishMissionRun(ctx, ids[2], OutcomeFailed, 0); err != nil {
		t.Fatal(err)
	}

	summary, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.MissionRuns != 3 || summary.Completions != 2 || summary.Abandons != 1 || summary.Failures != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if summary.BestScore != 100 {
		t.Fatalf("expected best score 100, got %d", summary.BestScore)
	}

	last, err := store.GetLastRun(ctx)
	if err != nil || last == nil {
		t.Fatalf("last run: %v %v", last, err)
	}
	if last.MissionID != 2 || last.Outcome != OutcomeCompleted || last.Score != 100 {
		t.Fatalf("unexpected last run: %#v", last)
	}
	if !last.StartTS.Equal(start.Add(2 * time.Minute)) {
		t.Fatalf("unexpected start ts: %v", last.StartTS)
	}

	if err := store.ClearMissionRuns(ctx); err != nil {
		t.Fatal(err)
	}
	if last, err := store.GetLastRun(ctx); err != nil || last != nil {
		t.Fatalf("expected no runs after clear, got %#v %v", last, err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	buf := []byte("abc")
	_ = m.Put(ctx, "k", buf)
	buf[0] = 'z'
	got, ok, _ := m.Get(ctx, "k")
	if !ok || string(got) != "abc" {
		t.Fatalf("expected stored copy, got %q", got)
	}
}
