package jobs

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "jobs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, Job{
		Filename: "scan.png",
		FileHash: "abc",
		FileSize: 1024,
		Engine:   "text",
		Language: "en",
		Config:   map[string]any{"lang": "en", "dpi": 300},
		CacheKey: "0123456789abcdef",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Status != StatusProcessing {
		t.Fatalf("expected processing status, got %s", job.Status)
	}
	if job.StartedAt == nil || job.CreatedAt.IsZero() {
		t.Fatalf("expected timestamps, got %+v", job)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Filename != "scan.png" || fetched.FileSize != 1024 || fetched.CacheKey != "0123456789abcdef" {
		t.Fatalf("unexpected job %+v", fetched)
	}
	if fetched.Config["lang"] != "en" {
		t.Fatalf("expected config to round-trip, got %v", fetched.Config)
	}
}

func TestCreateRequiresFilename(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.Create(context.Background(), Job{}); err == nil {
		t.Fatal("expected error for empty filename")
	}
}

func TestCompleteAndFail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ok, _ := store.Create(ctx, Job{Filename: "a.txt"})
	if err := store.Complete(ctx, ok.ID, Completion{
		TotalPages: 2, TotalTextBlocks: 5, TotalCharacters: 40,
		AverageConfidence: 0.9, Cached: true, Elapsed: 1500 * time.Millisecond,
	}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, _ := store.Get(ctx, ok.ID)
	if got.Status != StatusCompleted || !got.Cached || got.TotalPages != 2 || got.CompletedAt == nil {
		t.Fatalf("unexpected completed job %+v", got)
	}
	if got.ProcessingSeconds != 1.5 {
		t.Fatalf("expected 1.5s processing time, got %v", got.ProcessingSeconds)
	}

	bad, _ := store.Create(ctx, Job{Filename: "b.txt"})
	if err := store.Fail(ctx, bad.ID, "engine crashed", time.Second); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ = store.Get(ctx, bad.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "engine crashed" {
		t.Fatalf("unexpected failed job %+v", got)
	}
}

func TestUnknownJob(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if err := store.Complete(ctx, "missing", Completion{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Complete: expected ErrNotFound, got %v", err)
	}
	if err := store.Fail(ctx, "missing", "x", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Fail: expected ErrNotFound, got %v", err)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, name := range []string{"first.txt", "second.txt", "third.txt"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		if _, err := store.Create(ctx, Job{Filename: name}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Filename != "third.txt" || recent[1].Filename != "second.txt" {
		t.Fatalf("unexpected recent jobs %+v", recent)
	}
}

func TestStatistics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return now.Add(-30 * 24 * time.Hour) }
	old, _ := store.Create(ctx, Job{Filename: "old.txt"})
	_ = store.Complete(ctx, old.ID, Completion{TotalPages: 100, Elapsed: time.Second})

	store.now = func() time.Time { return now }
	a, _ := store.Create(ctx, Job{Filename: "a.txt"})
	_ = store.Complete(ctx, a.ID, Completion{TotalPages: 2, Elapsed: 2 * time.Second})
	b, _ := store.Create(ctx, Job{Filename: "b.txt"})
	_ = store.Complete(ctx, b.ID, Completion{TotalPages: 3, Cached: true, Elapsed: 4 * time.Second})
	c, _ := store.Create(ctx, Job{Filename: "c.txt"})
	_ = store.Fail(ctx, c.ID, "boom", 0)

	stats, err := store.Statistics(ctx, 7)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalJobs != 3 || stats.SuccessfulJobs != 2 || stats.FailedJobs != 1 || stats.CachedJobs != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.TotalPages != 5 {
		t.Fatalf("expected 5 pages, got %d", stats.TotalPages)
	}
	if stats.AverageProcessingTime != 3 {
		t.Fatalf("expected 3s average ignoring zero durations, got %v", stats.AverageProcessingTime)
	}
	want := 2.0 / 3.0 * 100
	if stats.SuccessRate < want-0.001 || stats.SuccessRate > want+0.001 {
		t.Fatalf("unexpected success rate %v", stats.SuccessRate)
	}

	empty, err := openTestStore(t).Statistics(ctx, 7)
	if err != nil {
		t.Fatalf("Statistics on empty store: %v", err)
	}
	if empty.TotalJobs != 0 || empty.SuccessRate != 0 || empty.PeriodDays != 7 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = store.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRetryOnBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := retryOnBusy(context.Background(), func() error {
		calls++
		return sql.ErrConnDone
	})
	if !errors.Is(err, sql.ErrConnDone) || calls != 1 {
		t.Fatalf("expected single attempt, got %d calls err=%v", calls, err)
	}

	calls = 0
	err = retryOnBusy(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success after retries, got %d calls err=%v", calls, err)
	}
}
