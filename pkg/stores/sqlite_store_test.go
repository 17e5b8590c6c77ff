package stores

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/openfroyo/press/pkg/engine"
)

// setupTestStore creates a file-backed SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), Config{
		Path: filepath.Join(t.TempDir(), "history", "press.db"),
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func sampleRun(id string, started time.Time) *Run {
	return &Run{
		ID:            id,
		RootFolder:    "/srv/site",
		Script:        "config.star",
		Status:        RunStatusSucceeded,
		StartedAt:     started,
		FinishedAt:    started.Add(1500 * time.Millisecond),
		Duration:      1500 * time.Millisecond,
		PipelineCount: 2,
		DocumentCount: 5,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.HealthCheck(ctx); err == nil {
		t.Error("expected health check to fail before Init")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	// Migrations are idempotent.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

// TestRunOperations tests saving, reading and deleting runs
func TestRunOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)
	pipelines := []PipelineRun{
		{Ordinal: 1, Name: "Pages", ModuleCount: 2, DocumentCount: 3, Duration: time.Second, Status: PipelineStatusSucceeded},
		{Ordinal: 2, Name: "Resources", ModuleCount: 2, DocumentCount: 2, Duration: 500 * time.Millisecond, Status: PipelineStatusSucceeded},
	}

	if err := store.SaveRun(ctx, run, pipelines); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Status != RunStatusSucceeded || got.DocumentCount != 5 || got.Script != "config.star" {
		t.Errorf("unexpected run: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", got.Duration)
	}

	rows, err := store.ListPipelineRuns(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list pipeline runs: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Pages" || rows[1].Ordinal != 2 {
		t.Fatalf("unexpected pipeline rows: %+v", rows)
	}
	if rows[0].RunID != "run-1" {
		t.Errorf("pipeline row run id = %q", rows[0].RunID)
	}

	if err := store.SaveRun(ctx, run, nil); err == nil {
		t.Error("expected duplicate run id to fail")
	}

	if err := store.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("failed to delete run: %v", err)
	}
	if _, err := store.GetRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	rows, err = store.ListPipelineRuns(ctx, "run-1")
	if err != nil || len(rows) != 0 {
		t.Errorf("expected pipeline rows to cascade, got %v, %v", rows, err)
	}
	if err := store.DeleteRun(ctx, "run-1"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}

// TestSaveRun_RollsBack tests that a failing pipeline row discards the run
func TestSaveRun_RollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	pipelines := []PipelineRun{
		{Ordinal: 1, Name: "Pages", Status: PipelineStatusSucceeded},
		{Ordinal: 1, Name: "Duplicate", Status: PipelineStatusSucceeded},
	}
	if err := store.SaveRun(ctx, sampleRun("run-x", time.Now()), pipelines); err == nil {
		t.Fatal("expected duplicate ordinal to fail")
	}
	if _, err := store.GetRun(ctx, "run-x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run to be rolled back, got %v", err)
	}
}

// TestListRuns tests ordering and pagination
func TestListRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute)), nil); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.ListRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected first page: %v", runIDs(runs))
	}

	runs, err = store.ListRuns(ctx, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != "a" {
		t.Fatalf("unexpected second page: %v", runIDs(runs))
	}
}

func runIDs(runs []*Run) []string {
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	return ids
}

type failingModule struct{}

func (failingModule) Name() string { return "fail" }

func (failingModule) Execute(context.Context, []engine.Document, *engine.ExecutionContext) ([]engine.Document, error) {
	return nil, errors.New("boom")
}

// TestRecorder tests recording engine runs through the observer hooks
func TestRecorder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	root := t.TempDir()

	rec := NewRecorder(store, zerolog.Nop(), root, "")
	e := engine.New(engine.WithRootFolder(root), engine.WithObserver(rec))
	if err := e.Configure(ctx, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Pipelines().Add("Seed"); err != nil {
		t.Fatal(err)
	}

	rec.SetRunID("first")
	if _, err := e.Execute(ctx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if err := rec.Err(); err != nil {
		t.Fatalf("recording failed: %v", err)
	}

	run, err := store.GetRun(ctx, "first")
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunStatusSucceeded || run.PipelineCount != 1 || run.DocumentCount != 1 {
		t.Errorf("unexpected run: %+v", run)
	}

	if _, err := e.Pipelines().Add("Broken", failingModule{}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Execute(ctx); err == nil {
		t.Fatal("expected Execute to fail")
	}

	last := rec.LastRun()
	if last == nil || last.ID == "first" {
		t.Fatalf("expected a new run with a generated id, got %+v", last)
	}
	if last.Status != RunStatusFailed || last.ErrorClass != string(engine.ErrorClassPipeline) {
		t.Errorf("unexpected failed run: %+v", last)
	}

	rows, err := store.ListPipelineRuns(ctx, last.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Status != PipelineStatusFailed || rows[1].Name != "Broken" {
		t.Fatalf("unexpected pipeline rows: %+v", rows)
	}
	if rows[0].DocumentCount != 1 {
		t.Errorf("expected seed pipeline to report 1 document, got %d", rows[0].DocumentCount)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 recorded runs, got %d", len(runs))
	}
}
