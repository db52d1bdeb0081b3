package store

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a named shared in-memory database unique to the test.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)",
		url.PathEscape(t.Name()),
	)
	db, err := openDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func makeRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		PDFPath:    "docs/resume.pdf",
		JokeMode:   "default",
		Providers:  []string{"vertex_ai", "anthropic"},
		Status:     RunCompleted,
		IssueCount: 3,
		HasIssues:  true,
		JokeCount:  2,
		ReportPath: "reports/criticat_feedback.json",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
}

func TestRunRepo_RecordAndGet(t *testing.T) {
	repo := NewRunRepo(setupTestDB(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, makeRun("run-1", started)))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"vertex_ai", "anthropic"}, got.Providers)
	assert.True(t, got.HasIssues)
	assert.False(t, got.Notified)
	assert.Equal(t, RunCompleted, got.Status)
	assert.True(t, got.StartedAt.Equal(started))
	assert.Equal(t, 1500*time.Millisecond, got.Duration())
}

func TestRunRepo_GetMissing(t *testing.T) {
	repo := NewRunRepo(setupTestDB(t))
	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunRepo_RecordUpdates(t *testing.T) {
	repo := NewRunRepo(setupTestDB(t))
	ctx := context.Background()
	run := makeRun("run-1", time.Now())
	require.NoError(t, repo.Record(ctx, run))

	run.Status = RunFailed
	run.Error = "extraction failed"
	run.Notified = true
	require.NoError(t, repo.Record(ctx, run))

	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunFailed, runs[0].Status)
	assert.Equal(t, "extraction failed", runs[0].Error)
	assert.True(t, runs[0].Notified)
}

func TestRunRepo_ListNewestFirst(t *testing.T) {
	repo := NewRunRepo(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Record(ctx, makeRun("old", base)))
	require.NoError(t, repo.Record(ctx, makeRun("newer", base.Add(500*time.Millisecond))))
	require.NoError(t, repo.Record(ctx, makeRun("newest", base.Add(time.Minute))))

	runs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newest", runs[0].ID)
	assert.Equal(t, "newer", runs[1].ID)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunRepo_EmptyProviders(t *testing.T) {
	repo := NewRunRepo(setupTestDB(t))
	ctx := context.Background()
	run := makeRun("r", time.Now())
	run.Providers = nil
	require.NoError(t, repo.Record(ctx, run))

	got, err := repo.Get(ctx, "r")
	require.NoError(t, err)
	assert.Empty(t, got.Providers)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	require.NoError(t, db.Close())

	// Reopening applies no new migrations.
	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/criticat/history.db", p)
}
