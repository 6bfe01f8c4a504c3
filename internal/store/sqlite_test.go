package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_RecordAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.RecordRun(ctx, model.Run{
		RowID:       "row-1",
		SourceTable: "src-db",
		Website:     "https://acme.example",
		Mode:        model.ModeVentures,
		State:       model.StateContacted,
		Status:      model.StatusContacted,
		MaxScore:    9,
		Recipient:   "info@acme.example",
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "row-1", got.RowID)
	assert.Equal(t, model.ModeVentures, got.Mode)
	assert.Equal(t, model.StateContacted, got.State)
	assert.Equal(t, model.StatusContacted, got.Status)
	assert.Equal(t, 9, got.MaxScore)
	assert.Equal(t, "info@acme.example", got.Recipient)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	records := []model.Run{
		{RowID: "a", Website: "https://a.example", State: model.StateContacted, CreatedAt: base},
		{RowID: "b", Website: "https://b.example", State: model.StateSkipped, CreatedAt: base.Add(time.Minute)},
		{RowID: "c", Website: "https://c.example", State: model.StateSkipped, CreatedAt: base.Add(2 * time.Minute)},
		{RowID: "d", Website: "https://a.example", State: model.StateUnprocessed, Error: "scoring: model call failed", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, r := range records {
		_, err := st.RecordRun(ctx, r)
		require.NoError(t, err)
	}

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].RowID, "newest first")

	skipped, err := st.ListRuns(ctx, RunFilter{State: model.StateSkipped})
	require.NoError(t, err)
	require.Len(t, skipped, 2)
	assert.Equal(t, "c", skipped[0].RowID)

	byWebsite, err := st.ListRuns(ctx, RunFilter{Website: "https://a.example"})
	require.NoError(t, err)
	assert.Len(t, byWebsite, 2)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].RowID)
	assert.Equal(t, "b", page[1].RowID)
}

func TestJournalInterface(t *testing.T) {
	var _ Journal = (*SQLiteStore)(nil)
	var _ Journal = (*PostgresStore)(nil)
}
