package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "bictrace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewStore(conn)
}

func TestStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	require.NoError(t, store.CreateRun(ctx, "20240101-abc123", "deadbeef", "hybrid"))

	rec, err := store.GetRun(ctx, "20240101-abc123")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "running", rec.Status)
	assert.Equal(t, "deadbeef", rec.FixCommit)

	require.NoError(t, store.FinishRun(ctx, "20240101-abc123", "done"))
	rec, err = store.GetRun(ctx, "20240101-abc123")
	require.NoError(t, err)
	assert.Equal(t, "done", rec.Status)
	assert.NotEmpty(t, rec.EndedAt)
}

func TestStoreTraces(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)
	require.NoError(t, store.CreateRun(ctx, "run-1", "deadbeef", "pure"))

	bic := "cafebabe"
	require.NoError(t, store.InsertTrace(ctx, TraceRecord{
		RunID: "run-1", FilePath: "src/a.c", LineNum: 42,
		FixCommit: "deadbeef", BICCommit: &bic, Verified: true, Iterations: 1,
		ChainJSON: "[]",
	}))
	require.NoError(t, store.InsertTrace(ctx, TraceRecord{
		RunID: "run-1", FilePath: "src/a.c", LineNum: 7,
		FixCommit: "deadbeef", Verified: false, Iterations: 3,
		ChainJSON: "[]",
	}))

	traces, err := store.ListTraces(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.Equal(t, 7, traces[0].LineNum)
	assert.Nil(t, traces[0].BICCommit)
	require.NotNil(t, traces[1].BICCommit)
	assert.Equal(t, "cafebabe", *traces[1].BICCommit)
	assert.True(t, traces[1].Verified)
}

func TestLatestRunID(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t)

	latest, err := store.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	require.NoError(t, store.CreateRun(ctx, "run-a", "x", "hybrid"))
	require.NoError(t, store.CreateRun(ctx, "run-b", "y", "hybrid"))

	latest, err = store.LatestRunID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest)
}
