package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawthorn-media/keyword-cli/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := &model.Run{
		ID:        uuid.NewString(),
		Dir:       "runs/20260823_101500",
		Status:    model.RunStatusRunning,
		StartedAt: time.Date(2026, 8, 23, 10, 15, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Equal(t, run.Dir, got.Dir)
	assert.True(t, got.StartedAt.Equal(run.StartedAt))
	assert.True(t, got.CompletedAt.IsZero())
}

func TestUpdateRun(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	run := &model.Run{
		ID:        uuid.NewString(),
		Dir:       "runs/20260823_110000",
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, st.CreateRun(ctx, run))

	run.Status = model.RunStatusComplete
	run.SeedCount = 4200
	run.EnrichCount = 4200
	run.FilterCount = 812
	run.ScoredCount = 812
	run.ExportCount = 640
	run.CompletedAt = time.Now().UTC()
	require.NoError(t, st.UpdateRun(ctx, run))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	assert.Equal(t, 4200, got.SeedCount)
	assert.Equal(t, 812, got.FilterCount)
	assert.Equal(t, 640, got.ExportCount)
	assert.False(t, got.CompletedAt.IsZero())
}

func TestUpdateRunNotFound(t *testing.T) {
	st := newTestStore(t)

	err := st.UpdateRun(context.Background(), &model.Run{ID: "missing"})
	assert.Error(t, err)
}

func TestListRunsMostRecentFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, st.CreateRun(ctx, &model.Run{
			ID:        uuid.NewString(),
			Dir:       "runs/run" + string(rune('a'+i)),
			Status:    model.RunStatusFailed,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "runs/runc", runs[0].Dir)
	assert.Equal(t, "runs/runb", runs[1].Dir)
}
