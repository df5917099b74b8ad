package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/timeutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tracklets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *Run {
	return &Run{
		Source:       "video_keypoints.zip",
		Params:       tracklet.DefaultParams(),
		Frames:       120,
		Poses:        230,
		Joints:       25,
		Classes:      4,
		Passes:       4,
		Unclassified: 12,
		Distances:    tracklet.DistanceSummary{Count: 900, P50: 312.5, P90: 640},
		Version:      "test",
	}
}

func sampleTracklets() []tracklet.Tracklet {
	return []tracklet.Tracklet{
		{ID: 1, Rows: tracklet.Features{
			{Coords: []float64{10, 20, 0, 0}, Frame: 0},
			{Coords: []float64{11.5, 21, 30, 40}, Frame: 1},
		}},
		{ID: 3, Rows: tracklet.Features{
			{Coords: []float64{200, 210, 220, 230}, Frame: 5},
		}},
	}
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	for _, table := range []string{"tracklet_runs", "tracklets", "tracklet_poses"} {
		var n int
		err := s.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}

	// Re-applying is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.MigrateDown())

	var n int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'tracklet_runs'`).Scan(&n))
	assert.Zero(t, n)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun()
	id, err := s.SaveRun(ctx, run, sampleTracklets())
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "video_keypoints.zip", got.Source)
	assert.Equal(t, tracklet.DefaultParams(), got.Params)
	assert.Equal(t, 2, got.Tracklets)
	assert.Equal(t, 230, got.Poses)
	assert.Equal(t, 900, got.Distances.Count)
	assert.InDelta(t, 312.5, got.Distances.P50, 1e-9)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Millisecond)

	tr, err := s.LoadTracklet(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, sampleTracklets()[0], tr)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleRun()
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleRun()
	newer.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.SaveRun(ctx, older, nil)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, newer, sampleTracklets())
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, 0, runs[1].Tracklets)
}

func TestLoadTracklet_NotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.LoadTracklet(ctx, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.SaveRun(ctx, sampleRun(), sampleTracklets())
	require.NoError(t, err)
	_, err = s.LoadTracklet(ctx, id, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRun_DuplicateRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dup := sampleTracklets()
	dup = append(dup, dup[0])
	_, err := s.SaveRun(ctx, sampleRun(), dup)
	require.Error(t, err)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestDeleteRun_Cascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, sampleRun(), sampleTracklets())
	require.NoError(t, err)
	require.NoError(t, s.DeleteRun(ctx, id))

	var n int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM tracklet_poses`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.DeleteRun(ctx, id), ErrNotFound)
}

func TestSaveRun_StampsFromClock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	s.Clock = timeutil.NewStepClock(start, time.Minute)

	first := sampleRun()
	_, err := s.SaveRun(ctx, first, nil)
	require.NoError(t, err)
	second := sampleRun()
	_, err = s.SaveRun(ctx, second, nil)
	require.NoError(t, err)

	assert.Equal(t, start, first.CreatedAt)
	assert.Equal(t, start.Add(time.Minute), second.CreatedAt)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.True(t, runs[1].CreatedAt.Equal(start))
}
