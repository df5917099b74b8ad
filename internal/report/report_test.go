package report

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func walker(id, frames int, x0 float64) tracklet.Tracklet {
	t := tracklet.Tracklet{ID: id}
	for f := 0; f < frames; f++ {
		x := x0 + float64(f)
		t.Rows = append(t.Rows, tracklet.Skeleton{
			Coords: []float64{x, 200, x + 5, 220, 0, 0},
			Frame:  f,
		})
	}
	return t
}

func sampleDistances() []float64 {
	d := make([]float64, 0, 300)
	for i := 0; i < 300; i++ {
		d = append(d, float64(i%50)+0.5)
	}
	return append(d, 1500, 2200, 4000)
}

func assertPNG(t *testing.T, mfs *fsutil.MemoryFileSystem, path string) {
	t.Helper()
	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err, "%s is not a PNG", path)
}

func TestReport_WriteAll(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs, "/out")

	tracklets := []tracklet.Tracklet{walker(1, 40, 100), walker(3, 25, 400)}
	paths, err := r.WriteAll(tracklets, sampleDistances())
	require.NoError(t, err)

	want := []string{
		filepath.Join("/out", "tracklet_1.png"),
		filepath.Join("/out", "tracklet_3.png"),
		filepath.Join("/out", ClustersFile),
		filepath.Join("/out", DistancesFile),
	}
	assert.Equal(t, want, paths)
	for _, p := range paths {
		assertPNG(t, mfs, p)
	}
}

func TestReport_EmptyInputs(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs, "/out")

	paths, err := r.WriteAll(nil, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assertPNG(t, mfs, paths[0])
	assertPNG(t, mfs, paths[1])
}

func TestReport_DistancesSparseCappedSample(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
	}{
		{"single value", []float64{5}},
		{"one below cap", []float64{0.5, 1500}},
		{"flat counts", []float64{1, 2}},
		{"all above cap", []float64{2000, 3000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			require.NoError(t, mfs.MkdirAll("/out", 0755))
			r := New(mfs, "/out")

			var path string
			var err error
			require.NotPanics(t, func() { path, err = r.Distances(tt.distances) })
			require.NoError(t, err)
			assertPNG(t, mfs, path)
		})
	}
}

func TestReport_ClustersSkipsMissingFirstJoint(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/out", 0755))
	r := New(mfs, "/out")

	partial := tracklet.Tracklet{ID: 2, Rows: tracklet.Features{
		{Coords: []float64{0, 0, 50, 60}, Frame: 0},
		{Coords: []float64{0, 0, 52, 61}, Frame: 1},
	}}
	path, err := r.Clusters([]tracklet.Tracklet{partial, walker(4, 3, 100)})
	require.NoError(t, err)
	assertPNG(t, mfs, path)
}

func TestReport_TrackletWithoutJoints(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs, "/out")
	require.NoError(t, mfs.MkdirAll("/out", 0755))

	empty := tracklet.Tracklet{ID: 9, Rows: tracklet.Features{
		{Coords: []float64{0, 0, 0, 0}, Frame: 1},
		{Coords: []float64{0, 0, 0, 0}, Frame: 2},
	}}
	path, err := r.Tracklet(empty)
	require.NoError(t, err)
	assertPNG(t, mfs, path)
}

func TestHistogramBins(t *testing.T) {
	edges, counts := HistogramBins([]float64{0, 1, 2, 3, 4, 10}, 5)
	assert.Equal(t, []float64{0, 2, 4, 6, 8}, edges)
	assert.Equal(t, []int{2, 2, 1, 0, 1}, counts)

	edges, counts = HistogramBins([]float64{7, 7, 7}, 4)
	assert.Equal(t, []float64{7, 8, 9, 10}, edges)
	assert.Equal(t, []int{3, 0, 0, 0}, counts)

	edges, counts = HistogramBins(nil, 10)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestReport_HTML(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	r := New(mfs, "/out")
	require.NoError(t, mfs.MkdirAll("/out", 0755))

	path, err := r.HTML("video_keypoints.zip", []tracklet.Tracklet{walker(1, 10, 100)}, sampleDistances())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", HTMLFile), path)

	data, err := mfs.ReadFile(path)
	require.NoError(t, err)
	html := string(data)
	assert.True(t, strings.Contains(html, "<html"), "expected an html document")
	assert.Contains(t, html, "ID 1")
	assert.Contains(t, html, "Histogram of distances")
}

func TestReport_OnDisk(t *testing.T) {
	dir := t.TempDir()
	r := New(fsutil.OSFileSystem{}, dir)

	path, err := r.Distances(sampleDistances())
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
