package pose

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/testutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

const frame0 = `{"version":1.3,"people":[
	{"person_id":[-1],"pose_keypoints_2d":[10,20,0.9, 0,0,0, 30,40,0.5]},
	{"person_id":[-1],"pose_keypoints_2d":[110,120,0.8, 130,140,0.7, 0,0,0]}
]}`

const frame1 = `{"version":1.3,"people":[
	{"person_id":[-1],"pose_keypoints_2d":[12,22,0.9, 0,0,0, 32,42,0.5]}
]}`

const frameEmpty = `{"version":1.3,"people":[]}`

func TestStripConfidence(t *testing.T) {
	coords, err := StripConfidence([]float64{1, 2, 0.5, 3, 4, 0.1})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, coords)

	_, err = StripConfidence([]float64{1, 2})
	assert.Error(t, err)
}

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame("000.json", strings.NewReader(frame0))
	require.NoError(t, err)
	assert.Equal(t, "000.json", f.Name)
	require.Len(t, f.People, 2)
	assert.Len(t, f.People[0].PoseKeypoints2D, 9)

	_, err = DecodeFrame("bad.json", strings.NewReader("{"))
	assert.ErrorContains(t, err, "bad.json")
}

func TestExtract(t *testing.T) {
	frames := []Frame{
		{Name: "a", People: []Person{
			{PoseKeypoints2D: []float64{10, 20, 0.9, 0, 0, 0}},
			{PoseKeypoints2D: nil},
		}},
		{Name: "b"},
		{Name: "c", People: []Person{
			{PoseKeypoints2D: []float64{1, 2, 1, 3, 4, 1}},
		}},
	}

	features, err := Extract(frames)
	require.NoError(t, err)
	assert.Equal(t, tracklet.Features{
		{Coords: []float64{10, 20, 0, 0}, Frame: 0},
		{Coords: []float64{1, 2, 3, 4}, Frame: 2},
	}, features)
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract([]Frame{{Name: "a", People: []Person{{PoseKeypoints2D: []float64{1, 2}}}}})
	assert.ErrorContains(t, err, "a person 0")

	_, err = Extract([]Frame{
		{Name: "a", People: []Person{{PoseKeypoints2D: []float64{1, 2, 1}}}},
		{Name: "b", People: []Person{{PoseKeypoints2D: []float64{1, 2, 1, 3, 4, 1}}}},
	})
	assert.ErrorContains(t, err, "2 joints, want 1")
}

func TestReadZip_SortsAndFilters(t *testing.T) {
	data := testutil.ZipArchive(t,
		testutil.Member{Name: "video_000000000001_keypoints.json", Data: []byte(frame1)},
		testutil.Member{Name: "README.txt", Data: []byte("not a frame")},
		testutil.Member{Name: "video_000000000000_keypoints.json", Data: []byte(frame0)},
	)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	frames, err := ReadZip(context.Background(), zr)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "video_000000000000_keypoints.json", frames[0].Name)
	assert.Equal(t, "video_000000000001_keypoints.json", frames[1].Name)

	features, err := Extract(frames)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, []float64{10, 20, 0, 0, 30, 40}, features[0].Coords)
	assert.Equal(t, 0, features[1].Frame)
	assert.Equal(t, 1, features[2].Frame)
}

func TestReadZip_Cancelled(t *testing.T) {
	data := testutil.ZipArchive(t, testutil.Member{Name: "0.json", Data: []byte(frame0)})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ReadZip(ctx, zr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZipSource_OnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_keypoints.zip")
	data := testutil.ZipArchive(t,
		testutil.Member{Name: "0.json", Data: []byte(frame0)},
		testutil.Member{Name: "1.json", Data: []byte(frame1)},
	)
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := OpenSource(fsutil.OSFileSystem{}, path)
	require.NoError(t, err)
	require.IsType(t, ZipSource{}, src)

	features, frames, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, frames)
	assert.Len(t, features, 3)

	_, err = ZipSource{Path: filepath.Join(t.TempDir(), "missing.zip")}.Frames(context.Background())
	assert.Error(t, err)
}

func TestZipSource_Walkers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walkers.zip")
	require.NoError(t, os.WriteFile(path, testutil.WalkersArchive(t, 5), 0644))

	features, frames, err := Load(context.Background(), ZipSource{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 5, frames)
	require.Len(t, features, 10)
	assert.Equal(t, 3, features.Joints())
	assert.Equal(t, 4, features[9].Frame)
}

func TestZipSource_MemoryFS(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/poses.zip", testutil.WalkersArchive(t, 3), 0644))

	src, err := OpenSource(mfs, "/poses.zip")
	require.NoError(t, err)
	assert.Equal(t, ZipSource{FS: mfs, Path: "/poses.zip"}, src)

	features, frames, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, frames)
	assert.Len(t, features, 6)

	require.NoError(t, mfs.WriteFile("/broken.zip", []byte("not a zip"), 0644))
	_, err = ZipSource{FS: mfs, Path: "/broken.zip"}.Frames(context.Background())
	assert.ErrorContains(t, err, "open archive /broken.zip")
}

func TestDirSource(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("/poses", 0755))
	require.NoError(t, mfs.WriteFile("/poses/0002.json", []byte(frame1), 0644))
	require.NoError(t, mfs.WriteFile("/poses/0001.json", []byte(frame0), 0644))
	require.NoError(t, mfs.WriteFile("/poses/index.txt", []byte("x"), 0644))

	src, err := OpenSource(mfs, "/poses")
	require.NoError(t, err)
	require.IsType(t, DirSource{}, src)

	frames, err := src.Frames(context.Background())
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, "0001.json", frames[0].Name)

	_, err = OpenSource(mfs, "/missing")
	assert.Error(t, err)
}

type stubSource struct {
	frames []Frame
	err    error
}

func (s stubSource) Frames(context.Context) ([]Frame, error) { return s.frames, s.err }

func TestLoad_NoPoses(t *testing.T) {
	frame, err := DecodeFrame("0.json", strings.NewReader(frameEmpty))
	require.NoError(t, err)

	_, n, err := Load(context.Background(), stubSource{frames: []Frame{frame}})
	assert.ErrorIs(t, err, ErrNoPoses)
	assert.Equal(t, 1, n)

	_, _, err = Load(context.Background(), stubSource{})
	assert.ErrorIs(t, err, ErrNoPoses)

	boom := errors.New("boom")
	_, _, err = Load(context.Background(), stubSource{err: boom})
	assert.ErrorIs(t, err, boom)
}
