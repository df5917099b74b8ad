// Package testutil provides shared test fixtures: OpenPose records, zip
// archives of records and synthetic walking people.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/banshee-data/tracklets/internal/fsutil"
)

// Joint is one keypoint of a fixture person.
type Joint struct {
	X, Y, C float64
}

// OpenPoseRecord encodes one frame record with a person per joint list.
func OpenPoseRecord(t testing.TB, people ...[]Joint) []byte {
	t.Helper()
	type person struct {
		PersonID        []int     `json:"person_id"`
		PoseKeypoints2D []float64 `json:"pose_keypoints_2d"`
	}
	rec := struct {
		Version float64  `json:"version"`
		People  []person `json:"people"`
	}{Version: 1.3, People: []person{}}

	for _, joints := range people {
		kp := make([]float64, 0, 3*len(joints))
		for _, j := range joints {
			kp = append(kp, j.X, j.Y, j.C)
		}
		rec.People = append(rec.People, person{PersonID: []int{-1}, PoseKeypoints2D: kp})
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	return data
}

// Walkers returns the joints of two people crossing the image in opposite
// directions at frame f. The first person's third joint is undetected.
func Walkers(f int) [][]Joint {
	a := 100 + 2*float64(f)
	b := 500 - 2*float64(f)
	return [][]Joint{
		{{a, 200, 0.9}, {a + 5, 230, 0.8}, {0, 0, 0}},
		{{b, 300, 0.9}, {b + 5, 330, 0.8}, {b, 360, 0.7}},
	}
}

// RecordName returns the OpenPose file name of frame f.
func RecordName(f int) string {
	return fmt.Sprintf("video_%012d_keypoints.json", f)
}

// WriteWalkers writes frames records of Walkers into dir.
func WriteWalkers(t testing.TB, fs fsutil.FileSystem, dir string, frames int) {
	t.Helper()
	if err := fs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for f := 0; f < frames; f++ {
		path := filepath.Join(dir, RecordName(f))
		if err := fs.WriteFile(path, OpenPoseRecord(t, Walkers(f)...), 0644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

// Member is one file of a fixture archive.
type Member struct {
	Name string
	Data []byte
}

// ZipArchive builds an in-memory zip holding members in the given order.
func ZipArchive(t testing.TB, members ...Member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.Name)
		if err != nil {
			t.Fatalf("create %s: %v", m.Name, err)
		}
		if _, err := w.Write(m.Data); err != nil {
			t.Fatalf("write %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

// WalkersArchive builds a zip of frames Walkers records.
func WalkersArchive(t testing.TB, frames int) []byte {
	t.Helper()
	members := make([]Member, 0, frames)
	for f := 0; f < frames; f++ {
		members = append(members, Member{Name: RecordName(f), Data: OpenPoseRecord(t, Walkers(f)...)})
	}
	return ZipArchive(t, members...)
}
