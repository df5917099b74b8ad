// Package pose reads per-frame OpenPose detections and turns them into the
// feature matrix consumed by the tracklet clusterer.
//
// Frames come from a zip archive or a directory of JSON files. Only names
// ending in .json are read, sorted lexicographically; the frame index of a
// record is its position in that order.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/tracklets/internal/tracklet"
)

// ErrNoPoses is returned when a source holds no skeleton at all.
var ErrNoPoses = errors.New("no poses found")

// valuesPerKeypoint is x, y, confidence.
const valuesPerKeypoint = 3

// Person is one detection of an OpenPose frame record.
type Person struct {
	PersonID        []int     `json:"person_id,omitempty"`
	PoseKeypoints2D []float64 `json:"pose_keypoints_2d"`
}

// Frame is one OpenPose JSON record.
type Frame struct {
	Name    string   `json:"-"`
	Version float64  `json:"version,omitempty"`
	People  []Person `json:"people"`
}

// DecodeFrame parses one OpenPose JSON record.
func DecodeFrame(name string, r io.Reader) (Frame, error) {
	var f Frame
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decode %s: %w", name, err)
	}
	f.Name = name
	return f, nil
}

// StripConfidence drops every third value of an x,y,c keypoint list,
// keeping the x,y pairs in joint order.
func StripConfidence(keypoints []float64) ([]float64, error) {
	if len(keypoints)%valuesPerKeypoint != 0 {
		return nil, fmt.Errorf("keypoint count %d is not a multiple of %d", len(keypoints), valuesPerKeypoint)
	}
	coords := make([]float64, 0, len(keypoints)/valuesPerKeypoint*2)
	for i := 0; i < len(keypoints); i += valuesPerKeypoint {
		coords = append(coords, keypoints[i], keypoints[i+1])
	}
	return coords, nil
}

// Extract builds the feature matrix: one row per detected person, frames in
// slice order, the frame index being the position in frames. People with
// an empty keypoint list are skipped. Every other person must carry the
// same joint count.
func Extract(frames []Frame) (tracklet.Features, error) {
	var features tracklet.Features
	joints := -1

	for frameIdx, frame := range frames {
		for personIdx, person := range frame.People {
			if len(person.PoseKeypoints2D) == 0 {
				continue
			}
			coords, err := StripConfidence(person.PoseKeypoints2D)
			if err != nil {
				return nil, fmt.Errorf("%s person %d: %w", frame.Name, personIdx, err)
			}

			j := len(coords) / 2
			if joints < 0 {
				joints = j
			} else if j != joints {
				return nil, fmt.Errorf("%s person %d: %d joints, want %d", frame.Name, personIdx, j, joints)
			}

			features = append(features, tracklet.Skeleton{Coords: coords, Frame: frameIdx})
		}
	}
	return features, nil
}
