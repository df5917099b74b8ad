package tracklet

import (
	"fmt"
)

// Constants for clustering configuration
const (
	// DefaultMinOccurrences is the minimum number of poses for a tracklet to be kept.
	DefaultMinOccurrences = 60
	// DefaultEpsSkel is the default per-joint RMS distance threshold in pixels.
	DefaultEpsSkel = 50.0
)

// Skeleton is one detected person in one frame.
// Coords holds x,y pairs in fixed joint order. A coordinate of exactly 0
// means the joint was not detected.
type Skeleton struct {
	Coords []float64
	Frame  int
}

// Joints returns the number of joints described by Coords.
func (s Skeleton) Joints() int {
	return len(s.Coords) / 2
}

// Vector returns the raw feature vector: the coordinates followed by the
// frame index.
func (s Skeleton) Vector() []float64 {
	v := make([]float64, len(s.Coords)+1)
	copy(v, s.Coords)
	v[len(s.Coords)] = float64(s.Frame)
	return v
}

// Joint returns the x,y position of joint j.
func (s Skeleton) Joint(j int) (x, y float64) {
	return s.Coords[2*j], s.Coords[2*j+1]
}

// Features is the feature matrix: one skeleton per row, in non-decreasing
// frame order as produced by the extraction stage.
type Features []Skeleton

// Joints returns the joint count of the first row, or 0 when empty.
func (f Features) Joints() int {
	if len(f) == 0 {
		return 0
	}
	return f[0].Joints()
}

// Validate checks that every row has the same, even, coordinate count.
func (f Features) Validate() error {
	if len(f) == 0 {
		return nil
	}
	width := len(f[0].Coords)
	if width%2 != 0 {
		return fmt.Errorf("row 0: odd coordinate count %d", width)
	}
	for i, s := range f {
		if len(s.Coords) != width {
			return fmt.Errorf("row %d: coordinate count %d, want %d", i, len(s.Coords), width)
		}
	}
	return nil
}

// Labels maps skeleton index to class id. 0 means unclassified.
type Labels []int

// Max returns the highest class id, or 0 when nothing was classified.
func (l Labels) Max() int {
	max := 0
	for _, id := range l {
		if id > max {
			max = id
		}
	}
	return max
}

// FrameSlotMode selects how the trailing frame index takes part in the
// masked distance.
type FrameSlotMode string

const (
	// FrameSlotExclude compares only the 2J coordinates. A coordinate is
	// valid when it is nonzero.
	FrameSlotExclude FrameSlotMode = "exclude"
	// FrameSlotLegacy masks the whole 2J+1 vector with a positive-value
	// test, so the frame index is counted as a coordinate unless it is 0.
	FrameSlotLegacy FrameSlotMode = "legacy"
)

// Params contains parameters for the tracklet clusterer.
type Params struct {
	MinOccurrences int           // Clustering stops once this many or fewer skeletons remain
	EpsSkel        float64       // Maximum per-joint RMS distance for a chain link
	FrameSlot      FrameSlotMode // Frame index handling in the distance
}

// DefaultParams returns default parameters for 640x480 pose detections.
func DefaultParams() Params {
	return Params{
		MinOccurrences: DefaultMinOccurrences,
		EpsSkel:        DefaultEpsSkel,
		FrameSlot:      FrameSlotExclude,
	}
}

// Validate checks the parameters. Cluster itself does not call it.
func (p Params) Validate() error {
	if p.MinOccurrences < 0 {
		return fmt.Errorf("min_occurrences must be non-negative, got %d", p.MinOccurrences)
	}
	if !(p.EpsSkel > 0) {
		return fmt.Errorf("eps_skel must be positive, got %v", p.EpsSkel)
	}
	switch p.FrameSlot {
	case FrameSlotExclude, FrameSlotLegacy, "":
	default:
		return fmt.Errorf("unknown frame slot mode %q", p.FrameSlot)
	}
	return nil
}

// Result holds the clustering output.
type Result struct {
	Labels    Labels    // One class id per skeleton, 0 = unclassified
	Distances []float64 // Every partial distance computed, in comparison order
	Classes   int       // Number of classes opened
	Passes    int       // Outer iterations run
	Compared  int       // Candidate pairs examined, including skipped ones
}
