package tracklet

import "math"

// ValidityMask flags every nonzero value of v as a detected coordinate.
func ValidityMask(v []float64) []bool {
	mask := make([]bool, len(v))
	for i, x := range v {
		mask[i] = x != 0
	}
	return mask
}

// positiveMask flags every strictly positive value of v.
func positiveMask(v []float64) []bool {
	mask := make([]bool, len(v))
	for i, x := range v {
		mask[i] = x > 0
	}
	return mask
}

// PartialDistance returns the root-mean-square difference between a and b
// over the coordinates valid in both masks, and the number of such
// coordinates. ok is false when fewer than two coordinates overlap; the
// distance is then meaningless and must not be recorded.
func PartialDistance(a, b []float64, ma, mb []bool) (dist float64, common int, ok bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		if !ma[i] || !mb[i] {
			continue
		}
		d := a[i] - b[i]
		sum += d * d
		common++
	}

	if common <= 1 {
		return 0, common, false
	}
	return math.Sqrt(sum / float64(common)), common, true
}

// pose is a skeleton prepared for comparison under a FrameSlotMode.
type pose struct {
	index int
	vec   []float64
	mask  []bool
	frame int
}

func preparePose(features Features, idx int, mode FrameSlotMode) pose {
	s := features[idx]
	p := pose{index: idx, frame: s.Frame}
	if mode == FrameSlotLegacy {
		p.vec = s.Vector()
		p.mask = positiveMask(p.vec)
	} else {
		p.vec = s.Coords
		p.mask = ValidityMask(p.vec)
	}
	return p
}

// Distance returns the partial distance between two skeletons under mode.
func Distance(a, b Skeleton, mode FrameSlotMode) (dist float64, common int, ok bool) {
	f := Features{a, b}
	pa := preparePose(f, 0, mode)
	pb := preparePose(f, 1, mode)
	return PartialDistance(pa.vec, pb.vec, pa.mask, pb.mask)
}
