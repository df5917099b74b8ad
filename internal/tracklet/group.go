package tracklet

// Tracklet is a class that survived the occurrence filter.
type Tracklet struct {
	ID   int
	Rows Features
}

// Occurrences returns the number of skeletons in the tracklet.
func (t Tracklet) Occurrences() int {
	return len(t.Rows)
}

// FrameSpan returns the first and last frame of the tracklet.
func (t Tracklet) FrameSpan() (first, last int) {
	if len(t.Rows) == 0 {
		return 0, 0
	}
	first, last = t.Rows[0].Frame, t.Rows[0].Frame
	for _, s := range t.Rows[1:] {
		if s.Frame < first {
			first = s.Frame
		}
		if s.Frame > last {
			last = s.Frame
		}
	}
	return first, last
}

// Counts returns the number of skeletons per class id. Index 0 counts the
// unclassified skeletons.
func Counts(labels Labels) []int {
	counts := make([]int, labels.Max()+1)
	for _, id := range labels {
		counts[id]++
	}
	return counts
}

// Group collects the rows of every class whose occurrence count is strictly
// greater than minOccurrences, in ascending class id order. Rows keep
// their feature matrix order.
func Group(features Features, labels Labels, minOccurrences int) []Tracklet {
	counts := Counts(labels)

	byID := make(map[int]int) // class id -> index in out
	var out []Tracklet
	for id := 1; id < len(counts); id++ {
		if counts[id] > minOccurrences {
			byID[id] = len(out)
			out = append(out, Tracklet{ID: id, Rows: make(Features, 0, counts[id])})
		}
	}

	for i, id := range labels {
		if k, ok := byID[id]; ok {
			out[k].Rows = append(out[k].Rows, features[i])
		}
	}
	return out
}
