// Package debug provides instrumentation for the tracklet clusterer.
// The Collector captures clusterer internals (seed choices, pairwise
// distances, accept/reject decisions) for threshold tuning and plots.
package debug

import "sync"

// Pre-allocation capacities for collector slices.
const (
	defaultClassCapacity      = 16
	defaultComparisonCapacity = 256
)

// Decision is the outcome of one anchor/candidate comparison.
type Decision string

const (
	// Accepted: the candidate joined the class and became the anchor.
	Accepted Decision = "accepted"
	// RejectedDistance: the distance was not below eps.
	RejectedDistance Decision = "rejected_distance"
	// RejectedSameFrame: close enough, but from the anchor's own frame.
	RejectedSameFrame Decision = "rejected_same_frame"
	// SkippedOverlap: fewer than two shared valid coordinates, no distance.
	SkippedOverlap Decision = "skipped_overlap"
)

// ComparisonRecord captures a single anchor/candidate comparison.
type ComparisonRecord struct {
	ClassID   int      // Class being grown
	Anchor    int      // Skeleton index of the current anchor
	Candidate int      // Skeleton index being compared
	Distance  float64  // Partial distance, 0 when skipped
	Common    int      // Overlapping valid coordinates
	Decision  Decision // Outcome
}

// ClassRecord captures one outer iteration of the clusterer.
type ClassRecord struct {
	ClassID     int
	Seed        int // Skeleton index that opened the class
	Candidates  int // Size of the pass snapshot
	Accepted    int
	Comparisons []ComparisonRecord
}

// Collector accumulates debug records during one clustering run.
//
// The collector is stateful: call BeginClass() when a class is opened,
// RecordComparison() for every candidate, then Emit() once the run is over.
// Reset() before reusing it.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	classes []ClassRecord
}

// NewCollector creates a disabled collector.
func NewCollector() *Collector {
	return &Collector{}
}

// IsEnabled returns whether recording is on.
func (c *Collector) IsEnabled() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled turns recording on or off.
func (c *Collector) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// BeginClass starts a new class record.
func (c *Collector) BeginClass(classID, seed, candidates int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	if c.classes == nil {
		c.classes = make([]ClassRecord, 0, defaultClassCapacity)
	}
	c.classes = append(c.classes, ClassRecord{
		ClassID:     classID,
		Seed:        seed,
		Candidates:  candidates,
		Comparisons: make([]ComparisonRecord, 0, min(candidates, defaultComparisonCapacity)),
	})
}

// RecordComparison appends a comparison to the current class.
// It is a no-op when disabled or before the first BeginClass.
func (c *Collector) RecordComparison(rec ComparisonRecord) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || len(c.classes) == 0 {
		return
	}
	cur := &c.classes[len(c.classes)-1]
	cur.Comparisons = append(cur.Comparisons, rec)
	if rec.Decision == Accepted {
		cur.Accepted++
	}
}

// Emit returns the records collected so far, or nil when disabled.
func (c *Collector) Emit() []ClassRecord {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return nil
	}
	out := make([]ClassRecord, len(c.classes))
	copy(out, c.classes)
	return out
}

// Reset clears all records, keeping the enabled state.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes = nil
}

// Distances returns every recorded distance in comparison order.
// Skipped comparisons carry no distance and are left out.
func Distances(classes []ClassRecord) []float64 {
	var out []float64
	for _, cls := range classes {
		for _, cmp := range cls.Comparisons {
			if cmp.Decision == SkippedOverlap {
				continue
			}
			out = append(out, cmp.Distance)
		}
	}
	return out
}

// DecisionCounts tallies comparisons by outcome.
func DecisionCounts(classes []ClassRecord) map[Decision]int {
	counts := make(map[Decision]int)
	for _, cls := range classes {
		for _, cmp := range cls.Comparisons {
			counts[cmp.Decision]++
		}
	}
	return counts
}
