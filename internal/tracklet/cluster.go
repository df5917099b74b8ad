package tracklet

import (
	"context"

	"github.com/banshee-data/tracklets/internal/tracklet/debug"
)

// Cluster groups skeletons into tracklets by greedy nearest-neighbour
// chaining on the masked partial distance.
//
// Each outer pass opens a class on the lowest-index unclassified skeleton
// and walks the remaining unclassified skeletons in index order. A
// candidate joins the class when its distance to the current anchor is
// below EpsSkel and it comes from a different frame; it then becomes the
// anchor. Passes continue while more than MinOccurrences skeletons are
// unclassified. Leftover skeletons keep label 0.
//
// The caller must not pass empty features.
func Cluster(features Features, params Params) *Result {
	res, _ := cluster(context.Background(), features, params, nil)
	return res
}

// ClusterContext is Cluster with a cancellation check between outer
// passes. On cancellation it returns the labels assigned so far along with
// ctx.Err().
func ClusterContext(ctx context.Context, features Features, params Params) (*Result, error) {
	return cluster(ctx, features, params, nil)
}

func cluster(ctx context.Context, features Features, params Params, collector *debug.Collector) (*Result, error) {
	n := len(features)
	labels := make(Labels, n)
	res := &Result{Labels: labels}

	prepared := make([]pose, n)
	for i := range features {
		prepared[i] = preparePose(features, i, params.FrameSlot)
	}

	unclassified := make([]int, n)
	for i := range unclassified {
		unclassified[i] = i
	}
	classID := 1

	for len(unclassified) > params.MinOccurrences {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		seed := unclassified[0]
		labels[seed] = classID
		last := prepared[seed]

		// Explicit snapshot: indices labelled during this pass stay in it.
		snapshot := append([]int(nil), unclassified[1:]...)
		collector.BeginClass(classID, seed, len(snapshot))

		for _, idx := range snapshot {
			this := prepared[idx]
			res.Compared++

			dist, common, ok := PartialDistance(last.vec, this.vec, last.mask, this.mask)
			if !ok {
				collector.RecordComparison(debug.ComparisonRecord{
					ClassID: classID, Anchor: last.index, Candidate: idx,
					Common: common, Decision: debug.SkippedOverlap,
				})
				continue
			}
			res.Distances = append(res.Distances, dist)

			decision := debug.RejectedDistance
			if dist < params.EpsSkel {
				if this.frame != last.frame {
					decision = debug.Accepted
				} else {
					decision = debug.RejectedSameFrame
				}
			}
			collector.RecordComparison(debug.ComparisonRecord{
				ClassID: classID, Anchor: last.index, Candidate: idx,
				Distance: dist, Common: common, Decision: decision,
			})

			if decision == debug.Accepted {
				labels[idx] = classID
				last = this
			}
		}

		unclassified = unclassifiedIndices(labels, unclassified[:0])
		res.Classes = classID
		res.Passes++
		classID++
	}

	return res, nil
}

// unclassifiedIndices appends the indices labelled 0 to dst.
func unclassifiedIndices(labels Labels, dst []int) []int {
	for i, id := range labels {
		if id == 0 {
			dst = append(dst, i)
		}
	}
	return dst
}
