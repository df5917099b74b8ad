package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/tracklets/internal/timeutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

// Row holds the outcome of one parameter combination.
type Row struct {
	EpsSkel        float64
	MinOccurrences int
	Classes        int // Classes opened by the clusterer
	Tracklets      int // Classes that survived the occurrence filter
	Kept           int // Skeletons inside surviving tracklets
	Unclassified   int // Skeletons left with label 0
	Distances      tracklet.DistanceSummary
	Elapsed        time.Duration
}

// Runner clusters one feature matrix for every parameter combination.
type Runner struct {
	Clusterer tracklet.ClustererInterface
	FrameSlot tracklet.FrameSlotMode
	Clock     timeutil.Clock // Times each combination; nil uses the wall clock
	// Progress, when set, is called after each combination.
	Progress func(done, total int, row Row)
}

// NewRunner creates a runner around the default clusterer.
func NewRunner(mode tracklet.FrameSlotMode) *Runner {
	return &Runner{
		Clusterer: tracklet.NewClusterer(tracklet.DefaultParams()),
		FrameSlot: mode,
	}
}

// Run evaluates the cartesian product of epsValues and minOccValues, eps
// varying fastest. It stops early when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, features tracklet.Features, epsValues []float64, minOccValues []int) ([]Row, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("no features to sweep")
	}
	if len(epsValues) == 0 || len(minOccValues) == 0 {
		return nil, fmt.Errorf("empty sweep: %d eps values, %d min_occurrences values", len(epsValues), len(minOccValues))
	}

	clock := timeutil.OrReal(r.Clock)
	total := len(epsValues) * len(minOccValues)
	rows := make([]Row, 0, total)
	for _, minOcc := range minOccValues {
		for _, eps := range epsValues {
			params := tracklet.Params{MinOccurrences: minOcc, EpsSkel: eps, FrameSlot: r.FrameSlot}
			if err := params.Validate(); err != nil {
				return rows, fmt.Errorf("eps=%g min_occurrences=%d: %w", eps, minOcc, err)
			}
			r.Clusterer.SetParams(params)

			start := clock.Now()
			res, err := r.Clusterer.Cluster(ctx, features)
			if err != nil {
				return rows, err
			}
			row := summarise(features, res, params)
			row.Elapsed = clock.Since(start)
			rows = append(rows, row)

			if r.Progress != nil {
				r.Progress(len(rows), total, row)
			}
		}
	}
	return rows, nil
}

func summarise(features tracklet.Features, res *tracklet.Result, params tracklet.Params) Row {
	row := Row{
		EpsSkel:        params.EpsSkel,
		MinOccurrences: params.MinOccurrences,
		Classes:        res.Classes,
		Distances:      tracklet.SummariseDistances(res.Distances, params.EpsSkel, tracklet.DefaultDistanceCap),
	}
	for _, tr := range tracklet.Group(features, res.Labels, params.MinOccurrences) {
		row.Tracklets++
		row.Kept += tr.Occurrences()
	}
	row.Unclassified = tracklet.Counts(res.Labels)[0]
	return row
}
