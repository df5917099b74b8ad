package tracklet

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultDistanceCap bounds the capped distance histogram.
const DefaultDistanceCap = 1000.0

// DistanceSummary describes a distance sample for threshold tuning.
type DistanceSummary struct {
	Count       int     `json:"count"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Mean        float64 `json:"mean"`
	P50         float64 `json:"p50"`
	P90         float64 `json:"p90"`
	P99         float64 `json:"p99"`
	Cap         float64 `json:"cap"`
	BelowCap    int     `json:"below_cap"`
	BelowEps    int     `json:"below_eps"`
	EpsSkelUsed float64 `json:"eps_skel"`
}

// SummariseDistances computes the summary of a distance sample. The input
// is not modified.
func SummariseDistances(distances []float64, eps, capValue float64) DistanceSummary {
	s := DistanceSummary{Count: len(distances), Cap: capValue, EpsSkelUsed: eps}
	if len(distances) == 0 {
		return s
	}

	sorted := append([]float64(nil), distances...)
	sort.Float64s(sorted)

	s.Min = floats.Min(sorted)
	s.Max = floats.Max(sorted)
	s.Mean = stat.Mean(sorted, nil)
	s.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	s.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	s.P99 = stat.Quantile(0.99, stat.Empirical, sorted, nil)

	for _, d := range sorted {
		if d < capValue {
			s.BelowCap++
		}
		if d < eps {
			s.BelowEps++
		}
	}
	return s
}

// Capped returns the distances strictly below capValue, in input order.
func Capped(distances []float64, capValue float64) []float64 {
	out := make([]float64, 0, len(distances))
	for _, d := range distances {
		if d < capValue {
			out = append(out, d)
		}
	}
	return out
}
