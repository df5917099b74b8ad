// Package sweep runs the tracklet clusterer over a grid of thresholds so
// eps_skel and min_occurrences can be tuned on a recorded video.
package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// maxValues bounds the number of values one parameter may expand to.
const maxValues = 10000

// Range is an inclusive min:max:step grid of one clustering parameter.
type Range[T int | float64] struct {
	Min, Max, Step T
}

// Values expands the range. Float steps are rounded to 1e-3 so repeated
// addition does not drift past Max. Returns nil for an empty or oversized
// range.
func (r Range[T]) Values() []T {
	if r.Step <= 0 || r.Min > r.Max {
		return nil
	}
	n := int(float64(r.Max-r.Min)/float64(r.Step)) + 1
	if n > maxValues {
		return nil
	}

	out := make([]T, 0, n)
	for i := 0; ; i++ {
		v := r.Min + T(i)*r.Step
		if f, ok := any(v).(float64); ok {
			v = T(math.Round(f*1000) / 1000)
		}
		if v > r.Max {
			break
		}
		out = append(out, v)
	}
	return out
}

// ParseEpsRange parses "min:max:step" for eps_skel. Every value of the
// grid must be positive.
func ParseEpsRange(s string) (Range[float64], error) {
	r, err := parseRange("eps_skel", s, parseFloat)
	if err != nil {
		return r, err
	}
	if r.Min <= 0 {
		return r, fmt.Errorf("eps_skel range %q: min must be positive", s)
	}
	return r, nil
}

// ParseMinOccurrencesRange parses "min:max:step" for min_occurrences.
func ParseMinOccurrencesRange(s string) (Range[int], error) {
	r, err := parseRange("min_occurrences", s, strconv.Atoi)
	if err != nil {
		return r, err
	}
	if r.Min < 0 {
		return r, fmt.Errorf("min_occurrences range %q: min must be non-negative", s)
	}
	return r, nil
}

// ParseEpsValues accepts either an eps_skel range or a comma-separated
// list of values.
func ParseEpsValues(s string) ([]float64, error) {
	if strings.Contains(s, ":") {
		r, err := ParseEpsRange(s)
		if err != nil {
			return nil, err
		}
		return r.Values(), nil
	}
	vals, err := parseList("eps_skel", s, parseFloat)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if v <= 0 {
			return nil, fmt.Errorf("eps_skel %g must be positive", v)
		}
	}
	return vals, nil
}

// ParseMinOccurrencesValues accepts either a min_occurrences range or a
// comma-separated list of values.
func ParseMinOccurrencesValues(s string) ([]int, error) {
	if strings.Contains(s, ":") {
		r, err := ParseMinOccurrencesRange(s)
		if err != nil {
			return nil, err
		}
		return r.Values(), nil
	}
	vals, err := parseList("min_occurrences", s, strconv.Atoi)
	if err != nil {
		return nil, err
	}
	for _, v := range vals {
		if v < 0 {
			return nil, fmt.Errorf("min_occurrences %d must be non-negative", v)
		}
	}
	return vals, nil
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func parseRange[T int | float64](param, s string, parse func(string) (T, error)) (Range[T], error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Range[T]{}, fmt.Errorf("%s range %q: expected min:max:step", param, s)
	}
	var vals [3]T
	for i, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return Range[T]{}, fmt.Errorf("%s range %q: %w", param, s, err)
		}
		vals[i] = v
	}
	if vals[2] <= 0 {
		return Range[T]{}, fmt.Errorf("%s range %q: step must be positive", param, s)
	}
	return Range[T]{Min: vals[0], Max: vals[1], Step: vals[2]}, nil
}

func parseList[T int | float64](param, s string, parse func(string) (T, error)) ([]T, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%s list %q: %w", param, s, err)
		}
		out = append(out, v)
	}
	return out, nil
}
