package sweep

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tracklets/internal/timeutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

func TestParseEpsRange(t *testing.T) {
	tests := []struct {
		input   string
		want    Range[float64]
		wantErr string
	}{
		{"10:50:10", Range[float64]{10, 50, 10}, ""},
		{" 0.5 : 1.5 : 0.5 ", Range[float64]{0.5, 1.5, 0.5}, ""},
		{"1:2", Range[float64]{}, "expected min:max:step"},
		{"a:2:1", Range[float64]{}, "eps_skel range"},
		{"1:2:0", Range[float64]{}, "step must be positive"},
		{"1:2:-1", Range[float64]{}, "step must be positive"},
		{"0:20:5", Range[float64]{}, "min must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEpsRange(tt.input)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRange_Values(t *testing.T) {
	assert.Equal(t, []float64{10, 20, 30, 40, 50}, Range[float64]{10, 50, 10}.Values())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, Range[float64]{0.1, 0.3, 0.1}.Values())
	assert.Nil(t, Range[float64]{5, 1, 1}.Values())
	assert.Nil(t, Range[float64]{0, 1e9, 1}.Values())
	assert.Equal(t, []int{0, 5, 10}, Range[int]{0, 12, 5}.Values())
}

func TestParseMinOccurrencesRange(t *testing.T) {
	r, err := ParseMinOccurrencesRange("0:10:5")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 5, 10}, r.Values())

	_, err = ParseMinOccurrencesRange("0:10:0")
	assert.ErrorContains(t, err, "min_occurrences range")
	_, err = ParseMinOccurrencesRange("0:x:1")
	assert.Error(t, err)
	_, err = ParseMinOccurrencesRange("-5:10:5")
	assert.ErrorContains(t, err, "non-negative")
}

func TestParseValues(t *testing.T) {
	got, err := ParseEpsValues("5, 10,20")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 20}, got)

	got, err = ParseEpsValues("5:15:5")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 10, 15}, got)

	got, err = ParseEpsValues("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseEpsValues("5,x")
	assert.ErrorContains(t, err, "eps_skel list")
	_, err = ParseEpsValues("5,0")
	assert.ErrorContains(t, err, "must be positive")

	ints, err := ParseMinOccurrencesValues("1,2,3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ints)

	_, err = ParseMinOccurrencesValues("1,-2")
	assert.ErrorContains(t, err, "non-negative")
}

// twoWalkers builds two people walking in parallel across frames frames.
func twoWalkers(frames int) tracklet.Features {
	var out tracklet.Features
	for f := 0; f < frames; f++ {
		x := float64(100 + 2*f)
		out = append(out,
			tracklet.Skeleton{Coords: []float64{x, 100, x + 10, 120}, Frame: f},
			tracklet.Skeleton{Coords: []float64{x, 400, x + 10, 420}, Frame: f},
		)
	}
	return out
}

func TestRunner_Run(t *testing.T) {
	features := twoWalkers(10)
	runner := NewRunner(tracklet.FrameSlotExclude)
	runner.Clock = timeutil.NewStepClock(time.Unix(0, 0), 250*time.Millisecond)

	var progress []int
	runner.Progress = func(done, total int, row Row) {
		assert.Equal(t, 4, total)
		progress = append(progress, done)
	}

	rows, err := runner.Run(context.Background(), features, []float64{5, 1000}, []int{0, 5})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	// eps=5: each walker is one tracklet of 10 poses.
	assert.Equal(t, 5.0, rows[0].EpsSkel)
	assert.Equal(t, 0, rows[0].MinOccurrences)
	assert.Equal(t, 2, rows[0].Classes)
	assert.Equal(t, 2, rows[0].Tracklets)
	assert.Equal(t, 20, rows[0].Kept)
	assert.Zero(t, rows[0].Unclassified)

	// eps=1000: the walkers are always within eps of each other, only the
	// frame guard keeps them apart.
	assert.Equal(t, 1000.0, rows[1].EpsSkel)
	assert.Equal(t, 2, rows[1].Tracklets)
	assert.Greater(t, rows[1].Distances.Count, 0)

	// min_occurrences=5 with eps=5 keeps both walkers (10 > 5).
	assert.Equal(t, 2, rows[2].Tracklets)

	for _, row := range rows {
		assert.Equal(t, 250*time.Millisecond, row.Elapsed)
	}
}

func TestRunner_Errors(t *testing.T) {
	runner := NewRunner(tracklet.FrameSlotExclude)

	_, err := runner.Run(context.Background(), nil, []float64{1}, []int{1})
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), twoWalkers(2), nil, []int{1})
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), twoWalkers(2), []float64{-1}, []int{1})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.Run(ctx, twoWalkers(2), []float64{1}, []int{0})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVWriter_WriteAll(t *testing.T) {
	var buf bytes.Buffer
	w := NewCSVWriter(&buf)

	rows := []Row{
		{EpsSkel: 5, MinOccurrences: 0, Classes: 2, Tracklets: 2, Kept: 20},
		{EpsSkel: 12.5, MinOccurrences: 3, Classes: 1, Tracklets: 1, Kept: 10, Unclassified: 10},
	}
	require.NoError(t, w.WriteAll(rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, Headers(), records[0])
	assert.Equal(t, "5", records[1][0])
	assert.Equal(t, "12.5", records[2][0])
	assert.Equal(t, "10", records[2][5])
}
