package report

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tracklets/internal/tracklet"
)

// maxScatterPoints bounds the points drawn per tracklet in the HTML page.
const maxScatterPoints = 5000

// HistogramBins counts values into n equal-width bins over [min, max]. It
// returns the bin lower edges and counts. The last bin is closed.
func HistogramBins(values []float64, n int) (edges []float64, counts []int) {
	if len(values) == 0 || n <= 0 {
		return nil, nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	width := (hi - lo) / float64(n)
	if width == 0 {
		width = 1
	}

	edges = make([]float64, n)
	counts = make([]int, n)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	for _, v := range values {
		k := int((v - lo) / width)
		if k >= n {
			k = n - 1
		}
		counts[k]++
	}
	return edges, counts
}

func trackletScatter(title string, tracklets []tracklet.Tracklet, width, height float64) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "760px"}),
		charts.WithTitleOpts(opts.Title{Title: "Tracklets", Subtitle: fmt.Sprintf("%s tracklets=%d", title, len(tracklets))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: width, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: height, Name: "y (px)", NameLocation: "middle", NameGap: 30}),
	)

	for _, t := range tracklets {
		stride := len(t.Rows)/maxScatterPoints + 1
		data := make([]opts.ScatterData, 0, len(t.Rows)/stride+1)
		for i := 0; i < len(t.Rows); i += stride {
			s := t.Rows[i]
			if s.Joints() == 0 {
				continue
			}
			x, y := s.Joint(0)
			if x == 0 || y == 0 {
				continue
			}
			// Image rows grow downwards.
			data = append(data, opts.ScatterData{Value: []interface{}{x, height - y, s.Frame}})
		}
		scatter.AddSeries(fmt.Sprintf("ID %d", t.ID), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	}
	return scatter
}

func distanceBar(title string, distances []float64, bins int) *charts.Bar {
	edges, counts := HistogramBins(distances, bins)
	x := make([]string, len(edges))
	y := make([]opts.BarData, len(counts))
	for i := range edges {
		x[i] = fmt.Sprintf("%.1f", edges[i])
		y[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("n=%d bins=%d", len(distances), bins)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("distances", y)
	return bar
}

// HTML writes report.html: a tracklet overview scatter and the full and
// capped distance histograms.
func (r *Report) HTML(title string, tracklets []tracklet.Tracklet, distances []float64) (string, error) {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		trackletScatter(title, tracklets, r.ImageWidth, r.ImageHeight),
		distanceBar("Histogram of distances", distances, r.Bins),
		distanceBar(fmt.Sprintf("Distances below %g", r.DistanceCap), tracklet.Capped(distances, r.DistanceCap), r.Bins),
	)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return "", fmt.Errorf("render %s: %w", HTMLFile, err)
	}
	return r.save(HTMLFile, &buf)
}
