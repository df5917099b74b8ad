// Package report renders the diagnostic figures of a clustering run: the
// tracklet overview, one scatter per tracklet and the distance histograms.
package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/security"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

// Output file names.
const (
	ClustersFile  = "clusters.png"
	DistancesFile = "dbg_distances.png"
	HTMLFile      = "report.html"
)

// TrackletFile returns the scatter file name of a tracklet.
func TrackletFile(id int) string { return fmt.Sprintf("tracklet_%d.png", id) }

// Defaults for the figure layout.
const (
	DefaultImageWidth  = 640.0
	DefaultImageHeight = 480.0
	DefaultBins        = 200
)

// Report writes figures into Dir through FS.
type Report struct {
	FS  fsutil.FileSystem
	Dir string

	ImageWidth  float64 // Pose image width in pixels, fixes the tracklet x axis
	ImageHeight float64 // Pose image height in pixels, fixes the tracklet y axis
	DistanceCap float64 // Upper bound of the capped histogram
	Bins        int     // Histogram bin count
}

// New returns a report with default layout writing to dir.
func New(fs fsutil.FileSystem, dir string) *Report {
	return &Report{
		FS:          fs,
		Dir:         dir,
		ImageWidth:  DefaultImageWidth,
		ImageHeight: DefaultImageHeight,
		DistanceCap: tracklet.DefaultDistanceCap,
		Bins:        DefaultBins,
	}
}

func invertY(p *plot.Plot) {
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
}

func (r *Report) save(name string, wt io.WriterTo) (string, error) {
	path, err := security.OutputPath(r.Dir, name)
	if err != nil {
		return "", err
	}
	f, err := r.FS.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func (r *Report) savePlot(name string, p *plot.Plot, w, h vg.Length) (string, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return r.save(name, wt)
}

// Clusters writes clusters.png: the first joint of every row, one colour per
// tracklet. Rows whose first joint is missing are skipped, not drawn at
// (0, 0).
func (r *Report) Clusters(tracklets []tracklet.Tracklet) (string, error) {
	p := plot.New()
	p.Title.Text = "Midpoint of skeletons"
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"

	for i, t := range tracklets {
		pts := make(plotter.XYs, 0, len(t.Rows))
		for _, s := range t.Rows {
			if s.Joints() == 0 {
				continue
			}
			x, y := s.Joint(0)
			if x == 0 || y == 0 {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return "", err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("ID %d", t.ID), sc)
	}
	p.Legend.Top = true
	invertY(p)

	return r.savePlot(ClustersFile, p, 8*vg.Inch, 6*vg.Inch)
}

// Tracklet writes tracklet_%d.png: every detected joint of the tracklet
// coloured by frame, on axes fixed to the image size.
func (r *Report) Tracklet(t tracklet.Tracklet) (string, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("ID %d", t.ID)
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"

	var pts plotter.XYs
	var frames []float64
	for _, s := range t.Rows {
		for j := 0; j < s.Joints(); j++ {
			x, y := s.Joint(j)
			if x == 0 || y == 0 {
				continue
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
			frames = append(frames, float64(s.Frame))
		}
	}

	if len(pts) > 0 {
		first, last := t.FrameSpan()
		cm := moreland.SmoothBlueRed()
		cm.SetMin(float64(first))
		cm.SetMax(float64(last) + 1)

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return "", err
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			c, err := cm.At(frames[i])
			if err != nil {
				c = color.Black
			}
			return draw.GlyphStyle{Color: c, Radius: vg.Points(1), Shape: draw.CircleGlyph{}}
		}
		p.Add(sc)
	}

	p.X.Min, p.X.Max = 0, r.ImageWidth
	p.Y.Min, p.Y.Max = 0, r.ImageHeight
	invertY(p)

	return r.savePlot(TrackletFile(t.ID), p, 20*vg.Inch, 10*vg.Inch)
}

// Y range floor and ceiling of the log-count histogram.
const (
	logMinCount = 0.5
	logMaxCount = 10
)

func histogramPlot(title string, values []float64, bins int, logY bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance"
	p.Y.Label.Text = "Number of occurrences"
	if len(values) == 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, err
	}
	p.Add(h)
	if logY {
		h.LogY = true
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
		// Counts are at least 1; a flat or tiny sample would otherwise
		// collapse the range to a non-positive minimum.
		p.Y.Min = logMinCount
		if p.Y.Max < logMaxCount {
			p.Y.Max = logMaxCount
		}
	}
	return p, nil
}

// Distances writes dbg_distances.png: a histogram of every computed
// distance next to a log-count histogram of those below DistanceCap.
func (r *Report) Distances(distances []float64) (string, error) {
	full, err := histogramPlot("Histogram of distances", distances, r.Bins, false)
	if err != nil {
		return "", err
	}
	capped, err := histogramPlot("Capped-Log Histogram of distances", tracklet.Capped(distances, r.DistanceCap), r.Bins, true)
	if err != nil {
		return "", err
	}

	const w, h = 20 * vg.Inch, 10 * vg.Inch
	img := vgimg.New(w, h)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 1, Cols: 2, PadX: vg.Millimeter, PadY: vg.Millimeter, PadTop: vg.Points(2), PadBottom: vg.Points(2), PadLeft: vg.Points(2), PadRight: vg.Points(2)}
	plots := [][]*plot.Plot{{full, capped}}
	canvases := plot.Align(plots, tiles, dc)
	for j, p := range plots[0] {
		p.Draw(canvases[0][j])
	}

	return r.save(DistancesFile, vgimg.PngCanvas{Canvas: img})
}

// WriteAll renders clusters.png, one tracklet_%d.png per tracklet and
// dbg_distances.png, returning the written paths.
func (r *Report) WriteAll(tracklets []tracklet.Tracklet, distances []float64) ([]string, error) {
	if err := r.FS.MkdirAll(r.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", r.Dir, err)
	}

	var paths []string
	for _, t := range tracklets {
		path, err := r.Tracklet(t)
		if err != nil {
			return paths, fmt.Errorf("tracklet %d: %w", t.ID, err)
		}
		paths = append(paths, path)
	}

	path, err := r.Clusters(tracklets)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	path, err = r.Distances(distances)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	monitoring.Logf("wrote %d figures to %s", len(paths), r.Dir)
	return paths, nil
}
