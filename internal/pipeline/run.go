package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/tracklets/internal/config"
	"github.com/banshee-data/tracklets/internal/export"
	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/pose"
	"github.com/banshee-data/tracklets/internal/report"
	"github.com/banshee-data/tracklets/internal/security"
	"github.com/banshee-data/tracklets/internal/store"
	"github.com/banshee-data/tracklets/internal/timeutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
	"github.com/banshee-data/tracklets/internal/tracklet/debug"
	"github.com/banshee-data/tracklets/internal/version"
)

// Options configures one run.
type Options struct {
	Input  string                  // Zip archive or directory of OpenPose JSON records
	Output string                  // Output directory
	Config *config.TrackletsConfig // Nil means defaults
	DBPath string                  // SQLite database; empty disables persistence

	// FS defaults to the OS filesystem. The store always uses the OS.
	FS fsutil.FileSystem
	// Clusterer overrides the greedy clusterer built from Config.
	Clusterer tracklet.ClustererInterface
	// Clock defaults to the wall clock.
	Clock timeutil.Clock
}

// TrackletSummary describes one exported tracklet.
type TrackletSummary struct {
	ID          int `json:"id"`
	Occurrences int `json:"occurrences"`
	FirstFrame  int `json:"first_frame"`
	LastFrame   int `json:"last_frame"`
}

// ParamsSummary records the clustering parameters of a run.
type ParamsSummary struct {
	MinOccurrences int     `json:"min_occurrences"`
	EpsSkel        float64 `json:"eps_skel"`
	FrameSlot      string  `json:"frame_slot"`
}

// Summary is the outcome of a run, written to summary.json.
type Summary struct {
	Version      string                   `json:"version"`
	Source       string                   `json:"source"`
	Input        string                   `json:"input"`
	Output       string                   `json:"output"`
	RunID        string                   `json:"run_id,omitempty"`
	Params       ParamsSummary            `json:"params"`
	Frames       int                      `json:"frames"`
	Poses        int                      `json:"poses"`
	Joints       int                      `json:"joints"`
	Classes      int                      `json:"classes"`
	Passes       int                      `json:"passes"`
	Compared     int                      `json:"compared"`
	Unclassified int                      `json:"unclassified"`
	Tracklets    []TrackletSummary        `json:"tracklets"`
	Distances    tracklet.DistanceSummary `json:"distances"`
	Files        []string                 `json:"files"`
	ElapsedMS    int64                    `json:"elapsed_ms"`
}

// Run reads the input, clusters its poses into tracklets and writes every
// output. It returns pose.ErrNoPoses, without writing anything, when the
// input holds no skeleton.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	clock := timeutil.OrReal(opts.Clock)
	start := clock.Now()

	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	params := cfg.ToParams()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if opts.Input == "" || opts.Output == "" {
		return nil, errors.New("input and output are required")
	}
	fs := opts.FS
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}

	src, err := pose.OpenSource(fs, opts.Input)
	if err != nil {
		return nil, err
	}
	features, frames, err := pose.Load(ctx, src)
	if err != nil {
		if errors.Is(err, pose.ErrNoPoses) {
			opsf("No poses found in %d frames of %s", frames, opts.Input)
		}
		return nil, err
	}
	if err := features.Validate(); err != nil {
		return nil, fmt.Errorf("features of %s: %w", opts.Input, err)
	}
	diagf("loaded %d poses of %d joints from %d frames", len(features), features.Joints(), frames)

	clusterer := opts.Clusterer
	var collector *debug.Collector
	if clusterer == nil {
		c := tracklet.NewClusterer(params)
		if traceLogger != nil {
			collector = debug.NewCollector()
			collector.SetEnabled(true)
			c.SetCollector(collector)
		}
		clusterer = c
	} else {
		clusterer.SetParams(params)
	}

	res, err := clusterer.Cluster(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("cluster: %w", err)
	}
	traceClasses(collector)

	tracklets := tracklet.Group(features, res.Labels, params.MinOccurrences)
	counts := tracklet.Counts(res.Labels)
	opsf("%d tracklets found. Exporting them in independent files", res.Labels.Max())

	summary := &Summary{
		Version: version.Version,
		Source:  security.SanitizeFilename(filepath.Base(opts.Input)),
		Input:   opts.Input,
		Output:  opts.Output,
		Params: ParamsSummary{
			MinOccurrences: params.MinOccurrences,
			EpsSkel:        params.EpsSkel,
			FrameSlot:      string(params.FrameSlot),
		},
		Frames:       frames,
		Poses:        len(features),
		Joints:       features.Joints(),
		Classes:      res.Classes,
		Passes:       res.Passes,
		Compared:     res.Compared,
		Unclassified: counts[0],
		Tracklets:    make([]TrackletSummary, 0, len(tracklets)),
		Distances:    tracklet.SummariseDistances(res.Distances, params.EpsSkel, cfg.GetDistanceCap()),
	}
	for _, t := range tracklets {
		first, last := t.FrameSpan()
		diagf("Saving Id #%d: %d occurrences (frames %d-%d)", t.ID, t.Occurrences(), first, last)
		summary.Tracklets = append(summary.Tracklets, TrackletSummary{
			ID: t.ID, Occurrences: t.Occurrences(), FirstFrame: first, LastFrame: last,
		})
	}
	diagf("distances: n=%d p50=%.1f p90=%.1f below eps=%d",
		summary.Distances.Count, summary.Distances.P50, summary.Distances.P90, summary.Distances.BelowEps)

	exporter, err := export.NewExporter(fs, opts.Output)
	if err != nil {
		return nil, err
	}
	files, err := exporter.WriteTracklets(tracklets, cfg.GetExportCSV())
	if err != nil {
		return nil, err
	}
	summary.Files = append(summary.Files, files...)

	if cfg.GetPlotInfo() || cfg.GetHTMLReport() {
		rep := report.New(fs, opts.Output)
		rep.ImageWidth = cfg.GetImageWidth()
		rep.ImageHeight = cfg.GetImageHeight()
		rep.DistanceCap = cfg.GetDistanceCap()
		rep.Bins = cfg.GetHistogramBins()

		if cfg.GetPlotInfo() {
			figures, err := rep.WriteAll(tracklets, res.Distances)
			if err != nil {
				return nil, fmt.Errorf("report: %w", err)
			}
			summary.Files = append(summary.Files, figures...)
		}
		if cfg.GetHTMLReport() {
			page, err := rep.HTML(summary.Source, tracklets, res.Distances)
			if err != nil {
				return nil, fmt.Errorf("report: %w", err)
			}
			summary.Files = append(summary.Files, page)
		}
	}

	if opts.DBPath != "" {
		runID, err := persist(ctx, opts.DBPath, clock, summary, params, tracklets)
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
		diagf("stored run %s in %s", runID, opts.DBPath)
	}

	summary.ElapsedMS = clock.Since(start).Milliseconds()
	path, err := exporter.WriteSummary(summary)
	if err != nil {
		return nil, err
	}
	summary.Files = append(summary.Files, path)

	opsf("exported %d tracklets from %d poses in %dms", len(tracklets), len(features), summary.ElapsedMS)
	return summary, nil
}

func persist(ctx context.Context, dbPath string, clock timeutil.Clock, summary *Summary, params tracklet.Params, tracklets []tracklet.Tracklet) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("open store %s: %w", dbPath, err)
	}
	defer st.Close()
	st.Clock = clock

	run := &store.Run{
		Source:       summary.Source,
		Params:       params,
		Frames:       summary.Frames,
		Poses:        summary.Poses,
		Joints:       summary.Joints,
		Classes:      summary.Classes,
		Passes:       summary.Passes,
		Unclassified: summary.Unclassified,
		Distances:    summary.Distances,
		Version:      summary.Version,
	}
	return st.SaveRun(ctx, run, tracklets)
}

func traceClasses(collector *debug.Collector) {
	if collector == nil || traceLogger == nil {
		return
	}
	classes := collector.Emit()
	for _, c := range classes {
		tracef("class %d: seed=%d candidates=%d accepted=%d", c.ClassID, c.Seed, c.Candidates, c.Accepted)
	}
	counts := debug.DecisionCounts(classes)
	for _, d := range []debug.Decision{debug.Accepted, debug.RejectedDistance, debug.RejectedSameFrame, debug.SkippedOverlap} {
		tracef("decision %s: %d", d, counts[d])
	}
}
