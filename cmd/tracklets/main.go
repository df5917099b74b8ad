// Command tracklets groups the OpenPose detections of one video into
// per-person tracklets and exports them as npz archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/tracklets/internal/config"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/pipeline"
	"github.com/banshee-data/tracklets/internal/pose"
	"github.com/banshee-data/tracklets/internal/tracklet"
	"github.com/banshee-data/tracklets/internal/version"
)

// Config holds the command line settings. Flags left unset keep the
// values of the config file.
type Config struct {
	Input      string
	Output     string
	ConfigPath string
	DBPath     string
	Quiet      bool
	Verbose    bool
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.Input, "input", "./video_keypoints.zip", "Zip archive or directory of OpenPose JSON records")
	flag.StringVar(&cfg.Output, "output", "./tracklets", "Output directory for the tracklet archives and figures")
	flag.StringVar(&cfg.ConfigPath, "config", "", "JSON run config (defaults apply to omitted fields)")
	flag.StringVar(&cfg.DBPath, "db", "", "SQLite database to record the run in (disabled when empty)")
	flag.BoolVar(&cfg.Quiet, "q", false, "Suppress progress output")
	flag.BoolVar(&cfg.Quiet, "quiet", false, "Suppress progress output")
	flag.BoolVar(&cfg.Verbose, "v", false, "Trace every clustering pass")

	minOcc := flag.Int("min-occurrences", tracklet.DefaultMinOccurrences, "Minimum poses for a tracklet to be kept")
	eps := flag.Float64("eps", tracklet.DefaultEpsSkel, "Maximum per-joint RMS distance between chained poses (px)")
	frameSlot := flag.String("frame-slot", string(tracklet.FrameSlotExclude), "Frame index handling in the distance: exclude or legacy")
	plots := flag.Bool("plots", true, "Write clusters.png, tracklet_N.png and dbg_distances.png")
	html := flag.Bool("html", false, "Write report.html")
	csvOut := flag.Bool("csv", false, "Also write each tracklet as CSV")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tracklets", version.String())
		return
	}

	runCfg, err := loadRunConfig(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Explicit flags override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "min-occurrences":
			runCfg.MinOccurrences = minOcc
		case "eps":
			runCfg.EpsSkel = eps
		case "frame-slot":
			runCfg.FrameSlot = frameSlot
		case "plots":
			runCfg.PlotInfo = plots
		case "html":
			runCfg.HTMLReport = html
		case "csv":
			runCfg.ExportCSV = csvOut
		}
	})

	var out, trace io.Writer = os.Stdout, nil
	if cfg.Verbose {
		trace = os.Stderr
	}
	if cfg.Quiet {
		out, trace = nil, nil
	}
	pipeline.SetLogWriters(out, out, trace)
	monitoring.SetWriter(trace, "[tracklets] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = pipeline.Run(ctx, pipeline.Options{
		Input:  cfg.Input,
		Output: cfg.Output,
		Config: runCfg,
		DBPath: cfg.DBPath,
	})
	if errors.Is(err, pose.ErrNoPoses) {
		return
	}
	if err != nil {
		log.Fatalf("tracklets: %v", err)
	}
}

// loadRunConfig loads path, or the canonical defaults file when path is
// empty. A missing defaults file falls back to the built-in defaults.
func loadRunConfig(path string) (*config.TrackletsConfig, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg, _, err := config.LoadDefaultConfig()
	if errors.Is(err, os.ErrNotExist) {
		return config.EmptyConfig(), nil
	}
	return cfg, err
}
