// Command tracklet-sweep clusters one video for a grid of eps_skel and
// min_occurrences values and writes one CSV row per combination.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/pose"
	"github.com/banshee-data/tracklets/internal/tracklet"
	"github.com/banshee-data/tracklets/internal/tracklet/sweep"
)

func main() {
	input := flag.String("input", "./video_keypoints.zip", "Zip archive or directory of OpenPose JSON records")
	epsList := flag.String("eps", "10:100:10", "Comma-separated eps_skel values or range min:max:step")
	minOccList := flag.String("min-occ", "60", "Comma-separated min_occurrences values or range min:max:step")
	frameSlot := flag.String("frame-slot", string(tracklet.FrameSlotExclude), "Frame index handling in the distance: exclude or legacy")
	output := flag.String("output", "", "Output CSV filename (defaults to tracklet-sweep-<timestamp>.csv)")
	flag.Parse()

	epsValues, err := sweep.ParseEpsValues(*epsList)
	if err != nil {
		log.Fatalf("Invalid -eps: %v", err)
	}
	minOccValues, err := sweep.ParseMinOccurrencesValues(*minOccList)
	if err != nil {
		log.Fatalf("Invalid -min-occ: %v", err)
	}
	mode := tracklet.FrameSlotMode(*frameSlot)
	if err := (tracklet.Params{EpsSkel: 1, FrameSlot: mode}).Validate(); err != nil {
		log.Fatalf("Invalid -frame-slot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fs := fsutil.OSFileSystem{}
	src, err := pose.OpenSource(fs, *input)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	features, frames, err := pose.Load(ctx, src)
	if err != nil {
		log.Fatalf("Failed to load poses from %s: %v", *input, err)
	}
	log.Printf("Loaded %d poses from %d frames", len(features), frames)
	log.Printf("Parameter combinations: %d (eps: %d, min_occurrences: %d)",
		len(epsValues)*len(minOccValues), len(epsValues), len(minOccValues))

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("tracklet-sweep-%s.csv", time.Now().Format("20060102-150405"))
	}
	f, err := fs.Create(filename)
	if err != nil {
		log.Fatalf("Could not create output file %s: %v", filename, err)
	}
	defer f.Close()

	w := sweep.NewCSVWriter(f)
	if err := w.WriteHeader(); err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}

	monitoring.SetLogger(nil)
	runner := sweep.NewRunner(mode)
	runner.Progress = func(done, total int, row sweep.Row) {
		log.Printf("[%d/%d] eps=%g min_occ=%d -> %d tracklets, %d unclassified (%v)",
			done, total, row.EpsSkel, row.MinOccurrences, row.Tracklets, row.Unclassified, row.Elapsed.Round(time.Millisecond))
		if err := w.WriteRow(row); err != nil {
			log.Printf("Failed to write row: %v", err)
		}
	}

	rows, err := runner.Run(ctx, features, epsValues, minOccValues)
	if flushErr := w.Flush(); flushErr != nil {
		log.Printf("Failed to flush %s: %v", filename, flushErr)
	}
	if err != nil {
		log.Fatalf("Sweep stopped after %d combinations: %v", len(rows), err)
	}
	log.Printf("Sweep complete: %d rows written to %s", len(rows), filename)
}
