package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/tracklets/internal/export"
	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/store"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

func listRuns(ctx context.Context, w io.Writer, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tSOURCE\tEPS\tMIN_OCC\tSLOT\tPOSES\tCLASSES\tTRACKLETS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%d\t%s\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.Source,
			r.Params.EpsSkel, r.Params.MinOccurrences, r.Params.FrameSlot,
			r.Poses, r.Classes, r.Tracklets)
	}
	return tw.Flush()
}

func findRun(ctx context.Context, st *store.Store, runID string) (store.Run, error) {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return store.Run{}, err
	}
	for _, r := range runs {
		if r.ID == runID {
			return r, nil
		}
	}
	return store.Run{}, fmt.Errorf("run %s: %w", runID, store.ErrNotFound)
}

// showTracklet prints one stored tracklet, row by row, with the distance
// of each row to the previous one under the run's frame-slot mode. When
// outDir is set the tracklet is also written as npz and csv.
func showTracklet(ctx context.Context, w io.Writer, st *store.Store, fs fsutil.FileSystem, runID string, id int, outDir string) error {
	run, err := findRun(ctx, st, runID)
	if err != nil {
		return err
	}
	t, err := st.LoadTracklet(ctx, runID, id)
	if err != nil {
		return err
	}

	first, last := t.FrameSpan()
	fmt.Fprintf(w, "run %s tracklet %d: %d poses, frames %d-%d\n", runID, id, t.Occurrences(), first, last)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tFRAME\tSTEP\tCOMMON")
	for i, sk := range t.Rows {
		step, common := "-", "-"
		if i > 0 {
			if d, n, ok := tracklet.Distance(t.Rows[i-1], sk, run.Params.FrameSlot); ok {
				step, common = fmt.Sprintf("%.2f", d), fmt.Sprint(n)
			} else {
				common = fmt.Sprint(n)
			}
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i, sk.Frame, step, common)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if outDir == "" {
		return nil
	}
	exporter, err := export.NewExporter(fs, outDir)
	if err != nil {
		return err
	}
	files, err := exporter.WriteTracklets([]tracklet.Tracklet{t}, true)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(w, "wrote", f)
	}
	return nil
}

func deleteRun(ctx context.Context, w io.Writer, st *store.Store, runID string) error {
	if err := st.DeleteRun(ctx, runID); err != nil {
		return err
	}
	fmt.Fprintf(w, "deleted run %s\n", runID)
	return nil
}

func printSchema(w io.Writer, st *store.Store) error {
	version, dirty, err := st.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "schema version %d", version)
	if dirty {
		fmt.Fprint(w, " (dirty)")
	}
	fmt.Fprintln(w)
	return nil
}
