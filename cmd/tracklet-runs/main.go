// Command tracklet-runs inspects the run database written by tracklets -db:
// it lists runs, prints or re-exports one stored tracklet, deletes runs and
// reports or rolls back the schema.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/store"
)

func main() {
	dbPath := flag.String("db", "tracklets.db", "SQLite database written by tracklets -db")
	runID := flag.String("run", "", "Run id of the tracklet to show")
	trackletID := flag.Int("tracklet", 0, "Tracklet id to show (with -run)")
	output := flag.String("output", "", "Re-export the shown tracklet as npz and csv into this directory")
	deleteID := flag.String("delete", "", "Delete the run with this id")
	schema := flag.Bool("schema", false, "Print the schema version")
	migrateDown := flag.Bool("migrate-down", false, "Roll back every migration (drops all runs)")
	verbose := flag.Bool("v", false, "Log migrations")
	flag.Parse()

	if *verbose {
		monitoring.SetWriter(os.Stderr, "[tracklet-runs] ")
	} else {
		monitoring.SetLogger(nil)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *dbPath, err)
	}
	defer st.Close()

	ctx := context.Background()
	w := os.Stdout

	switch {
	case *migrateDown:
		err = st.MigrateDown()
	case *schema:
		err = printSchema(w, st)
	case *deleteID != "":
		err = deleteRun(ctx, w, st, *deleteID)
	case *runID != "":
		err = showTracklet(ctx, w, st, fsutil.OSFileSystem{}, *runID, *trackletID, *output)
	default:
		err = listRuns(ctx, w, st)
	}
	if err != nil {
		log.Fatalf("tracklet-runs: %v", err)
	}
}
