// Package store persists clustering runs and their tracklets in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/tracklets/internal/timeutil"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

// ErrNotFound is returned when a run or tracklet does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the tracklet database.
type Store struct {
	*sql.DB
	Clock timeutil.Clock // Stamps new runs
}

// Open opens (creating if needed) the database at path and applies the
// embedded migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure %s: %w", path, err)
	}

	s := &Store{DB: db, Clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Run is one clustering run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Source       string
	Params       tracklet.Params
	Frames       int
	Poses        int
	Joints       int
	Classes      int
	Passes       int
	Unclassified int
	Tracklets    int // Filled by ListRuns
	Distances    tracklet.DistanceSummary
	Version      string
}

// SaveRun stores run and its tracklets in one transaction and returns the
// new run id. run.ID and run.CreatedAt are assigned when empty.
func (s *Store) SaveRun(ctx context.Context, run *Run, tracklets []tracklet.Tracklet) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = timeutil.OrReal(s.Clock).Now().UTC()
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracklet_runs (
			run_id, created_at, source, min_occurrences, eps_skel, frame_slot,
			frames, poses, joints, classes, passes, unclassified,
			distance_count, distance_p50, distance_p90, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.Source,
		run.Params.MinOccurrences, run.Params.EpsSkel, string(run.Params.FrameSlot),
		run.Frames, run.Poses, run.Joints, run.Classes, run.Passes, run.Unclassified,
		run.Distances.Count, run.Distances.P50, run.Distances.P90, run.Version,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insTracklet, err := tx.PrepareContext(ctx, `
		INSERT INTO tracklets (run_id, tracklet_id, occurrences, first_frame, last_frame)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer insTracklet.Close()

	insPose, err := tx.PrepareContext(ctx, `
		INSERT INTO tracklet_poses (run_id, tracklet_id, row_index, frame, coords)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer insPose.Close()

	for _, t := range tracklets {
		first, last := t.FrameSpan()
		if _, err := insTracklet.ExecContext(ctx, run.ID, t.ID, t.Occurrences(), first, last); err != nil {
			return "", fmt.Errorf("insert tracklet %d: %w", t.ID, err)
		}
		for i, sk := range t.Rows {
			coords, err := json.Marshal(sk.Coords)
			if err != nil {
				return "", err
			}
			if _, err := insPose.ExecContext(ctx, run.ID, t.ID, i, sk.Frame, string(coords)); err != nil {
				return "", fmt.Errorf("insert tracklet %d row %d: %w", t.ID, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	run.Tracklets = len(tracklets)
	return run.ID, nil
}

// ListRuns returns every run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT r.run_id, r.created_at, r.source, r.min_occurrences, r.eps_skel, r.frame_slot,
		       r.frames, r.poses, r.joints, r.classes, r.passes, r.unclassified,
		       r.distance_count, r.distance_p50, r.distance_p90, r.version,
		       (SELECT COUNT(*) FROM tracklets t WHERE t.run_id = r.run_id)
		FROM tracklet_runs r
		ORDER BY r.created_at DESC, r.run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created, slot string
		if err := rows.Scan(
			&r.ID, &created, &r.Source, &r.Params.MinOccurrences, &r.Params.EpsSkel, &slot,
			&r.Frames, &r.Poses, &r.Joints, &r.Classes, &r.Passes, &r.Unclassified,
			&r.Distances.Count, &r.Distances.P50, &r.Distances.P90, &r.Version,
			&r.Tracklets,
		); err != nil {
			return nil, err
		}
		r.Params.FrameSlot = tracklet.FrameSlotMode(slot)
		r.Distances.EpsSkelUsed = r.Params.EpsSkel
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("run %s: created_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadTracklet returns the rows of one tracklet of a run.
func (s *Store) LoadTracklet(ctx context.Context, runID string, id int) (tracklet.Tracklet, error) {
	var occurrences int
	err := s.QueryRowContext(ctx,
		`SELECT occurrences FROM tracklets WHERE run_id = ? AND tracklet_id = ?`, runID, id,
	).Scan(&occurrences)
	if errors.Is(err, sql.ErrNoRows) {
		return tracklet.Tracklet{}, fmt.Errorf("run %s tracklet %d: %w", runID, id, ErrNotFound)
	}
	if err != nil {
		return tracklet.Tracklet{}, err
	}

	rows, err := s.QueryContext(ctx, `
		SELECT frame, coords FROM tracklet_poses
		WHERE run_id = ? AND tracklet_id = ?
		ORDER BY row_index`, runID, id)
	if err != nil {
		return tracklet.Tracklet{}, err
	}
	defer rows.Close()

	t := tracklet.Tracklet{ID: id, Rows: make(tracklet.Features, 0, occurrences)}
	for rows.Next() {
		var sk tracklet.Skeleton
		var coords string
		if err := rows.Scan(&sk.Frame, &coords); err != nil {
			return tracklet.Tracklet{}, err
		}
		if err := json.Unmarshal([]byte(coords), &sk.Coords); err != nil {
			return tracklet.Tracklet{}, fmt.Errorf("run %s tracklet %d: coords: %w", runID, id, err)
		}
		t.Rows = append(t.Rows, sk)
	}
	return t, rows.Err()
}

// DeleteRun removes a run and, through the foreign keys, its tracklets.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM tracklet_runs WHERE run_id = ?`, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}
