// Package export writes tracklets and the run summary to an output
// directory.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/banshee-data/tracklets/internal/fsutil"
	"github.com/banshee-data/tracklets/internal/monitoring"
	"github.com/banshee-data/tracklets/internal/security"
	"github.com/banshee-data/tracklets/internal/tracklet"
)

// SummaryFile is the name of the run summary written by WriteSummary.
const SummaryFile = "summary.json"

// NPZName returns the archive name of a tracklet.
func NPZName(id int) string { return fmt.Sprintf("ID_%03d.npz", id) }

// CSVName returns the CSV name of a tracklet.
func CSVName(id int) string { return fmt.Sprintf("ID_%03d.csv", id) }

// Exporter writes into Dir through FS.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
}

// NewExporter returns an exporter writing to dir, creating it if needed.
func NewExporter(fs fsutil.FileSystem, dir string) (*Exporter, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Exporter{FS: fs, Dir: dir}, nil
}

// TrackletMatrix lays out the tracklet rows as the raw feature vectors:
// the coordinates followed by the frame index.
func TrackletMatrix(t tracklet.Tracklet) Matrix {
	cols := 2*t.Rows.Joints() + 1
	m := Matrix{Rows: len(t.Rows), Cols: cols, Data: make([]float64, 0, len(t.Rows)*cols)}
	for _, s := range t.Rows {
		m.Data = append(m.Data, s.Vector()...)
	}
	return m
}

func (e *Exporter) write(name string, data []byte) (string, error) {
	path, err := security.OutputPath(e.Dir, name)
	if err != nil {
		return "", err
	}
	if e.FS.Exists(path) {
		monitoring.Logf("replacing %s", path)
	}
	if err := e.FS.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// WriteNPZ writes ID_%03d.npz holding the tracklet rows under "data".
func (e *Exporter) WriteNPZ(t tracklet.Tracklet) (string, error) {
	var buf bytes.Buffer
	if err := WriteNPZArchive(&buf, TrackletMatrix(t)); err != nil {
		return "", fmt.Errorf("tracklet %d: %w", t.ID, err)
	}
	return e.write(NPZName(t.ID), buf.Bytes())
}

// WriteCSV writes ID_%03d.csv with a frame,x0,y0,... header.
func (e *Exporter) WriteCSV(t tracklet.Tracklet) (string, error) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	w := csv.NewWriter(bw)

	joints := t.Rows.Joints()
	header := make([]string, 0, 2*joints+1)
	header = append(header, "frame")
	for j := 0; j < joints; j++ {
		header = append(header, "x"+strconv.Itoa(j), "y"+strconv.Itoa(j))
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	record := make([]string, len(header))
	for _, s := range t.Rows {
		record[0] = strconv.Itoa(s.Frame)
		for i, c := range s.Coords {
			record[i+1] = strconv.FormatFloat(c, 'f', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	return e.write(CSVName(t.ID), buf.Bytes())
}

// WriteTracklets writes every tracklet as npz, and as CSV when withCSV is
// set. It returns the written paths in order.
func (e *Exporter) WriteTracklets(tracklets []tracklet.Tracklet, withCSV bool) ([]string, error) {
	var paths []string
	for _, t := range tracklets {
		p, err := e.WriteNPZ(t)
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
		if withCSV {
			p, err := e.WriteCSV(t)
			if err != nil {
				return paths, err
			}
			paths = append(paths, p)
		}
	}
	monitoring.Logf("exported %d tracklets to %s", len(tracklets), e.Dir)
	return paths, nil
}

// WriteSummary writes v as indented JSON to summary.json.
func (e *Exporter) WriteSummary(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return e.write(SummaryFile, append(data, '\n'))
}
