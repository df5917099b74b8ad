package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Headers returns the CSV column names written by CSVWriter.
func Headers() []string {
	return []string{
		"eps_skel", "min_occurrences", "classes", "tracklets", "kept", "unclassified",
		"distances", "distance_p50", "distance_p90", "below_eps", "elapsed_ms",
	}
}

// CSVWriter wraps csv.Writer with methods for sweep output.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a CSVWriter writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the header line.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(Headers())
}

// WriteRow writes one sweep row.
func (c *CSVWriter) WriteRow(row Row) error {
	return c.w.Write([]string{
		strconv.FormatFloat(row.EpsSkel, 'f', -1, 64),
		strconv.Itoa(row.MinOccurrences),
		strconv.Itoa(row.Classes),
		strconv.Itoa(row.Tracklets),
		strconv.Itoa(row.Kept),
		strconv.Itoa(row.Unclassified),
		strconv.Itoa(row.Distances.Count),
		fmt.Sprintf("%.3f", row.Distances.P50),
		fmt.Sprintf("%.3f", row.Distances.P90),
		strconv.Itoa(row.Distances.BelowEps),
		strconv.FormatInt(row.Elapsed.Milliseconds(), 10),
	})
}

// WriteAll writes the header followed by every row and flushes.
func (c *CSVWriter) WriteAll(rows []Row) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, row := range rows {
		if err := c.WriteRow(row); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes buffered output and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
