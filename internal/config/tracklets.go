package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/tracklets/internal/tracklet"
)

// DefaultConfigPath is the path to the canonical defaults file.
// This is the single source of truth for all default run settings.
const DefaultConfigPath = "config/tracklets.defaults.json"

// maxFileSize bounds the size of a config file.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// TrackletsConfig holds the settings of a clustering run. Nil fields fall
// back to the defaults returned by the Get* methods, so partial files are
// safe.
type TrackletsConfig struct {
	// Clustering params
	MinOccurrences *int     `json:"min_occurrences,omitempty"`
	EpsSkel        *float64 `json:"eps_skel,omitempty"`
	FrameSlot      *string  `json:"frame_slot,omitempty"` // "exclude" or "legacy"

	// Output params
	PlotInfo   *bool `json:"plot_info,omitempty"`
	HTMLReport *bool `json:"html_report,omitempty"`
	ExportCSV  *bool `json:"export_csv,omitempty"`

	// Figure params
	ImageWidth    *float64 `json:"image_width,omitempty"`
	ImageHeight   *float64 `json:"image_height,omitempty"`
	DistanceCap   *float64 `json:"distance_cap,omitempty"`
	HistogramBins *int     `json:"histogram_bins,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a TrackletsConfig with all fields set to nil.
func EmptyConfig() *TrackletsConfig {
	return &TrackletsConfig{}
}

// DefaultConfig returns a TrackletsConfig with every field set to its
// default value.
func DefaultConfig() *TrackletsConfig {
	c := EmptyConfig()
	return &TrackletsConfig{
		MinOccurrences: ptrInt(c.GetMinOccurrences()),
		EpsSkel:        ptrFloat64(c.GetEpsSkel()),
		FrameSlot:      ptrString(string(c.GetFrameSlot())),
		PlotInfo:       ptrBool(c.GetPlotInfo()),
		HTMLReport:     ptrBool(c.GetHTMLReport()),
		ExportCSV:      ptrBool(c.GetExportCSV()),
		ImageWidth:     ptrFloat64(c.GetImageWidth()),
		ImageHeight:    ptrFloat64(c.GetImageHeight()),
		DistanceCap:    ptrFloat64(c.GetDistanceCap()),
		HistogramBins:  ptrInt(c.GetHistogramBins()),
	}
}

// LoadConfig loads a TrackletsConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadConfig(path string) (*TrackletsConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository
// root. It returns the path it loaded.
func LoadDefaultConfig() (*TrackletsConfig, string, error) {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/, cmd/tracklets/
		"../../../" + DefaultConfigPath,    // from internal/tracklet/sweep/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	var firstErr error
	for _, path := range candidates {
		cfg, err := LoadConfig(path)
		if err == nil {
			return cfg, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, "", firstErr
	}
	return nil, "", fmt.Errorf("cannot find %s: %w", DefaultConfigPath, os.ErrNotExist)
}

// Validate checks that the configuration values are valid.
func (c *TrackletsConfig) Validate() error {
	if c.MinOccurrences != nil && *c.MinOccurrences < 0 {
		return fmt.Errorf("min_occurrences must be non-negative, got %d", *c.MinOccurrences)
	}
	if c.EpsSkel != nil && !(*c.EpsSkel > 0) {
		return fmt.Errorf("eps_skel must be positive, got %f", *c.EpsSkel)
	}
	if c.FrameSlot != nil {
		switch tracklet.FrameSlotMode(*c.FrameSlot) {
		case tracklet.FrameSlotExclude, tracklet.FrameSlotLegacy:
		default:
			return fmt.Errorf("frame_slot must be %q or %q, got %q", tracklet.FrameSlotExclude, tracklet.FrameSlotLegacy, *c.FrameSlot)
		}
	}
	if c.ImageWidth != nil && !(*c.ImageWidth > 0) {
		return fmt.Errorf("image_width must be positive, got %f", *c.ImageWidth)
	}
	if c.ImageHeight != nil && !(*c.ImageHeight > 0) {
		return fmt.Errorf("image_height must be positive, got %f", *c.ImageHeight)
	}
	if c.DistanceCap != nil && !(*c.DistanceCap > 0) {
		return fmt.Errorf("distance_cap must be positive, got %f", *c.DistanceCap)
	}
	if c.HistogramBins != nil && *c.HistogramBins <= 0 {
		return fmt.Errorf("histogram_bins must be positive, got %d", *c.HistogramBins)
	}
	return nil
}

// ToParams returns the clustering parameters of the config.
func (c *TrackletsConfig) ToParams() tracklet.Params {
	return tracklet.Params{
		MinOccurrences: c.GetMinOccurrences(),
		EpsSkel:        c.GetEpsSkel(),
		FrameSlot:      c.GetFrameSlot(),
	}
}

// GetMinOccurrences returns the min_occurrences value or the default.
func (c *TrackletsConfig) GetMinOccurrences() int {
	if c.MinOccurrences == nil {
		return tracklet.DefaultMinOccurrences
	}
	return *c.MinOccurrences
}

// GetEpsSkel returns the eps_skel value or the default.
func (c *TrackletsConfig) GetEpsSkel() float64 {
	if c.EpsSkel == nil {
		return tracklet.DefaultEpsSkel
	}
	return *c.EpsSkel
}

// GetFrameSlot returns the frame_slot value or the default.
func (c *TrackletsConfig) GetFrameSlot() tracklet.FrameSlotMode {
	if c.FrameSlot == nil || *c.FrameSlot == "" {
		return tracklet.FrameSlotExclude
	}
	return tracklet.FrameSlotMode(*c.FrameSlot)
}

// GetPlotInfo returns the plot_info value or the default.
func (c *TrackletsConfig) GetPlotInfo() bool {
	if c.PlotInfo == nil {
		return true
	}
	return *c.PlotInfo
}

// GetHTMLReport returns the html_report value or the default.
func (c *TrackletsConfig) GetHTMLReport() bool {
	if c.HTMLReport == nil {
		return false
	}
	return *c.HTMLReport
}

// GetExportCSV returns the export_csv value or the default.
func (c *TrackletsConfig) GetExportCSV() bool {
	if c.ExportCSV == nil {
		return false
	}
	return *c.ExportCSV
}

// GetImageWidth returns the image_width value or the default.
func (c *TrackletsConfig) GetImageWidth() float64 {
	if c.ImageWidth == nil {
		return 640
	}
	return *c.ImageWidth
}

// GetImageHeight returns the image_height value or the default.
func (c *TrackletsConfig) GetImageHeight() float64 {
	if c.ImageHeight == nil {
		return 480
	}
	return *c.ImageHeight
}

// GetDistanceCap returns the distance_cap value or the default.
func (c *TrackletsConfig) GetDistanceCap() float64 {
	if c.DistanceCap == nil {
		return tracklet.DefaultDistanceCap
	}
	return *c.DistanceCap
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *TrackletsConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return 200
	}
	return *c.HistogramBins
}
