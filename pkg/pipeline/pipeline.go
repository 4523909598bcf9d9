// Package pipeline provides the load → diff → render pipeline for rankbars.
//
// The CLI and the HTTP server share this package so that both read
// snapshots, compute period diffs and produce artifacts the same way,
// including caching.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read the snapshot of a year and of its previous period from a
//     [Source] (CSV directory or document store)
//  2. Diff: compute entries and exits between the two periods
//  3. Render: produce artifacts (SVG, JSON, PNG, PDF, rank-flow diagram)
//
// # Usage
//
//	runner := pipeline.NewRunner(io.NewDataset("data", 2015, 2025), c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Year:    2024,
//	    Formats: []string{"svg", "json"},
//	})
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	period, err := runner.Period(ctx, 2024)
//	artifacts, err := pipeline.RenderPeriod(ctx, period, opts)
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rankbars/pkg/cache"
	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/diff"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"

	// FormatFlow is the Graphviz rank-flow diagram of the period, as SVG.
	FormatFlow = "flow"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
	FormatFlow: true,
}

// Cache lifetimes per entry kind.
const (
	TTLSnapshot = 10 * time.Minute
	TTLArtifact = 24 * time.Hour
)

// DefaultScale is the PNG pixel density multiplier.
const DefaultScale = 2.0

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	Year    int      `json:"year"`
	Formats []string `json:"formats,omitempty"`

	// Width is the viewport width; it is clamped to the chart minimum.
	Width float64 `json:"width,omitempty"`

	// Theme is a built-in theme name or a TOML theme file path.
	Theme string `json:"theme,omitempty"`

	// Animate starts the SVG transition from the previous period instead
	// of entering every row.
	Animate bool `json:"animate,omitempty"`

	// Static writes the settled chart without animations.
	Static bool `json:"static,omitempty"`

	// Interactive embeds the click pass-through script in SVG output.
	Interactive bool `json:"interactive,omitempty"`

	Scale   float64 `json:"scale,omitempty"`
	Refresh bool    `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger  `json:"-"`
	Chart  config.Chart `json:"-"`

	validated bool
}

// Period is the loaded input of one year: its snapshot, the previous
// period's snapshot and the diff between them.
type Period struct {
	Year     int
	Current  snapshot.Snapshot
	Previous snapshot.Snapshot
	Diff     diff.Result
}

// NewPeriod computes the diff of current against previous, keeping at most
// maxEntries entries and exits.
func NewPeriod(year int, current, previous snapshot.Snapshot, maxEntries int) *Period {
	return &Period{
		Year:     year,
		Current:  current,
		Previous: previous,
		Diff:     diff.Compute(current, previous, diff.WithMax(maxEntries)),
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Period *Period

	// SnapshotHash is the content hash of the current snapshot.
	SnapshotHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Records    int
	Entries    int
	Exits      int
	LoadTime   time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LoadHit   bool // Whether both snapshots came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf, json, flow)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAndSetDefaults checks the options and fills in defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Year <= 0 {
		return fmt.Errorf("year is required")
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForRender validates formats and applies render defaults without
// requiring a year.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Chart == (config.Chart{}) {
		o.Chart = config.DefaultChart()
	}
	o.Chart = o.Chart.Normalize()
	o.Width = max(o.Width, o.Chart.MinViewportWidth)
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// ArtifactKeyOpts returns the cache key options for one format. prevHash
// is the hash of the previous snapshot and only matters for animated SVG.
func (o *Options) ArtifactKeyOpts(format, prevHash string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format:      format,
		Width:       o.Width,
		Theme:       o.Theme,
		Static:      o.Static,
		Interactive: o.Interactive,
		Chart:       cache.HashJSON(o.Chart),
	}
	switch format {
	case FormatPNG:
		k.Scale = o.Scale
	case FormatSVG:
		if o.Animate && !o.Static {
			k.PreviousHash = prevHash
		}
	case FormatJSON, FormatFlow:
		k.PreviousHash = prevHash
	}
	return k
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}
