// Package config defines the chart configuration surface and the layered
// process configuration for the CLI and server.
//
// Chart settings are plain values consumed by the scale, layout, and engine
// packages. Process settings (listen address, store and cache endpoints)
// are only read by internal/cli and pkg/server.
package config

import (
	"time"
)

// Margins holds the chart margins in pixels.
type Margins struct {
	Top    float64 `koanf:"top" json:"top"`
	Right  float64 `koanf:"right" json:"right"`
	Bottom float64 `koanf:"bottom" json:"bottom"`
	Left   float64 `koanf:"left" json:"left"`
}

// Chart is the configuration surface of the bar chart.
type Chart struct {
	// MinViewportWidth clamps the viewport so layouts never degenerate.
	MinViewportWidth float64 `koanf:"min_viewport_width"`

	// RowHeight is the vertical step of one bar band.
	RowHeight float64 `koanf:"row_height"`

	// BandPadding is the fraction of RowHeight left empty between bars.
	BandPadding float64 `koanf:"band_padding"`

	Margins Margins `koanf:"margins"`

	// MaxEntriesExits caps the entries and exits lists of a diff.
	MaxEntriesExits int `koanf:"max_entries_exits"`

	// TransitionDuration is the duration of every geometry transition.
	TransitionDuration time.Duration `koanf:"transition_duration"`

	// EnterDelay postpones bar growth of entering rows until they
	// have started fading in.
	EnterDelay time.Duration `koanf:"enter_delay"`

	// Ticks is the approximate number of axis ticks.
	Ticks int `koanf:"ticks"`
}

// Default chart values.
const (
	DefaultMinViewportWidth   = 800.0
	DefaultRowHeight          = 60.0
	DefaultBandPadding        = 0.25
	DefaultMaxEntriesExits    = 20
	DefaultTransitionDuration = 800 * time.Millisecond
	DefaultEnterDelay         = 300 * time.Millisecond
	DefaultTicks              = 6
)

// DefaultChart returns the chart configuration used when nothing is set.
func DefaultChart() Chart {
	return Chart{
		MinViewportWidth:   DefaultMinViewportWidth,
		RowHeight:          DefaultRowHeight,
		BandPadding:        DefaultBandPadding,
		Margins:            Margins{Top: 40, Right: 40, Bottom: 20, Left: 50},
		MaxEntriesExits:    DefaultMaxEntriesExits,
		TransitionDuration: DefaultTransitionDuration,
		EnterDelay:         DefaultEnterDelay,
		Ticks:              DefaultTicks,
	}
}

// Normalize replaces unusable zero or negative values with defaults.
func (c Chart) Normalize() Chart {
	d := DefaultChart()
	if c.MinViewportWidth <= 0 {
		c.MinViewportWidth = d.MinViewportWidth
	}
	if c.RowHeight <= 0 {
		c.RowHeight = d.RowHeight
	}
	if c.BandPadding < 0 || c.BandPadding >= 1 {
		c.BandPadding = d.BandPadding
	}
	if c.MaxEntriesExits <= 0 {
		c.MaxEntriesExits = d.MaxEntriesExits
	}
	if c.TransitionDuration < 0 {
		c.TransitionDuration = 0
	}
	if c.EnterDelay < 0 {
		c.EnterDelay = 0
	}
	if c.Ticks <= 0 {
		c.Ticks = d.Ticks
	}
	return c
}

// Config is the process configuration shared by the CLI and the server.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address of `rankbars serve`.
	Addr string `koanf:"addr"`

	// DataDir holds market_cap_YYYY.csv files.
	DataDir string `koanf:"data_dir"`

	// FirstYear and LastYear bound the available snapshot years.
	FirstYear int `koanf:"first_year"`
	LastYear  int `koanf:"last_year"`

	// MongoURI enables the document store when set.
	MongoURI string `koanf:"mongo_uri"`

	// MongoDatabase names the database holding notes and snapshots.
	MongoDatabase string `koanf:"mongo_database"`

	// RedisAddr enables the shared artifact cache when set.
	RedisAddr string `koanf:"redis_addr"`

	// CacheTTL bounds the lifetime of cached artifacts.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// EditPassword gates note mutations. Empty disables editing checks
	// but makes password verification report a configuration error.
	EditPassword string `koanf:"edit_password"`

	// Theme optionally points at a TOML theme file.
	Theme string `koanf:"theme"`

	Chart Chart `koanf:"chart"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Addr:          ":8080",
		DataDir:       "data",
		FirstYear:     2015,
		LastYear:      2025,
		MongoDatabase: "market_cap_portfolio",
		CacheTTL:      24 * time.Hour,
		Chart:         DefaultChart(),
	}
}

// Years returns the available years in ascending order.
func (c *Config) Years() []int {
	if c.LastYear < c.FirstYear {
		return nil
	}
	years := make([]int, 0, c.LastYear-c.FirstYear+1)
	for y := c.FirstYear; y <= c.LastYear; y++ {
		years = append(years, y)
	}
	return years
}
