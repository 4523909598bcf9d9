// Package styles defines the visual theme of the ranked bar chart.
//
// A [Theme] carries colors, font sizes, and shape constants. Draw targets
// receive fully resolved values from the engine, so they never consult the
// theme themselves. Themes can be loaded from TOML files with [Load].
package styles

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Theme holds the chart's visual constants.
type Theme struct {
	Name string `toml:"name"`

	FontFamily string `toml:"font_family"`
	Background string `toml:"background"`

	// BarColor fills bars whose record carries no accent color.
	BarColor  string  `toml:"bar_color"`
	BarRadius float64 `toml:"bar_radius"`

	RankColor  string  `toml:"rank_color"`
	RankSize   float64 `toml:"rank_size"`
	RankWeight int     `toml:"rank_weight"`
	RankOffset float64 `toml:"rank_offset"` // left of the plot origin

	LabelColor  string  `toml:"label_color"`
	LabelSize   float64 `toml:"label_size"`
	LabelWeight int     `toml:"label_weight"`
	LabelInset  float64 `toml:"label_inset"` // inside the bar

	ValueColor  string  `toml:"value_color"`
	ValueSize   float64 `toml:"value_size"`
	ValueWeight int     `toml:"value_weight"`
	ValueGap    float64 `toml:"value_gap"` // right of the bar end

	LogoSize float64 `toml:"logo_size"`
	LogoGap  float64 `toml:"logo_gap"` // logo right edge to bar end

	GridColor string  `toml:"grid_color"`
	GridDash  string  `toml:"grid_dash"`
	AxisColor string  `toml:"axis_color"`
	AxisSize  float64 `toml:"axis_size"`
}

// Default returns the built-in light theme.
func Default() Theme {
	return Theme{
		Name:        "default",
		FontFamily:  "Inter, system-ui, sans-serif",
		Background:  "#FFFFFF",
		BarColor:    "#3B82F6",
		BarRadius:   6,
		RankColor:   "#374151",
		RankSize:    18,
		RankWeight:  900,
		RankOffset:  15,
		LabelColor:  "#FFFFFF",
		LabelSize:   15,
		LabelWeight: 700,
		LabelInset:  15,
		ValueColor:  "#6B7280",
		ValueSize:   14,
		ValueWeight: 600,
		ValueGap:    15,
		LogoSize:    40,
		LogoGap:     5,
		GridColor:   "#E5E7EB",
		GridDash:    "3,3",
		AxisColor:   "#6B7280",
		AxisSize:    12,
	}
}

// Dark returns a theme for dark backgrounds.
func Dark() Theme {
	t := Default()
	t.Name = "dark"
	t.Background = "#111827"
	t.RankColor = "#E5E7EB"
	t.ValueColor = "#9CA3AF"
	t.GridColor = "#374151"
	t.AxisColor = "#9CA3AF"
	return t
}

// Builtin returns a built-in theme by name.
func Builtin(name string) (Theme, bool) {
	switch name {
	case "", "default", "light":
		return Default(), true
	case "dark":
		return Dark(), true
	}
	return Theme{}, false
}

// Fill returns the bar color for an optional accent color.
func (t Theme) Fill(accent string) string {
	if accent != "" {
		return accent
	}
	return t.BarColor
}

// Load reads a theme from a TOML file. Keys missing from the file keep the
// values of [Default].
func Load(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read theme: %w", err)
	}
	return Parse(data)
}

// Parse decodes a TOML theme. Undecoded keys are reported as an error so
// typos do not silently fall back to defaults.
func Parse(data []byte) (Theme, error) {
	t := Default()
	md, err := toml.Decode(string(data), &t)
	if err != nil {
		return Theme{}, fmt.Errorf("parse theme: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Theme{}, fmt.Errorf("parse theme: unknown key %q", undecoded[0].String())
	}
	return t, nil
}

// Resolve returns the theme named by ref: a built-in name or a TOML file path.
func Resolve(ref string) (Theme, error) {
	if t, ok := Builtin(ref); ok {
		return t, nil
	}
	return Load(ref)
}
