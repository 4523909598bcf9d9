// Package layout computes per-key target geometry for the ranked bar chart.
//
// A [Frame] is derived from a snapshot and a viewport width. It is ephemeral:
// the engine rebuilds it whenever either input changes and never persists it.
// All coordinates are relative to the plot area; the margins are carried on
// the frame so draw targets can translate them.
package layout

import (
	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/scale"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Geometry is the drawable state of one row.
type Geometry struct {
	Key  string
	Rank int // 1-based position in the presented list

	Y       float64 // top of the band
	Height  float64 // band height
	Width   float64 // bar length
	Opacity float64

	Value        float64
	DisplayValue string
	ImageRef     string
	AccentColor  string
}

// Dismissed returns g collapsed to zero width and fully transparent. It is
// the start state of an entering row and the end state of an exiting one.
func (g Geometry) Dismissed() Geometry {
	g.Width = 0
	g.Opacity = 0
	return g
}

// Tick is one labeled position on the value axis.
type Tick struct {
	X     float64
	Label string
}

// Frame is the target layout for one snapshot at one width.
type Frame struct {
	Width  float64 // clamped viewport width
	Height float64 // content height plus margins

	Margins config.Margins
	Scales  *scale.Scales
	Rows    []Geometry // presentation order
	Ticks   []Tick

	index map[string]int
}

// Build lays out snap at viewportWidth. Invalid records and repeated keys
// are dropped, the rest are sorted by value descending and ranked by that
// position. Build returns nil when nothing is left to draw.
func Build(snap snapshot.Snapshot, viewportWidth float64, cfg config.Chart) *Frame {
	cfg = cfg.Normalize()
	pres := snap.Presentation()
	s := scale.Compute(pres, viewportWidth, cfg)
	if s == nil {
		return nil
	}

	f := &Frame{
		Width:   s.Width,
		Height:  s.Height(),
		Margins: s.Margins,
		Scales:  s,
		Rows:    make([]Geometry, 0, len(pres)),
		index:   make(map[string]int, len(pres)),
	}

	for i, r := range pres {
		y, _ := s.Y.Map(r.Key)
		f.index[r.Key] = len(f.Rows)
		f.Rows = append(f.Rows, Geometry{
			Key:          r.Key,
			Rank:         i + 1,
			Y:            y,
			Height:       s.Y.Bandwidth(),
			Width:        s.X.Map(r.Value),
			Opacity:      1,
			Value:        r.Value,
			DisplayValue: r.DisplayValue,
			ImageRef:     r.ImageRef,
			AccentColor:  r.AccentColor,
		})
	}

	for _, v := range s.X.Ticks(cfg.Ticks) {
		f.Ticks = append(f.Ticks, Tick{X: s.X.Map(v), Label: scale.FormatMoney(v)})
	}
	return f
}

// Lookup returns the target geometry of key.
func (f *Frame) Lookup(key string) (Geometry, bool) {
	if f == nil {
		return Geometry{}, false
	}
	i, ok := f.index[key]
	if !ok {
		return Geometry{}, false
	}
	return f.Rows[i], true
}

// Keys returns the row keys in presentation order.
func (f *Frame) Keys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, len(f.Rows))
	for i, g := range f.Rows {
		keys[i] = g.Key
	}
	return keys
}
