// Package scale derives coordinate mappings for the ranked bar chart.
//
// [Compute] turns a snapshot and a viewport width into [Scales]: a [Linear]
// value scale for bar length and a [Band] category scale for the vertical
// slot of each record. The function is pure and may be called any number
// of times; callers recompute whenever the snapshot or the width changes.
package scale

import (
	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Headroom keeps the longest bar away from the right edge.
const Headroom = 1.1

// Scales holds the mappings for one snapshot at one viewport width.
type Scales struct {
	X Linear // value -> horizontal position inside the plot area
	Y Band   // key -> vertical slot inside the plot area

	Width       float64 // clamped viewport width
	InnerWidth  float64
	InnerHeight float64
	Margins     config.Margins
}

// Height returns the full drawing height including margins.
func (s *Scales) Height() float64 {
	return s.InnerHeight + s.Margins.Top + s.Margins.Bottom
}

// Compute derives scales for snap at viewportWidth.
//
// Records with an empty key or a non-finite value are excluded first. The
// remaining records keep the caller's order, which becomes the slot order.
// Compute returns nil when no valid record remains.
func Compute(snap snapshot.Snapshot, viewportWidth float64, cfg config.Chart) *Scales {
	cfg = cfg.Normalize()
	valid := snap.Valid()
	if len(valid) == 0 {
		return nil
	}

	width := max(cfg.MinViewportWidth, viewportWidth)
	inner := max(0, width-cfg.Margins.Left-cfg.Margins.Right)

	domainMax := valid.MaxValue() * Headroom
	if domainMax <= 0 {
		domainMax = 1
	}

	y := NewBand(valid.Keys(), cfg.RowHeight, cfg.BandPadding)
	return &Scales{
		X:           NewLinear(0, domainMax, 0, inner),
		Y:           y,
		Width:       width,
		InnerWidth:  inner,
		InnerHeight: y.Extent(),
		Margins:     cfg.Margins,
	}
}
