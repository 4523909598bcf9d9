package engine

import (
	"strings"
	"time"
)

// Target receives the drawing commands of one frame.
//
// The engine calls Begin, then any number of shape methods, then End, once
// per drawn frame. Coordinates are absolute within a width x height canvas.
// Every shape carries a stable id so targets can diff frames or hit-test.
type Target interface {
	Begin(width, height float64)
	Rect(id string, r Rect)
	Text(id string, t Text)
	Image(id string, img Image)
	Line(id string, l Line)
	End() error
}

// Animator is implemented by declarative targets that animate shapes
// themselves, like SVG with SMIL. The engine then emits every row once at
// its transition start followed by its property animations, instead of
// redrawing interpolated frames.
type Animator interface {
	Animate(id string, a Animation)
}

// Animation moves one numeric attribute of a shape.
type Animation struct {
	Attr     string // x, y, width, opacity
	From, To float64
	Delay    time.Duration
	Duration time.Duration
}

// Rect is a filled rectangle.
type Rect struct {
	X, Y, W, H float64
	RX         float64
	Fill       string
	Opacity    float64
}

// Text is a single line of text. Y is the vertical center.
type Text struct {
	X, Y    float64
	Content string
	Family  string
	Size    float64
	Weight  int
	Fill    string
	Anchor  string // start, middle, end
	Opacity float64
}

// Image is a raster or vector image referenced by URL.
type Image struct {
	X, Y, W, H float64
	Href       string
	Opacity    float64
}

// Line is a stroked line segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Stroke         string
	Dash           string
	Opacity        float64
}

// Part names the element kinds of the chart.
type Part string

const (
	PartBar   Part = "bar"
	PartRank  Part = "rank"
	PartLabel Part = "label"
	PartLogo  Part = "logo"
	PartValue Part = "value"
	PartGrid  Part = "grid"
	PartTick  Part = "tick"
)

// ElementID returns the shape id of part for key.
func ElementID(part Part, key string) string { return string(part) + ":" + key }

// ParseElementID splits a shape id into its part and key.
func ParseElementID(id string) (Part, string, bool) {
	part, key, ok := strings.Cut(id, ":")
	if !ok {
		return "", "", false
	}
	return Part(part), key, true
}

// IsRow reports whether part belongs to a chart row rather than the axis.
func (p Part) IsRow() bool {
	switch p {
	case PartBar, PartRank, PartLabel, PartLogo, PartValue:
		return true
	}
	return false
}
