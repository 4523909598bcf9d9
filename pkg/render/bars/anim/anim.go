// Package anim drives row transitions over time.
//
// A [Track] animates the vertical position, bar length, and opacity of one
// row from its transition start to its target. Progress is advanced
// explicitly with [Track.Update]; nothing here sleeps or spawns goroutines,
// so a caller can drive tracks from any frame loop and drop them at any
// point to cancel.
package anim

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/matzehuels/rankbars/pkg/render/bars/layout"
	"github.com/matzehuels/rankbars/pkg/render/bars/reconcile"
)

// Property names an animated geometry field.
type Property int

const (
	Y Property = iota
	Width
	Opacity
)

func (p Property) String() string {
	switch p {
	case Y:
		return "y"
	case Width:
		return "width"
	case Opacity:
		return "opacity"
	}
	return "unknown"
}

// Timing controls the duration and easing of every track.
type Timing struct {
	Duration time.Duration

	// EnterDelay holds back bar growth of entering rows so they appear
	// before they extend.
	EnterDelay time.Duration

	Ease ease.TweenFunc
}

// DefaultEase is the cubic in-out curve used for all chart transitions.
var DefaultEase ease.TweenFunc = ease.InOutCubic

// Spec describes one property animation for declarative backends.
type Spec struct {
	Property Property
	From, To float64
	Delay    time.Duration
	Duration time.Duration
}

// Tween animates a single value, optionally after a delay.
//
// Elapsed time is kept as a [time.Duration] and the eased value is sampled
// at the absolute offset, so completion does not depend on float32
// accumulation of frame deltas.
type Tween struct {
	tw       *gween.Tween
	from, to float64
	delay    time.Duration
	duration time.Duration
	elapsed  time.Duration
	value    float64
	done     bool
}

// NewTween returns a tween from from to to. A zero duration completes on
// the first update after the delay.
func NewTween(from, to float64, delay, duration time.Duration, fn ease.TweenFunc) *Tween {
	if fn == nil {
		fn = DefaultEase
	}
	return &Tween{
		tw:       gween.New(float32(from), float32(to), seconds(duration), fn),
		from:     from,
		to:       to,
		delay:    delay,
		duration: duration,
		value:    from,
		done:     from == to && delay == 0,
	}
}

// Update advances the tween by dt and returns the current value.
func (t *Tween) Update(dt time.Duration) float64 {
	if t.done {
		return t.value
	}
	t.elapsed += dt
	switch {
	case t.elapsed >= t.delay+t.duration:
		t.done = true
		t.value = t.to
	case t.elapsed <= t.delay:
		t.value = t.from
	default:
		v, _ := t.tw.Set(seconds(t.elapsed - t.delay))
		t.value = float64(v)
	}
	return t.value
}

// Value returns the current value.
func (t *Tween) Value() float64 { return t.value }

// Done reports whether the tween reached its end value.
func (t *Tween) Done() bool { return t.done }

// spec returns the declarative form of t.
func (t *Tween) spec(p Property) Spec {
	return Spec{Property: p, From: t.from, To: t.to, Delay: t.delay, Duration: t.duration}
}

func seconds(d time.Duration) float32 { return float32(d.Seconds()) }

// Track animates one row through a reconcile transition.
type Track struct {
	Transition reconcile.Transition

	y, width, opacity *Tween
	current           layout.Geometry
}

// NewTrack starts a track for tr. Entering rows fade in immediately while
// their bar grows after the enter delay.
func NewTrack(tr reconcile.Transition, timing Timing) *Track {
	var widthDelay time.Duration
	if tr.Kind == reconcile.Enter {
		widthDelay = timing.EnterDelay
	}
	start := tr.To
	start.Y, start.Width, start.Opacity = tr.From.Y, tr.From.Width, tr.From.Opacity
	return &Track{
		Transition: tr,
		y:          NewTween(tr.From.Y, tr.To.Y, 0, timing.Duration, timing.Ease),
		width:      NewTween(tr.From.Width, tr.To.Width, widthDelay, timing.Duration, timing.Ease),
		opacity:    NewTween(tr.From.Opacity, tr.To.Opacity, 0, timing.Duration, timing.Ease),
		current:    start,
	}
}

// Key returns the row key.
func (t *Track) Key() string { return t.Transition.Key }

// Kind returns the transition kind.
func (t *Track) Kind() reconcile.Kind { return t.Transition.Kind }

// Update advances the track by dt and returns the interpolated geometry.
// Non-animated fields always come from the target.
func (t *Track) Update(dt time.Duration) layout.Geometry {
	g := t.Transition.To
	g.Y = t.y.Update(dt)
	g.Width = t.width.Update(dt)
	g.Opacity = t.opacity.Update(dt)
	t.current = g
	return g
}

// Current returns the geometry produced by the last update. Before the first
// update it holds the start position with the target's labels.
func (t *Track) Current() layout.Geometry { return t.current }

// Done reports whether every property reached its target.
func (t *Track) Done() bool {
	return t.y.Done() && t.width.Done() && t.opacity.Done()
}

// Specs returns the property animations of t, skipping properties that do
// not change.
func (t *Track) Specs() []Spec {
	var specs []Spec
	for _, s := range []Spec{t.y.spec(Y), t.width.spec(Width), t.opacity.spec(Opacity)} {
		if s.From != s.To {
			specs = append(specs, s)
		}
	}
	return specs
}
