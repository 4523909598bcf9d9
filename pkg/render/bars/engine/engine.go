// Package engine renders ranked bar charts with keyed, animated transitions.
//
// An [Engine] owns the cycle-to-cycle state of one chart: the current
// snapshot, the viewport width, the last applied geometry per key, and the
// running animation tracks. Each call to [Engine.Render] or
// [Engine.SetWidth] starts a new render cycle:
//
//  1. The snapshot is laid out at the current width ([layout.Build]).
//  2. The layout is reconciled against the last applied geometry
//     ([reconcile.Compute]), classifying rows as entering, updating, or
//     exiting.
//  3. Tracks of the previous cycle are dropped and new tracks start from
//     the applied geometry, so a superseded transition continues from where
//     it was rather than snapping.
//
// Time advances only through [Engine.Tick]. The engine never blocks or
// starts goroutines and is not safe for concurrent use; hosts serialize
// resize, data, and click events onto one goroutine.
//
// Drawing goes through a [Target]. Frame-based targets receive the
// interpolated geometry on every tick. Targets that implement [Animator]
// receive the start geometry once per cycle plus property animations.
package engine

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/observability"
	"github.com/matzehuels/rankbars/pkg/render/bars/anim"
	"github.com/matzehuels/rankbars/pkg/render/bars/layout"
	"github.com/matzehuels/rankbars/pkg/render/bars/reconcile"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/scale"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Option configures an Engine.
type Option func(*Engine)

// WithChart sets the chart configuration.
func WithChart(c config.Chart) Option {
	return func(e *Engine) { e.cfg = c.Normalize() }
}

// WithTheme sets the visual theme.
func WithTheme(t styles.Theme) Option {
	return func(e *Engine) { e.theme = t }
}

// WithClickHandler sets the callback invoked with the key of an activated row.
func WithClickHandler(fn func(key string)) Option {
	return func(e *Engine) { e.onClick = fn }
}

// WithLogger sets the logger for cycle diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWidth sets the initial viewport width.
func WithWidth(w float64) Option {
	return func(e *Engine) { e.width = w }
}

// Engine draws one ranked bar chart.
type Engine struct {
	target  Target
	cfg     config.Chart
	theme   styles.Theme
	logger  *log.Logger
	onClick func(string)

	width   float64
	snap    snapshot.Snapshot
	frame   *layout.Frame
	tracks  []*anim.Track
	byKey   map[string]*anim.Track
	applied map[string]layout.Geometry
	cycleID string
}

// New returns an engine drawing to target.
func New(target Target, opts ...Option) *Engine {
	e := &Engine{
		target:  target,
		cfg:     config.DefaultChart(),
		theme:   styles.Default(),
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		byKey:   map[string]*anim.Track{},
		applied: map[string]layout.Geometry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render presents snap, replacing the current snapshot.
func (e *Engine) Render(snap snapshot.Snapshot) error {
	e.snap = snap
	return e.cycle()
}

// SetWidth lays out the current snapshot at width w. Row order and keys are
// unchanged; only geometry follows the new scale.
func (e *Engine) SetWidth(w float64) error {
	e.width = w
	if e.snap == nil {
		return nil
	}
	return e.cycle()
}

// Width returns the clamped viewport width.
func (e *Engine) Width() float64 { return max(e.cfg.MinViewportWidth, e.width) }

// Tick advances all transitions by dt and draws the resulting frame.
// Exiting rows are removed once their fade completes.
func (e *Engine) Tick(dt time.Duration) error {
	if e.frame == nil {
		return nil
	}
	kept := e.tracks[:0]
	for _, t := range e.tracks {
		g := t.Update(dt)
		if t.Kind() == reconcile.Exit && t.Done() {
			delete(e.applied, t.Key())
			delete(e.byKey, t.Key())
			continue
		}
		e.applied[t.Key()] = g
		kept = append(kept, t)
	}
	clear(e.tracks[len(kept):])
	e.tracks = kept
	return e.draw(false)
}

// Idle reports whether no transition is running.
func (e *Engine) Idle() bool {
	for _, t := range e.tracks {
		if !t.Done() {
			return false
		}
	}
	return true
}

// Click forwards an activation of key to the click handler. It reports
// whether key belongs to a row that is rendered and not exiting.
func (e *Engine) Click(key string) bool {
	t, ok := e.byKey[key]
	if !ok || t.Kind() == reconcile.Exit {
		return false
	}
	if e.onClick != nil {
		e.onClick(key)
	}
	observability.Chart().OnClick(context.Background(), key)
	return true
}

// Frame returns the target layout of the current cycle, or nil when
// nothing is rendered.
func (e *Engine) Frame() *layout.Frame { return e.frame }

// Rows returns the applied geometry of every drawn row in draw order.
func (e *Engine) Rows() []layout.Geometry {
	rows := make([]layout.Geometry, len(e.tracks))
	for i, t := range e.tracks {
		rows[i] = t.Current()
	}
	return rows
}

// State returns the transition kind of key in the current cycle.
func (e *Engine) State(key string) (reconcile.Kind, bool) {
	t, ok := e.byKey[key]
	if !ok {
		return 0, false
	}
	return t.Kind(), true
}

// Cycle returns the id of the current render cycle.
func (e *Engine) Cycle() string { return e.cycleID }

func (e *Engine) timing() anim.Timing {
	return anim.Timing{
		Duration:   e.cfg.TransitionDuration,
		EnterDelay: e.cfg.EnterDelay,
		Ease:       anim.DefaultEase,
	}
}

func (e *Engine) cycle() error {
	cancelled := 0
	for _, t := range e.tracks {
		if !t.Done() {
			cancelled++
		}
	}

	frame := layout.Build(e.snap, e.width, e.cfg)
	if frame == nil {
		if len(e.tracks) > 0 {
			e.logger.Debug("chart cleared", "cancelled", cancelled)
		}
		e.reset()
		e.target.Begin(e.Width(), 0)
		return e.target.End()
	}

	plan := reconcile.Compute(e.applied, frame)
	timing := e.timing()

	e.frame = frame
	e.tracks = make([]*anim.Track, 0, len(plan.Transitions))
	e.byKey = make(map[string]*anim.Track, len(plan.Transitions))
	e.applied = make(map[string]layout.Geometry, len(plan.Transitions))
	for _, tr := range plan.Transitions {
		t := anim.NewTrack(tr, timing)
		e.tracks = append(e.tracks, t)
		e.byKey[tr.Key] = t
		e.applied[tr.Key] = t.Current()
	}
	e.cycleID = uuid.NewString()

	enter, update, exit := plan.Counts()
	e.logger.Debug("render cycle",
		"cycle", e.cycleID, "width", frame.Width,
		"enter", enter, "update", update, "exit", exit, "cancelled", cancelled)
	observability.Chart().OnCycle(context.Background(), enter, update, exit, cancelled)

	return e.draw(true)
}

func (e *Engine) reset() {
	e.frame = nil
	e.tracks = nil
	e.byKey = map[string]*anim.Track{}
	e.applied = map[string]layout.Geometry{}
	e.cycleID = ""
}

func (e *Engine) draw(start bool) error {
	f := e.frame
	height := f.Height
	for _, t := range e.tracks {
		g := t.Current()
		height = max(height, f.Margins.Top+g.Y+g.Height+f.Margins.Bottom)
	}

	e.target.Begin(f.Width, height)
	e.drawAxis(f)

	animator, declarative := e.target.(Animator)
	for _, t := range e.tracks {
		e.drawRow(f, t.Current())
		if start && declarative {
			e.animateRow(animator, f, t)
		}
	}
	return e.target.End()
}

func (e *Engine) drawAxis(f *layout.Frame) {
	if f.Scales == nil {
		return
	}
	top := f.Margins.Top
	bottom := top + f.Scales.InnerHeight
	for i, tick := range f.Ticks {
		x := f.Margins.Left + tick.X
		id := strconv.Itoa(i)
		e.target.Line(ElementID(PartGrid, id), Line{
			X1: x, Y1: top, X2: x, Y2: bottom,
			Stroke: e.theme.GridColor, Dash: e.theme.GridDash, Opacity: 1,
		})
		e.target.Text(ElementID(PartTick, id), Text{
			X: x, Y: top - 10, Content: tick.Label,
			Family: e.theme.FontFamily, Size: e.theme.AxisSize, Fill: e.theme.AxisColor,
			Anchor: "middle", Opacity: 1,
		})
	}
}

// row holds the absolute positions of one row's shapes.
type row struct {
	bar    Rect
	rank   Text
	label  Text
	logo   *Image
	value  Text
	center float64
}

func (e *Engine) layoutRow(f *layout.Frame, g layout.Geometry) row {
	th := e.theme
	ox, oy := f.Margins.Left, f.Margins.Top
	center := oy + g.Y + g.Height/2

	value := g.DisplayValue
	if value == "" {
		value = scale.FormatMoney(g.Value)
	}

	r := row{
		center: center,
		bar: Rect{
			X: ox, Y: oy + g.Y, W: g.Width, H: g.Height,
			RX: th.BarRadius, Fill: th.Fill(g.AccentColor), Opacity: g.Opacity,
		},
		rank: Text{
			X: ox - th.RankOffset, Y: center, Content: strconv.Itoa(g.Rank),
			Family: th.FontFamily, Size: th.RankSize, Weight: th.RankWeight, Fill: th.RankColor,
			Anchor: "end", Opacity: g.Opacity,
		},
		label: Text{
			X: ox + th.LabelInset, Y: center, Content: g.Key,
			Family: th.FontFamily, Size: th.LabelSize, Weight: th.LabelWeight, Fill: th.LabelColor,
			Anchor: "start", Opacity: g.Opacity,
		},
		value: Text{
			X: ox + g.Width + th.ValueGap, Y: center, Content: value,
			Family: th.FontFamily, Size: th.ValueSize, Weight: th.ValueWeight, Fill: th.ValueColor,
			Anchor: "start", Opacity: g.Opacity,
		},
	}
	if g.ImageRef != "" {
		r.logo = &Image{
			X: ox + g.Width - th.LogoGap - th.LogoSize, Y: center - th.LogoSize/2,
			W: th.LogoSize, H: th.LogoSize, Href: g.ImageRef, Opacity: g.Opacity,
		}
	}
	return r
}

func (e *Engine) drawRow(f *layout.Frame, g layout.Geometry) {
	r := e.layoutRow(f, g)
	e.target.Rect(ElementID(PartBar, g.Key), r.bar)
	e.target.Text(ElementID(PartRank, g.Key), r.rank)
	e.target.Text(ElementID(PartLabel, g.Key), r.label)
	if r.logo != nil {
		e.target.Image(ElementID(PartLogo, g.Key), *r.logo)
	}
	e.target.Text(ElementID(PartValue, g.Key), r.value)
}

// animateRow translates the property specs of t into shape animations.
func (e *Engine) animateRow(a Animator, f *layout.Frame, t *anim.Track) {
	key := t.Key()
	from := e.layoutRow(f, t.Transition.From)
	to := e.layoutRow(f, t.Transition.To)
	hasLogo := from.logo != nil && to.logo != nil

	emit := func(part Part, attr string, s anim.Spec, a0, a1 float64) {
		a.Animate(ElementID(part, key), Animation{Attr: attr, From: a0, To: a1, Delay: s.Delay, Duration: s.Duration})
	}

	for _, s := range t.Specs() {
		switch s.Property {
		case anim.Y:
			emit(PartBar, "y", s, from.bar.Y, to.bar.Y)
			emit(PartRank, "y", s, from.center, to.center)
			emit(PartLabel, "y", s, from.center, to.center)
			emit(PartValue, "y", s, from.center, to.center)
			if hasLogo {
				emit(PartLogo, "y", s, from.logo.Y, to.logo.Y)
			}
		case anim.Width:
			emit(PartBar, "width", s, from.bar.W, to.bar.W)
			emit(PartValue, "x", s, from.value.X, to.value.X)
			if hasLogo {
				emit(PartLogo, "x", s, from.logo.X, to.logo.X)
			}
		case anim.Opacity:
			for _, p := range []Part{PartBar, PartRank, PartLabel, PartValue} {
				emit(p, "opacity", s, s.From, s.To)
			}
			if hasLogo {
				emit(PartLogo, "opacity", s, s.From, s.To)
			}
		}
	}
}
