// Package viewport tracks the available rendering width and reports settled
// changes.
//
// A [Tracker] receives raw width observations, for example from terminal
// resize events, clamps them to a minimum, drops repeats, and delivers the
// latest value once observations have been quiet for the debounce window.
// Rapid resizes therefore cause one re-layout instead of one per event.
package viewport

import (
	"math"
	"sync"
	"time"

	"github.com/matzehuels/rankbars/pkg/config"
)

// DefaultDebounce is the settle window before a width change is delivered.
const DefaultDebounce = 100 * time.Millisecond

// Timer is a stoppable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The default uses [time.AfterFunc].
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Option configures a Tracker.
type Option func(*Tracker)

// WithMinWidth sets the smallest width ever delivered.
func WithMinWidth(w float64) Option {
	return func(t *Tracker) { t.minWidth = w }
}

// WithDebounce sets the settle window. Zero delivers on the next clock
// callback without coalescing.
func WithDebounce(d time.Duration) Option {
	return func(t *Tracker) {
		if d >= 0 {
			t.debounce = d
		}
	}
}

// WithClock replaces the clock used for debouncing.
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		if c != nil {
			t.clock = c
		}
	}
}

// Tracker debounces viewport width changes.
//
// Observe, Flush, and Stop may be called from any goroutine. onChange runs
// on the clock's callback goroutine, or on the caller's for Flush, and is
// never invoked concurrently with itself.
type Tracker struct {
	onChange func(width float64)
	minWidth float64
	debounce time.Duration
	clock    Clock

	mu         sync.Mutex
	deliverMu  sync.Mutex
	last       float64
	pending    float64
	hasPending bool
	timer      Timer
	gen        uint64
	stopped    bool
}

// New returns a tracker that calls onChange with each settled width.
func New(onChange func(width float64), opts ...Option) *Tracker {
	t := &Tracker{
		onChange: onChange,
		minWidth: config.DefaultMinViewportWidth,
		debounce: DefaultDebounce,
		clock:    realClock{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Clamp returns the width the tracker would deliver for a raw observation.
func (t *Tracker) Clamp(width float64) float64 {
	if math.IsNaN(width) || math.IsInf(width, 0) {
		return t.minWidth
	}
	return max(t.minWidth, math.Floor(width))
}

// Observe records a raw width. The clamped value is delivered after the
// debounce window unless a newer observation arrives first. Observing the
// last delivered width cancels any pending change.
func (t *Tracker) Observe(width float64) {
	w := t.Clamp(width)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	if w == t.last {
		if t.hasPending {
			t.cancelLocked()
		}
		return
	}
	if t.hasPending && w == t.pending {
		return
	}

	t.cancelLocked()
	t.pending = w
	t.hasPending = true
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.debounce, func() { t.fire(gen) })
}

// Flush delivers a pending width immediately.
func (t *Tracker) Flush() {
	t.mu.Lock()
	if t.stopped || !t.hasPending {
		t.mu.Unlock()
		return
	}
	gen := t.gen
	t.mu.Unlock()
	t.fire(gen)
}

// Stop cancels any pending delivery. Later observations are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.cancelLocked()
}

// Width returns the last delivered width, or zero before the first delivery.
func (t *Tracker) Width() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.hasPending = false
	t.gen++
}

func (t *Tracker) fire(gen uint64) {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	t.mu.Lock()
	if t.stopped || !t.hasPending || gen != t.gen {
		t.mu.Unlock()
		return
	}
	w := t.pending
	t.last = w
	t.hasPending = false
	t.timer = nil
	t.gen++
	t.mu.Unlock()

	if t.onChange != nil {
		t.onChange(w)
	}
}
