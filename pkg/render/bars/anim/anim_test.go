package anim

import (
	"math"
	"testing"
	"time"

	"github.com/matzehuels/rankbars/pkg/render/bars/layout"
	"github.com/matzehuels/rankbars/pkg/render/bars/reconcile"
)

const ms = time.Millisecond

func near(a, b float64) bool { return math.Abs(a-b) < 1e-3 }

func TestTween(t *testing.T) {
	tw := NewTween(0, 100, 0, 800*ms, nil)

	if v := tw.Update(0); v != 0 {
		t.Errorf("start = %v, want 0", v)
	}
	mid := tw.Update(400 * ms)
	if !near(mid, 50) {
		t.Errorf("midpoint = %v, want 50 (symmetric ease)", mid)
	}
	quarter := NewTween(0, 100, 0, 800*ms, nil).Update(200 * ms)
	if !(quarter > 0 && quarter < 25) {
		t.Errorf("quarter = %v, want eased below linear 25", quarter)
	}
	if tw.Done() {
		t.Error("Done before end")
	}
	if v := tw.Update(400 * ms); v != 100 || !tw.Done() {
		t.Errorf("end = %v done=%v, want 100 true", v, tw.Done())
	}
	if v := tw.Update(time.Second); v != 100 {
		t.Errorf("after end = %v, want 100", v)
	}
}

func TestTweenDelay(t *testing.T) {
	tw := NewTween(0, 100, 300*ms, 800*ms, nil)

	if v := tw.Update(299 * ms); v != 0 {
		t.Errorf("during delay = %v, want 0", v)
	}
	if v := tw.Update(401 * ms); !near(v, 50) {
		t.Errorf("delay+half = %v, want 50", v)
	}
	if v := tw.Update(400 * ms); v != 100 || !tw.Done() {
		t.Errorf("end = %v, want 100", v)
	}
}

func TestTweenDelayOvershoot(t *testing.T) {
	tw := NewTween(10, 20, 300*ms, 800*ms, nil)
	if v := tw.Update(700 * ms); !near(v, 15) {
		t.Errorf("single step across delay = %v, want 15", v)
	}
}

func TestTweenZeroDuration(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
	}{
		{"change", 0, 10},
		{"no change", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tw := NewTween(tt.from, tt.to, 0, 0, nil)
			if v := tw.Update(0); v != tt.to || !tw.Done() {
				t.Errorf("Update(0) = %v done=%v, want %v true", v, tw.Done(), tt.to)
			}
		})
	}
}

func TestTrackEnter(t *testing.T) {
	to := layout.Geometry{Key: "A", Rank: 1, Y: 7.5, Height: 45, Width: 200, Opacity: 1}
	tr := reconcile.Transition{Key: "A", Kind: reconcile.Enter, From: to.Dismissed(), To: to}
	track := NewTrack(tr, Timing{Duration: 800 * ms, EnterDelay: 300 * ms})

	if got := track.Current(); got.Width != 0 || got.Opacity != 0 {
		t.Fatalf("initial = %+v, want dismissed", got)
	}

	g := track.Update(300 * ms)
	if g.Width != 0 {
		t.Errorf("bar grew during enter delay: width %v", g.Width)
	}
	if !(g.Opacity > 0) {
		t.Errorf("opacity = %v, want fading in", g.Opacity)
	}
	if g.Y != 7.5 {
		t.Errorf("Y = %v, want 7.5", g.Y)
	}

	g = track.Update(500 * ms)
	if g.Opacity != 1 {
		t.Errorf("opacity at 800ms = %v, want 1", g.Opacity)
	}
	if track.Done() {
		t.Error("track done before delayed width finished")
	}

	g = track.Update(300 * ms)
	if g != to || !track.Done() {
		t.Errorf("final = %+v done=%v, want %+v", g, track.Done(), to)
	}
}

func TestTrackUpdateNoDelay(t *testing.T) {
	from := layout.Geometry{Key: "B", Y: 67.5, Width: 100, Opacity: 1}
	to := layout.Geometry{Key: "B", Y: 7.5, Width: 300, Opacity: 1}
	track := NewTrack(reconcile.Transition{Key: "B", Kind: reconcile.Update, From: from, To: to},
		Timing{Duration: 800 * ms, EnterDelay: 300 * ms})

	g := track.Update(400 * ms)
	if !near(g.Y, 37.5) || !near(g.Width, 200) {
		t.Errorf("midpoint = %+v, want Y 37.5 width 200", g)
	}

	specs := track.Specs()
	if len(specs) != 2 {
		t.Fatalf("Specs = %+v, want y and width only", specs)
	}
	for _, s := range specs {
		if s.Delay != 0 || s.Duration != 800*ms {
			t.Errorf("%v timing = %v+%v, want 0+800ms", s.Property, s.Delay, s.Duration)
		}
	}
}

func TestTrackStartKeepsTargetLabels(t *testing.T) {
	from := layout.Geometry{Key: "Globex", Rank: 1, Y: 7.5, Height: 45, Width: 300, Opacity: 1,
		Value: 120, DisplayValue: "$120B", AccentColor: "#111111", ImageRef: "old.png"}
	to := layout.Geometry{Key: "Globex", Rank: 2, Y: 67.5, Height: 45, Width: 200, Opacity: 1,
		Value: 80, DisplayValue: "$80B", AccentColor: "#222222", ImageRef: "new.png"}
	track := NewTrack(reconcile.Transition{Key: "Globex", Kind: reconcile.Update, From: from, To: to},
		Timing{Duration: 800 * ms})

	got := track.Current()
	if got.Y != from.Y || got.Width != from.Width || got.Opacity != from.Opacity {
		t.Errorf("start position = %+v, want the previous Y/width/opacity", got)
	}
	want := to
	want.Y, want.Width, want.Opacity = from.Y, from.Width, from.Opacity
	if got != want {
		t.Errorf("start = %+v, want %+v", got, want)
	}
}

func TestTrackExit(t *testing.T) {
	from := layout.Geometry{Key: "C", Rank: 3, Y: 127.5, Width: 150, Opacity: 1}
	track := NewTrack(reconcile.Transition{Key: "C", Kind: reconcile.Exit, From: from, To: from.Dismissed()},
		Timing{Duration: 800 * ms, EnterDelay: 300 * ms})

	track.Update(799 * ms)
	if track.Done() {
		t.Fatal("exit done before fade completed")
	}
	g := track.Update(ms)
	if g.Opacity != 0 || !track.Done() {
		t.Errorf("final opacity %v done=%v", g.Opacity, track.Done())
	}
	if g.Rank != 3 {
		t.Errorf("exiting row lost its rank label: %d", g.Rank)
	}
}

func TestPropertyString(t *testing.T) {
	for p, want := range map[Property]string{Y: "y", Width: "width", Opacity: "opacity", Property(7): "unknown"} {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
}
