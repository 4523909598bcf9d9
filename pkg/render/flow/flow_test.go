package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/rankbars/pkg/diff"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

func scenario() (cur, prev snapshot.Snapshot) {
	cur = snapshot.Snapshot{
		{Key: "Acme", Rank: 1, Value: 100},
		{Key: "Globex", Rank: 2, Value: 80},
		{Key: "Hooli", Rank: 3, Value: 60},
	}
	prev = snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 90},
		{Key: "Hooli", Rank: 2, Value: 75},
		{Key: "Initech", Rank: 3, Value: 70},
	}
	return cur, prev
}

func TestToDOT(t *testing.T) {
	cur, prev := scenario()
	dot := ToDOT(cur, prev, diff.Compute(cur, prev), Options{CurrentLabel: "2025", PreviousLabel: "2024"})

	tests := []struct {
		name string
		want string
	}{
		{"header", "digraph G {"},
		{"current title", `label="2025"`},
		{"previous title", `label="2024"`},
		{"entry highlighted", `"cur:Acme" [label="1. Acme", fillcolor="` + colorEntry + `"]`},
		{"exit highlighted", `"prev:Initech" [label="3. Initech", fillcolor="` + colorExit + `"]`},
		{"moved down", `"prev:Globex" -> "cur:Globex" [color="` + colorDown + `"]`},
		{"moved down too", `"prev:Hooli" -> "cur:Hooli" [color="` + colorDown + `"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(dot, tt.want) {
				t.Errorf("DOT missing %q:\n%s", tt.want, dot)
			}
		})
	}

	if strings.Contains(dot, `"prev:Acme"`) || strings.Contains(dot, `"cur:Initech"`) {
		t.Error("keys should only appear in the periods that contain them")
	}
}

func TestToDOTLimit(t *testing.T) {
	cur, prev := scenario()
	dot := ToDOT(cur, prev, diff.Result{}, Options{Limit: 1})
	if strings.Contains(dot, "Globex\"") && strings.Contains(dot, `"cur:Globex"`) {
		t.Error("limit should cut the current column to one rank")
	}
	if !strings.Contains(dot, `label="current"`) || !strings.Contains(dot, `label="previous"`) {
		t.Error("missing default column titles")
	}
}

func TestRenderSVG(t *testing.T) {
	cur, prev := scenario()
	dot := ToDOT(cur, prev, diff.Compute(cur, prev), Options{})

	svg, err := RenderSVG(context.Background(), dot)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("output is not SVG")
	}
	if !strings.Contains(string(svg), "Acme") {
		t.Error("SVG should contain node labels")
	}
}

func TestRenderSVGInvalid(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "digraph {"); err == nil {
		t.Error("expected error for invalid DOT")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `width="100" height="50"`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg/>")); string(got) != "<svg/>" {
		t.Error("SVG without viewBox should pass through")
	}
}
