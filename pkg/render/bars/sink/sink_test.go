package sink

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/diff"
	"github.com/matzehuels/rankbars/pkg/render"
	"github.com/matzehuels/rankbars/pkg/render/bars/engine"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

func testSnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		{Key: "Globex", Rank: 2, Value: 80e9, DisplayValue: "$80B", AccentColor: "#10B981"},
		{Key: "Acme & Sons", Rank: 1, Value: 100e9, DisplayValue: "$100B", ImageRef: "https://example.com/acme.png"},
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(testSnapshot(), WithWidth(1000))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)

	if !strings.HasPrefix(s, "<svg") {
		t.Error("SVG should start with <svg")
	}
	if !strings.Contains(s, `width="1000"`) {
		t.Error("SVG should use the requested width")
	}
	if !strings.Contains(s, "Acme &amp; Sons") {
		t.Error("labels should be XML-escaped")
	}
	if !strings.Contains(s, `<animate attributeName="width"`) {
		t.Error("entering bars should animate their width")
	}
	if !strings.Contains(s, `begin="0.300s"`) {
		t.Error("bar growth should be delayed")
	}
	if !strings.Contains(s, `fill="#10B981"`) || !strings.Contains(s, `fill="#3B82F6"`) {
		t.Error("bars should use accent color or the theme default")
	}
	if !strings.Contains(s, `href="https://example.com/acme.png"`) {
		t.Error("logo image missing")
	}
	if strings.Contains(s, "<script") {
		t.Error("script should only be embedded with WithInteraction")
	}
}

func TestRenderSVGStatic(t *testing.T) {
	svg, err := RenderSVG(testSnapshot(), WithStatic())
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)
	if strings.Contains(s, "<animate") {
		t.Error("static SVG should not contain animations")
	}
	if strings.Contains(s, `opacity="0.00"`) {
		t.Error("static SVG should show settled rows")
	}
	if !strings.Contains(s, `width="800"`) {
		t.Error("width should default to the chart minimum")
	}
}

func TestRenderSVGWithPrevious(t *testing.T) {
	prev := snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 120e9},
		{Key: "Initech", Rank: 2, Value: 50e9},
	}
	svg, err := RenderSVG(testSnapshot(), WithPrevious(prev), WithInteraction())
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)

	if !strings.Contains(s, `data-key="Initech"`) {
		t.Error("exiting row should be drawn while fading out")
	}
	exitFade := regexp.MustCompile(`data-id="bar:Initech"[^>]*>.*?attributeName="opacity" from="1.00" to="0.00"`)
	if !exitFade.MatchString(s) {
		t.Error("exiting bar should fade to 0")
	}
	globexMove := regexp.MustCompile(`data-id="bar:Globex"[^>]*>.*?attributeName="y"`)
	if !globexMove.MatchString(s) {
		t.Error("Globex should move from rank 1 to rank 2")
	}
	if !strings.Contains(s, "rankbars:click") {
		t.Error("interaction script missing")
	}
}

func TestRenderSVGMovingRowShowsCurrentLabels(t *testing.T) {
	prev := snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 120e9, DisplayValue: "$120B"},
		{Key: "Initech", Rank: 2, Value: 50e9, DisplayValue: "$50B"},
	}
	svg, err := RenderSVG(testSnapshot(), WithPrevious(prev))
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	s := string(svg)

	text := func(id string) string {
		m := regexp.MustCompile(`data-id="` + regexp.QuoteMeta(id) + `"[^>]*>([^<]*)<`).FindStringSubmatch(s)
		if m == nil {
			t.Fatalf("no text element %s", id)
		}
		return m[1]
	}
	if got := text("rank:Globex"); got != "2" {
		t.Errorf("rank label = %q, want 2", got)
	}
	if got := text("value:Globex"); got != "$80B" {
		t.Errorf("value label = %q, want $80B", got)
	}
	if !regexp.MustCompile(`data-id="bar:Globex"[^>]*fill="#10B981"`).MatchString(s) {
		t.Error("moving bar should use its current accent color")
	}
}

func TestRenderSVGEmpty(t *testing.T) {
	svg, err := RenderSVG(nil)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if strings.Contains(string(svg), "<rect data-id") {
		t.Error("empty snapshot should draw no rows")
	}
}

func TestRenderJSON(t *testing.T) {
	res := diff.Compute(testSnapshot(), snapshot.Snapshot{{Key: "Globex", Rank: 1, Value: 1}})
	data, err := RenderJSON(testSnapshot(), WithJSONYear(2024), WithJSONWidth(1000), WithJSONDiff(res))
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}

	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	if out.Year != 2024 {
		t.Errorf("Year = %d, want 2024", out.Year)
	}
	if out.Width != 1000 {
		t.Errorf("Width = %v, want 1000", out.Width)
	}
	if len(out.Rows) != 2 {
		t.Fatalf("Rows count = %d, want 2", len(out.Rows))
	}
	if out.Rows[0].Key != "Acme & Sons" || out.Rows[0].Rank != 1 || out.Rows[0].StoredRank != 1 {
		t.Errorf("Rows[0] = %+v", out.Rows[0])
	}
	if out.Rows[1].Rank != 2 || out.Rows[1].Color != "#10B981" {
		t.Errorf("Rows[1] = %+v", out.Rows[1])
	}
	if out.Diff == nil || len(out.Diff.Entries) != 1 || out.Diff.Entries[0].Key != "Acme & Sons" {
		t.Errorf("Diff = %+v", out.Diff)
	}
	if len(out.Ticks) == 0 {
		t.Error("Ticks should not be empty")
	}
}

func TestRenderJSONEmpty(t *testing.T) {
	data, err := RenderJSON(nil, WithJSONChart(config.DefaultChart()))
	if err != nil {
		t.Fatalf("RenderJSON() error: %v", err)
	}
	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if out.Rows == nil || len(out.Rows) != 0 {
		t.Errorf("Rows = %v, want empty list", out.Rows)
	}
	if out.Width != config.DefaultMinViewportWidth {
		t.Errorf("Width = %v", out.Width)
	}
}

func TestTerminalCanvas(t *testing.T) {
	canvas := NewTerminalCanvas(80, styles.Default())
	e := engine.New(canvas)

	if err := e.Render(testSnapshot()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := e.Tick(config.DefaultEnterDelay + config.DefaultTransitionDuration); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if got := canvas.Keys(); len(got) != 2 || got[0] != "Acme & Sons" || got[1] != "Globex" {
		t.Fatalf("Keys = %v", got)
	}

	out := canvas.String()
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want axis + 2 rows:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "$100B") || !strings.Contains(lines[2], "$80B") {
		t.Errorf("rows out of order:\n%s", out)
	}
	if w := lipgloss.Width(lines[1]); w > 80 {
		t.Errorf("row width %d exceeds 80 columns", w)
	}

	canvas.Select("Globex")
	canvas.SetColumns(60)
	_ = e.Tick(0)
	for _, l := range strings.Split(canvas.String(), "\n") {
		if w := lipgloss.Width(l); w > 60 {
			t.Errorf("line width %d exceeds 60 columns", w)
		}
	}
}

func TestTerminalCanvasHidesInvisibleRows(t *testing.T) {
	canvas := NewTerminalCanvas(80, styles.Default())
	e := engine.New(canvas)
	_ = e.Render(testSnapshot())

	// First frame: every row is entering at opacity 0.
	if len(canvas.Keys()) != 0 {
		t.Errorf("Keys = %v, want none visible", canvas.Keys())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Acme", 10, "Acme"},
		{"Acme Corporation", 6, "Acme.."},
		{"Acme", 2, "Ac"},
		{"Acme", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRenderPDFAndPNG(t *testing.T) {
	if !render.Available() {
		t.Skip("rsvg-convert not installed")
	}
	ctx := context.Background()

	pdf, err := RenderPDF(ctx, testSnapshot())
	if err != nil {
		t.Fatalf("RenderPDF() error: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF") {
		t.Error("output is not a PDF")
	}

	png, err := RenderPNG(ctx, testSnapshot(), WithScale(1))
	if err != nil {
		t.Fatalf("RenderPNG() error: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("output is not a PNG")
	}
}
