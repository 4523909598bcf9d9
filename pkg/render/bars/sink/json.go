package sink

import (
	"encoding/json"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/diff"
	"github.com/matzehuels/rankbars/pkg/render/bars/layout"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	chart config.Chart
	width float64
	year  int
	diff  *diff.Result
}

// WithJSONChart sets the chart configuration used for the layout.
func WithJSONChart(c config.Chart) JSONOption { return func(r *jsonRenderer) { r.chart = c } }

// WithJSONWidth sets the viewport width used for the layout.
func WithJSONWidth(w float64) JSONOption { return func(r *jsonRenderer) { r.width = w } }

// WithJSONYear records the snapshot period in the output.
func WithJSONYear(y int) JSONOption { return func(r *jsonRenderer) { r.year = y } }

// WithJSONDiff includes the entries and exits against the previous period.
func WithJSONDiff(res diff.Result) JSONOption { return func(r *jsonRenderer) { r.diff = &res } }

type jsonOutput struct {
	Year    int            `json:"year,omitempty"`
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Margins config.Margins `json:"margins"`
	Ticks   []jsonTick     `json:"ticks"`
	Rows    []jsonRow      `json:"rows"`
	Diff    *diff.Result   `json:"diff,omitempty"`
}

type jsonTick struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

type jsonRow struct {
	Key          string  `json:"key"`
	Rank         int     `json:"rank"`
	StoredRank   int     `json:"stored_rank,omitempty"`
	Y            float64 `json:"y"`
	Height       float64 `json:"height"`
	Width        float64 `json:"width"`
	Value        float64 `json:"value"`
	DisplayValue string  `json:"display_value,omitempty"`
	LogoURL      string  `json:"logo_url,omitempty"`
	Color        string  `json:"color,omitempty"`
}

// RenderJSON exports the settled layout of snap. Row positions are relative
// to the plot area; add the margins for absolute coordinates.
func RenderJSON(snap snapshot.Snapshot, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{chart: config.DefaultChart()}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{Year: r.year, Ticks: []jsonTick{}, Rows: []jsonRow{}, Diff: r.diff}
	f := layout.Build(snap, r.width, r.chart)
	if f == nil {
		out.Width = max(r.chart.Normalize().MinViewportWidth, r.width)
		out.Margins = r.chart.Normalize().Margins
		return json.MarshalIndent(out, "", "  ")
	}

	out.Width, out.Height, out.Margins = f.Width, f.Height, f.Margins
	for _, t := range f.Ticks {
		out.Ticks = append(out.Ticks, jsonTick{X: t.X, Label: t.Label})
	}
	for _, g := range f.Rows {
		row := jsonRow{
			Key: g.Key, Rank: g.Rank,
			Y: g.Y, Height: g.Height, Width: g.Width,
			Value: g.Value, DisplayValue: g.DisplayValue,
			LogoURL: g.ImageRef, Color: g.AccentColor,
		}
		if rec, ok := snap.Lookup(g.Key); ok {
			row.StoredRank = rec.Rank
		}
		out.Rows = append(out.Rows, row)
	}
	return json.MarshalIndent(out, "", "  ")
}
