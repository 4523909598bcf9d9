// Package flow renders rank-flow diagrams between two periods using Graphviz.
//
// The diagram places the previous period's ranking on the left and the
// current one on the right. Keys present in both are joined by an edge
// colored by direction of movement; entries and exits are highlighted.
//
//	dot := flow.ToDOT(current, previous, diff.Compute(current, previous), flow.Options{})
//	svg, err := flow.RenderSVG(ctx, dot)
package flow

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/rankbars/pkg/diff"
	"github.com/matzehuels/rankbars/pkg/render"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// DefaultLimit is the number of ranks shown per period.
const DefaultLimit = 20

const (
	colorUp    = "#10B981"
	colorDown  = "#EF4444"
	colorSame  = "#9CA3AF"
	colorEntry = "#D1FAE5"
	colorExit  = "#FEE2E2"
)

// Options configures the diagram.
type Options struct {
	// Limit caps the ranks shown per period. Zero uses DefaultLimit.
	Limit int

	// CurrentLabel and PreviousLabel title the two columns.
	CurrentLabel  string
	PreviousLabel string
}

// ToDOT builds the Graphviz source of the rank flow from previous to
// current. Ranks are display ranks: 1-based positions in value order.
func ToDOT(current, previous snapshot.Snapshot, res diff.Result, opts Options) string {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	cur := top(current.Presentation(), limit)
	prev := top(previous.Presentation(), limit)

	entered := keySet(res.Entries)
	exited := keySet(res.Exits)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  nodesep=0.15;\n")
	buf.WriteString("  ranksep=2.5;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=12, width=2.6];\n")
	buf.WriteString("  edge [arrowsize=0.6, penwidth=1.5];\n\n")

	writeColumn(&buf, "prev", label(opts.PreviousLabel, "previous"), prev, exited, colorExit)
	writeColumn(&buf, "cur", label(opts.CurrentLabel, "current"), cur, entered, colorEntry)

	prevRank := make(map[string]int, len(prev))
	for i, r := range prev {
		prevRank[r.Key] = i + 1
	}
	for i, r := range cur {
		from, ok := prevRank[r.Key]
		if !ok {
			continue
		}
		to := i + 1
		color := colorSame
		switch {
		case to < from:
			color = colorUp
		case to > from:
			color = colorDown
		}
		fmt.Fprintf(&buf, "  %q -> %q [color=%q];\n", nodeID("prev", r.Key), nodeID("cur", r.Key), color)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeColumn(buf *bytes.Buffer, prefix, title string, recs snapshot.Snapshot, highlight map[string]struct{}, fill string) {
	fmt.Fprintf(buf, "  subgraph %q {\n", "cluster_"+prefix)
	fmt.Fprintf(buf, "    label=%q;\n", title)
	buf.WriteString("    style=dashed;\n    color=\"#D1D5DB\";\n")
	prevID := ""
	for i, r := range recs {
		attrs := fmt.Sprintf("label=%q", strconv.Itoa(i+1)+". "+r.Key)
		if _, ok := highlight[r.Key]; ok {
			attrs += fmt.Sprintf(", fillcolor=%q", fill)
		}
		id := nodeID(prefix, r.Key)
		fmt.Fprintf(buf, "    %q [%s];\n", id, attrs)
		if prevID != "" {
			fmt.Fprintf(buf, "    %q -> %q [style=invis];\n", prevID, id)
		}
		prevID = id
	}
	buf.WriteString("  }\n\n")
}

func nodeID(prefix, key string) string { return prefix + ":" + key }

func label(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func top(s snapshot.Snapshot, n int) snapshot.Snapshot {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func keySet(recs []snapshot.Record) map[string]struct{} {
	m := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		m[r.Key] = struct{}{}
	}
	return m
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
