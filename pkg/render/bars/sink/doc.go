// Package sink provides draw targets and output formats for the ranked bar
// chart.
//
// # Overview
//
// A "sink" turns the engine's drawing commands or a computed layout into a
// final output. This package provides:
//
//   - SVG: animated vector output using SMIL
//   - JSON: layout data export for external tools
//   - PDF: print-ready output (requires rsvg-convert)
//   - PNG: raster image output (requires rsvg-convert)
//   - Terminal: colored text rows for interactive playback
//
// # SVG Output
//
// [RenderSVG] drives an [engine.Engine] against an [SVGCanvas]. The canvas
// implements [engine.Animator], so each row is written at its transition
// start with <animate> children describing the motion. Browsers play the
// transition without any script.
//
//	svg, err := sink.RenderSVG(current,
//	    sink.WithPrevious(previous),
//	    sink.WithWidth(1200),
//	    sink.WithInteraction(),
//	)
//
// # SVG Options
//
//   - [WithTheme]: visual theme (see [styles.Theme])
//   - [WithChart]: chart configuration (row height, margins, timing)
//   - [WithWidth]: viewport width, clamped to the chart minimum
//   - [WithPrevious]: animate from the previous period instead of entering
//   - [WithStatic]: write the settled end state without animations
//   - [WithInteraction]: report row clicks as "rankbars:click" events
//
// # JSON Output
//
// [RenderJSON] exports the settled layout: canvas size, margins, axis
// ticks, and one entry per row with its display rank, stored rank, and
// geometry. [WithJSONDiff] attaches the entries and exits of the period.
//
// # PDF and PNG Output
//
// [RenderPDF] and [RenderPNG] render the settled chart by first generating
// static SVG, then converting via [render.ToPDF] and [render.ToPNG]:
//
//	pdf, err := sink.RenderPDF(ctx, snap, opts...)
//	png, err := sink.RenderPNG(ctx, snap, sink.WithScale(2), opts...)
//
// These require librsvg to be installed:
//   - macOS: brew install librsvg
//   - Linux: apt install librsvg2-bin
//
// # Terminal Output
//
// [TerminalCanvas] is a frame-based target. The engine redraws it on every
// tick with interpolated geometry; the canvas maps pixel widths onto
// terminal columns and styles rows with lipgloss.
//
// [render.ToPDF]: github.com/matzehuels/rankbars/pkg/render.ToPDF
// [render.ToPNG]: github.com/matzehuels/rankbars/pkg/render.ToPNG
// [styles.Theme]: github.com/matzehuels/rankbars/pkg/render/bars/styles.Theme
package sink
