// Package render provides the visualization outputs of rankbars.
//
// # Overview
//
// This package contains the rendering pipeline that turns ranked snapshots
// into visual outputs. It provides:
//
//   - Generic format conversion (SVG to PDF/PNG)
//   - The animated ranked bar chart (in the [bars] subpackages)
//   - Rank-flow diagrams of a snapshot diff (in [flow])
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg). These are used by both
// the bar chart sinks and the flow renderer.
//
//	svg, err := sink.RenderSVG(snap, opts...)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// # Bar Chart
//
// The bar chart is split by concern:
//   - [bars/layout]: per-key target geometry for one snapshot and width
//   - [bars/reconcile]: enter/update/exit classification between cycles
//   - [bars/anim]: time-driven tweens for row transitions
//   - [bars/engine]: the stateful engine driving a draw target
//   - [bars/sink]: draw targets and output formats (SVG, JSON, PDF, PNG, terminal)
//   - [bars/styles]: themes
//
// # Rank Flow
//
// The [flow] subpackage renders the entries and exits between two periods
// as a Graphviz diagram.
//
//	dot := flow.ToDOT(current, previous, res, flow.Options{})
//	svg, err := flow.RenderSVG(ctx, dot)
//
// [bars]: github.com/matzehuels/rankbars/pkg/render/bars/engine
// [bars/layout]: github.com/matzehuels/rankbars/pkg/render/bars/layout
// [bars/reconcile]: github.com/matzehuels/rankbars/pkg/render/bars/reconcile
// [bars/anim]: github.com/matzehuels/rankbars/pkg/render/bars/anim
// [bars/engine]: github.com/matzehuels/rankbars/pkg/render/bars/engine
// [bars/sink]: github.com/matzehuels/rankbars/pkg/render/bars/sink
// [bars/styles]: github.com/matzehuels/rankbars/pkg/render/bars/styles
// [flow]: github.com/matzehuels/rankbars/pkg/render/flow
package render
