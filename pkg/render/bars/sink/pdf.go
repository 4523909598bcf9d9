package sink

import (
	"context"

	"github.com/matzehuels/rankbars/pkg/render"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// PDFOption configures PDF rendering.
type PDFOption func(*pdfRenderer)

type pdfRenderer struct {
	svgOpts []SVGOption
}

// WithPDFSVGOptions passes options through to the underlying SVG renderer.
func WithPDFSVGOptions(opts ...SVGOption) PDFOption {
	return func(r *pdfRenderer) { r.svgOpts = opts }
}

// RenderPDF renders the settled chart as PDF via SVG conversion.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, snap snapshot.Snapshot, opts ...PDFOption) ([]byte, error) {
	r := pdfRenderer{}
	for _, opt := range opts {
		opt(&r)
	}
	svg, err := RenderSVG(snap, append(r.svgOpts, WithStatic())...)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
