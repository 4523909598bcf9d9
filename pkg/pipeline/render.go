package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matzehuels/rankbars/pkg/observability"
	"github.com/matzehuels/rankbars/pkg/render/bars/sink"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/render/flow"
)

// RenderPeriod generates output artifacts of p in the requested formats.
// It does not consult any cache.
func RenderPeriod(ctx context.Context, p *Period, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	artifacts, err := renderFormats(ctx, p, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func renderFormats(ctx context.Context, p *Period, opts Options) (map[string][]byte, error) {
	theme, err := styles.Resolve(opts.Theme)
	if err != nil {
		return nil, err
	}
	svgOpts := svgOptions(p, opts, theme)

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		switch format {
		case FormatSVG:
			data, err = sink.RenderSVG(p.Current, svgOpts...)
		case FormatJSON:
			data, err = sink.RenderJSON(p.Current,
				sink.WithJSONChart(opts.Chart),
				sink.WithJSONWidth(opts.Width),
				sink.WithJSONYear(p.Year),
				sink.WithJSONDiff(p.Diff),
			)
		case FormatPNG:
			data, err = sink.RenderPNG(ctx, p.Current,
				sink.WithPNGSVGOptions(svgOpts...),
				sink.WithScale(opts.Scale),
			)
		case FormatPDF:
			data, err = sink.RenderPDF(ctx, p.Current, sink.WithPDFSVGOptions(svgOpts...))
		case FormatFlow:
			data, err = flow.RenderSVG(ctx, flow.ToDOT(p.Current, p.Previous, p.Diff, flowOptions(p)))
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
		opts.Logger.Debug("rendered artifact", "format", format, "bytes", len(data))
	}
	return artifacts, nil
}

func svgOptions(p *Period, opts Options, theme styles.Theme) []sink.SVGOption {
	out := []sink.SVGOption{
		sink.WithTheme(theme),
		sink.WithChart(opts.Chart),
		sink.WithWidth(opts.Width),
	}
	if opts.Animate && len(p.Previous) > 0 {
		out = append(out, sink.WithPrevious(p.Previous))
	}
	if opts.Static {
		out = append(out, sink.WithStatic())
	}
	if opts.Interactive {
		out = append(out, sink.WithInteraction())
	}
	return out
}

func flowOptions(p *Period) flow.Options {
	if p.Year == 0 {
		return flow.Options{}
	}
	return flow.Options{
		CurrentLabel:  strconv.Itoa(p.Year),
		PreviousLabel: strconv.Itoa(p.Year - 1),
	}
}
