package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// renderFlags holds the command-line flags of the render command that are
// not pipeline options.
type renderFlags struct {
	output   string
	formats  string
	input    string
	previous string
	noCache  bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags
	opts := pipeline.Options{Animate: true}

	cmd := &cobra.Command{
		Use:   "render [year]",
		Short: "Render the ranked bar chart of a year",
		Long: `Render the ranked bar chart of a year.

By default the chart is read from the dataset directory and the SVG animates
from the previous year's ranking: rows that are new fade in, rows that left
fade out, and the remaining rows move to their new rank.

With --input, any CSV or JSON snapshot file is rendered instead; --previous
names the snapshot to animate from.

Formats: svg (default), json, png, pdf, flow (rank-flow diagram as SVG).
PNG and PDF require rsvg-convert.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(flags.formats)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			if len(args) == 1 {
				year, err := parseYear(args[0])
				if err != nil {
					return err
				}
				opts.Year = year
			}
			if opts.Year == 0 && flags.input == "" {
				return fmt.Errorf("a year argument or --input is required")
			}
			return c.runRender(cmd.Context(), cmd.OutOrStdout(), opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (single format, - for stdout) or base path (multiple)")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): svg (default), json, png, pdf, flow (comma-separated)")
	cmd.Flags().StringVar(&flags.input, "input", "", "render a CSV or JSON snapshot file instead of the dataset")
	cmd.Flags().StringVar(&flags.previous, "previous", "", "snapshot file to animate from (with --input)")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().Float64Var(&opts.Width, "width", 0, "viewport width in pixels (minimum 800)")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "theme: default, dark, or a TOML theme file")
	cmd.Flags().BoolVar(&opts.Animate, "animate", opts.Animate, "animate from the previous period")
	cmd.Flags().BoolVar(&opts.Static, "static", false, "write the settled chart without animation")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "embed the row click script")
	cmd.Flags().Float64Var(&opts.Scale, "scale", pipeline.DefaultScale, "PNG pixel density")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached snapshots and artifacts")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, w io.Writer, opts pipeline.Options, flags renderFlags) error {
	logger := loggerFromContext(ctx)

	b, err := c.newBackend(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer b.Close(ctx)

	if opts.Theme == "" {
		opts.Theme = c.cfg.Theme
	}
	opts.Logger = logger

	spinner := newSpinner(ctx, "Rendering...")
	spinner.Start()

	var (
		artifacts map[string][]byte
		period    *pipeline.Period
		cached    bool
	)
	prog := newProgress(logger)
	if flags.input != "" {
		period, err = periodFromFiles(opts.Year, flags.input, flags.previous, c.cfg.Chart.MaxEntriesExits)
		if err == nil {
			artifacts, cached, err = b.runner.RenderWithCacheInfo(ctx, period, opts)
		}
	} else {
		var res *pipeline.Result
		res, err = b.runner.Execute(ctx, opts)
		if err == nil {
			artifacts, period, cached = res.Artifacts, res.Period, res.CacheInfo.RenderHit
		}
	}
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Rendered %s", strings.Join(opts.Formats, ", ")))

	base := basePath(flags.output, defaultBase(opts.Year, flags.input))
	if err := writeArtifacts(w, artifacts, opts.Formats, base, flags.output); err != nil {
		return err
	}
	if flags.output != "-" {
		printStats(w, len(period.Current), len(period.Diff.Entries), len(period.Diff.Exits), cached)
	}
	return nil
}

// periodFromFiles builds a period from snapshot files.
func periodFromFiles(year int, input, previous string, maxEntries int) (*pipeline.Period, error) {
	cur, err := rbio.Import(input)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", input, err)
	}
	var prev snapshot.Snapshot
	if previous != "" {
		if prev, err = rbio.Import(previous); err != nil {
			return nil, fmt.Errorf("load %s: %w", previous, err)
		}
	}
	return pipeline.NewPeriod(year, cur, prev, maxEntries), nil
}

// defaultBase derives the output base path from the input file or the year.
func defaultBase(year int, input string) string {
	if input != "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	return appName + "_" + strconv.Itoa(year)
}

// basePath strips a known format extension from output, or falls back to
// fallback when output is empty.
func basePath(output, fallback string) string {
	if output == "" || output == "-" {
		return fallback
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// fileSuffix returns the file name suffix of a rendered format.
func fileSuffix(format string) string {
	if format == pipeline.FormatFlow {
		return "_flow.svg"
	}
	return "." + format
}

// writeArtifacts writes each format to its file. A single format goes to
// output verbatim when it is set ("-" writes to w).
func writeArtifacts(w io.Writer, artifacts map[string][]byte, formats []string, base, output string) error {
	if len(formats) == 1 && output != "" {
		return writeOutput(w, output, artifacts[formats[0]])
	}
	for _, format := range formats {
		if err := writeOutput(w, base+fileSuffix(format), artifacts[format]); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printFile(w, path)
	return nil
}
