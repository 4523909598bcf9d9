package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

type diffFlags struct {
	json    bool
	flow    string
	noCache bool
}

func (c *CLI) diffCommand() *cobra.Command {
	var flags diffFlags

	cmd := &cobra.Command{
		Use:   "diff [year]",
		Short: "List the companies that entered or left the ranking",
		Long: `List the companies that entered or left the ranking in a year compared
with the previous year. Entries show their new rank and exits their previous
rank; "-" marks a company without a stored rank.

The first available year has no previous period and reports no changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			return c.runDiff(cmd.Context(), cmd.OutOrStdout(), year, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.json, "json", false, "print the diff as JSON")
	cmd.Flags().StringVar(&flags.flow, "flow", "", "also write the rank-flow diagram to this SVG file")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")

	return cmd
}

// diffReport is the JSON form of a period diff.
type diffReport struct {
	Year    int               `json:"year"`
	Entries []snapshot.Record `json:"entries"`
	Exits   []snapshot.Record `json:"exits"`
}

func (c *CLI) runDiff(ctx context.Context, w io.Writer, year int, flags diffFlags) error {
	b, err := c.newBackend(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer b.Close(ctx)

	p, err := b.runner.Period(ctx, year)
	if err != nil {
		return err
	}

	if flags.flow != "" {
		artifacts, err := b.runner.Render(ctx, p, pipeline.Options{
			Year:    year,
			Formats: []string{pipeline.FormatFlow},
			Logger:  loggerFromContext(ctx),
		})
		if err != nil {
			return fmt.Errorf("render rank flow: %w", err)
		}
		if err := writeOutput(io.Discard, flags.flow, artifacts[pipeline.FormatFlow]); err != nil {
			return err
		}
		loggerFromContext(ctx).Info("Wrote rank flow", "path", flags.flow)
	}

	if flags.json {
		return writeDiffJSON(w, p)
	}
	writeDiffTables(w, p)
	return nil
}

func writeDiffJSON(w io.Writer, p *pipeline.Period) error {
	report := diffReport{Year: p.Year, Entries: p.Diff.Entries, Exits: p.Diff.Exits}
	if report.Entries == nil {
		report.Entries = []snapshot.Record{}
	}
	if report.Exits == nil {
		report.Exits = []snapshot.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeDiffTables(w io.Writer, p *pipeline.Period) {
	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("%d vs %d", p.Year, p.Year-1)))
	if len(p.Previous) == 0 {
		printInfo(w, "No previous period to compare with")
		return
	}
	if p.Diff.Empty() {
		printInfo(w, "No companies entered or left the ranking")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Entered", len(p.Diff.Entries)))
	if len(p.Diff.Entries) > 0 {
		fmt.Fprintln(w, indent(recordTable("NEW RANK", p.Diff.Entries, styleEntry), 2))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, heading("Exited", len(p.Diff.Exits)))
	if len(p.Diff.Exits) > 0 {
		fmt.Fprintln(w, indent(recordTable("PREV RANK", p.Diff.Exits, styleExit), 2))
	}
}
