package cli

import (
	"bytes"
	"context"
	"io"

	"github.com/spf13/cobra"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

const (
	exportJSON = "json"
	exportCSV  = "csv"
)

type exportFlags struct {
	output  string
	format  string
	noCache bool
}

func (c *CLI) exportCommand() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export <year>",
		Short: "Write a year's snapshot as JSON or CSV",
		Long: `Write the snapshot of a year from the selected source.

JSON output has the shape served by /api/companies/{year}; CSV output uses
the dataset column layout and can be read back by "render --input".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			if flags.format != exportJSON && flags.format != exportCSV {
				return rberr.New(rberr.ErrCodeInvalidFormat, "invalid export format %q (must be json or csv)", flags.format)
			}
			return c.runExport(cmd.Context(), cmd.OutOrStdout(), year, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "-", "output file (- for stdout)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", exportJSON, "output format: json, csv")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, w io.Writer, year int, flags exportFlags) error {
	b, err := c.newBackend(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer b.Close(ctx)

	snap, err := b.runner.Load(ctx, year)
	if err != nil {
		return err
	}
	data, err := encodeSnapshot(year, snap, flags.format)
	if err != nil {
		return err
	}
	return writeOutput(w, flags.output, data)
}

func encodeSnapshot(year int, snap snapshot.Snapshot, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == exportCSV {
		err = rbio.WriteCSV(snap, &buf)
	} else {
		err = rbio.WriteJSON(rbio.NewDocument(year, snap), &buf)
	}
	return buf.Bytes(), err
}
