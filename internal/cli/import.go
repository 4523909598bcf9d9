package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/cache"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

type importFlags struct {
	input  string
	dryRun bool
}

func (c *CLI) importCommand() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import [year...]",
		Short: "Copy CSV snapshots into the document store",
		Long: `Copy yearly snapshots from the dataset directory into MongoDB so that
"--source store" and the server can read them.

Without arguments every year of the configured range is imported. With
--input, a single CSV or JSON file is imported as the given year.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			years := make([]int, 0, len(args))
			for _, arg := range args {
				y, err := parseYear(arg)
				if err != nil {
					return err
				}
				years = append(years, y)
			}
			if flags.input != "" && len(years) != 1 {
				return rberr.New(rberr.ErrCodeInvalidInput, "--input requires exactly one year argument")
			}
			return c.runImport(cmd.Context(), cmd.OutOrStdout(), years, flags)
		},
	}

	cmd.Flags().StringVar(&flags.input, "input", "", "import a single CSV or JSON snapshot file")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "read the snapshots without writing them")

	return cmd
}

func (c *CLI) runImport(ctx context.Context, w io.Writer, years []int, flags importFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	var snaps map[int]snapshot.Snapshot
	if flags.input != "" {
		s, err := rbio.Import(flags.input)
		if err != nil {
			return fmt.Errorf("load %s: %w", flags.input, err)
		}
		snaps = map[int]snapshot.Snapshot{years[0]: s}
	} else {
		ds := rbio.NewDataset(cfg.DataDir, cfg.FirstYear, cfg.LastYear)
		runner := pipeline.NewRunner(pipeline.NewCSVSource(ds), cache.NewNullCache(), nil, c.Logger)
		all, err := runner.LoadAll(ctx)
		if err != nil {
			return err
		}
		snaps = selectYears(all, years)
	}
	if len(snaps) == 0 {
		printInfo(w, "Nothing to import")
		return nil
	}

	if flags.dryRun {
		for _, y := range sortedYears(snaps) {
			printDetail(w, "%d: %d companies", y, len(snaps[y]))
		}
		printSuccess(w, "Read %d snapshots (dry run)", len(snaps))
		return nil
	}

	if cfg.MongoURI == "" {
		return rberr.New(rberr.ErrCodeUnavailable, "import requires mongo_uri")
	}
	st, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	return saveSnapshots(ctx, w, st, snaps)
}

// saveSnapshots writes snaps in ascending year order.
func saveSnapshots(ctx context.Context, w io.Writer, st store.SnapshotStore, snaps map[int]snapshot.Snapshot) error {
	for _, y := range sortedYears(snaps) {
		if err := st.SaveSnapshot(ctx, y, snaps[y]); err != nil {
			return fmt.Errorf("save %d: %w", y, err)
		}
		printDetail(w, "%d: %d companies", y, len(snaps[y]))
	}
	printSuccess(w, "Imported %d snapshots", len(snaps))
	return nil
}

// selectYears keeps the requested years of all, or all of them when none
// are requested. Requested years without data are dropped.
func selectYears(all map[int]snapshot.Snapshot, years []int) map[int]snapshot.Snapshot {
	if len(years) == 0 {
		return all
	}
	out := make(map[int]snapshot.Snapshot, len(years))
	for _, y := range years {
		if s, ok := all[y]; ok {
			out[y] = s
		}
	}
	return out
}

func sortedYears(m map[int]snapshot.Snapshot) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
