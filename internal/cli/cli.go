// Package cli implements the rankbars command-line interface.
package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/buildinfo"
	"github.com/matzehuels/rankbars/pkg/cache"
	"github.com/matzehuels/rankbars/pkg/config"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "rankbars"

	sourceCSV   = "csv"
	sourceStore = "store"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	dataDir    string
	source     string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Rankbars animates ranked bar charts of market capitalization",
		Long: `Rankbars renders yearly company rankings as horizontal bar charts whose
rows enter, move, and exit with keyed transitions between periods.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default $"+config.EnvConfigFile+")")
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "directory holding market_cap_YYYY.csv files")
	root.PersistentFlags().StringVar(&c.source, "source", sourceCSV, "snapshot source: csv, store")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.diffCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the layered configuration once and applies flag overrides.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil && c.Logger.GetLevel() > lvl {
		c.Logger.SetLevel(lvl)
	}
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// backend bundles the runner with the document store it may read from.
// Close releases both.
type backend struct {
	runner *pipeline.Runner
	store  store.Store
}

func (b *backend) Close(ctx context.Context) error {
	err := b.runner.Close()
	if b.store != nil {
		if cerr := b.store.Close(ctx); err == nil {
			err = cerr
		}
	}
	return err
}

// newBackend creates a pipeline runner for CLI use. The document store is
// connected when a Mongo URI is configured or the store source is selected.
func (c *CLI) newBackend(ctx context.Context, noCache bool) (*backend, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	src, err := c.newSource(cfg, st)
	if err != nil {
		return nil, err
	}
	ch, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(src, cache.Observed(ch), nil, c.Logger)
	runner.Chart = cfg.Chart
	runner.ArtifactTTL = cfg.CacheTTL
	return &backend{runner: runner, store: st}, nil
}

// openStore connects to MongoDB when configured. Without a URI it returns
// nil unless the store source was requested.
func (c *CLI) openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.MongoURI == "" {
		if c.source == sourceStore {
			return nil, rberr.New(rberr.ErrCodeUnavailable, "--source store requires mongo_uri")
		}
		return nil, nil
	}
	c.Logger.Debug("connecting to mongo", "database", cfg.MongoDatabase)
	m, err := store.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (c *CLI) newSource(cfg *config.Config, st store.Store) (pipeline.Source, error) {
	switch c.source {
	case sourceCSV, "":
		return pipeline.NewCSVSource(rbio.NewDataset(cfg.DataDir, cfg.FirstYear, cfg.LastYear)), nil
	case sourceStore:
		return pipeline.StoreSource{Store: st, First: cfg.FirstYear, Last: cfg.LastYear}, nil
	default:
		return nil, rberr.New(rberr.ErrCodeInvalidInput, "invalid source %q (must be csv or store)", c.source)
	}
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheDir returns the cache directory (~/.cache/rankbars/ on Linux).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	formats := strings.Split(s, ",")
	for i := range formats {
		formats[i] = strings.TrimSpace(formats[i])
	}
	return formats
}

// parseYear parses a year argument.
func parseYear(arg string) (int, error) {
	return rberr.ParseYear(arg)
}
