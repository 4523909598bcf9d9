package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/cache"
	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/observability/prom"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/server"
	"github.com/matzehuels/rankbars/pkg/store"
)

type serveFlags struct {
	addr      string
	noMetrics bool
}

func (c *CLI) serveCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve charts, diffs, and notes over HTTP",
		Long: `Serve charts, diffs, and notes over HTTP.

Configuration is read from --config (or $RANKBARS_CONFIG) and RANKBARS_*
environment variables. MongoDB (mongo_uri) stores notes and may serve
snapshots with --source store; without it notes live in memory until the
process exits. Redis (redis_addr) shares rendered artifacts between
instances; without it rendered artifacts are not cached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address (overrides addr from config)")
	cmd.Flags().BoolVar(&flags.noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, flags serveFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	logger := c.Logger

	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if st == nil {
		logger.Warn("mongo_uri not set; notes are kept in memory")
		st = store.NewMemory()
	}
	defer st.Close(context.WithoutCancel(ctx))

	src, err := c.newSource(cfg, st)
	if err != nil {
		return err
	}

	ch, err := serverCache(ctx, cfg)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(src, cache.Observed(ch), cache.NewScopedKeyer(cache.NewDefaultKeyer(), src.Name()), logger)
	runner.Chart = cfg.Chart
	runner.ArtifactTTL = cfg.CacheTTL
	defer runner.Close()

	opts := []server.Option{
		server.WithStore(st),
		server.WithLogger(logger),
		server.WithEditPassword(cfg.EditPassword),
	}
	if cfg.EditPassword == "" {
		logger.Warn("edit_password not set; edits are not protected")
	}
	if !flags.noMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := prom.New(reg)
		m.Register()
		opts = append(opts, server.WithMetricsHandler(m.Handler()))
	}

	logger.Info("serving", "addr", cfg.Addr, "source", src.Name(), "years", len(src.Years()))
	return server.New(runner, opts...).ListenAndServe(ctx, cfg.Addr)
}

// serverCache returns a Redis cache when redis_addr is configured and no
// cache otherwise.
func serverCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		return cache.NewNullCache(), nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	return rc, nil
}
