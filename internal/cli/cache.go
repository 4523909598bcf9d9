package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/cache"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached snapshots and renders",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var redis bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached snapshots and renders",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if redis {
				return c.clearRedis(cmd.Context(), w)
			}
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			return clearFileCache(cmd.Context(), w, dir)
		},
	}

	cmd.Flags().BoolVar(&redis, "redis", false, "clear the server's Redis cache instead")

	return cmd
}

func clearFileCache(ctx context.Context, w io.Writer, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo(w, "Cache is empty")
		return nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	if err := fc.Clear(ctx); err != nil {
		return fmt.Errorf("clear %s: %w", dir, err)
	}
	printSuccess(w, "Cleared cache")
	printDetail(w, "Directory: %s", dir)
	return nil
}

func (c *CLI) clearRedis(ctx context.Context, w io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if cfg.RedisAddr == "" {
		return rberr.New(rberr.ErrCodeUnavailable, "--redis requires redis_addr")
	}
	// No retries for a one-shot clear.
	rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, cache.WithRedisBackoff(cache.Backoff{Attempts: 1}))
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := rc.Clear(ctx); err != nil {
		return fmt.Errorf("clear redis: %w", err)
	}
	printSuccess(w, "Cleared Redis cache")
	printDetail(w, "Address: %s", cfg.RedisAddr)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
