package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/rankbars/pkg/cache"
	"github.com/matzehuels/rankbars/pkg/config"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/observability"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// loadConcurrency bounds parallel snapshot loads in LoadAll.
const loadConcurrency = 4

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for its source, cache and logger.
// Multiple goroutines can safely use the same Runner with different options.
type Runner struct {
	Source Source
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	Chart  config.Chart

	// ArtifactTTL bounds the lifetime of cached renders.
	ArtifactTTL time.Duration
}

// NewRunner creates a runner reading from src.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(src Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Source: src,
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Chart:  config.DefaultChart(),

		ArtifactTTL: TTLArtifact,
	}
}

// Execute runs the complete load → diff → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Chart == (config.Chart{}) {
		opts.Chart = r.Chart
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, rberr.Wrap(rberr.ErrCodeInvalidInput, err, "invalid options")
	}

	result := &Result{}

	loadStart := time.Now()
	period, hit, err := r.PeriodWithCacheInfo(ctx, opts.Year, opts.Refresh)
	if err != nil {
		return nil, err
	}
	result.Period = period
	result.SnapshotHash = cache.HashSnapshot(period.Current)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Records = len(period.Current)
	result.Stats.Entries = len(period.Diff.Entries)
	result.Stats.Exits = len(period.Diff.Exits)
	result.CacheInfo.LoadHit = hit

	r.Logger.Info("loaded period",
		"year", period.Year,
		"records", len(period.Current),
		"previous", len(period.Previous),
		"entries", len(period.Diff.Entries),
		"exits", len(period.Diff.Exits),
		"duration", result.Stats.LoadTime)

	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, period, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// LoadWithCacheInfo returns the snapshot of year and whether it came from
// the cache.
func (r *Runner) LoadWithCacheInfo(ctx context.Context, year int, refresh bool) (snapshot.Snapshot, bool, error) {
	if r.Source == nil {
		return nil, false, rberr.New(rberr.ErrCodeUnavailable, "no snapshot source configured")
	}
	key := r.Keyer.SnapshotKey(r.Source.Name(), year)

	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var s snapshot.Snapshot
			if err := json.Unmarshal(data, &s); err == nil {
				return s, true, nil
			}
		}
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, year)
	start := time.Now()
	s, err := r.Source.Load(ctx, year)
	hooks.OnLoadComplete(ctx, year, len(s), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(s); err == nil {
		_ = r.Cache.Set(ctx, key, data, TTLSnapshot)
	}
	r.Logger.Debug("loaded snapshot", "source", r.Source.Name(), "year", year, "records", len(s))
	return s, false, nil
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Load(ctx context.Context, year int) (snapshot.Snapshot, error) {
	s, _, err := r.LoadWithCacheInfo(ctx, year, false)
	return s, err
}

// PeriodWithCacheInfo loads year and its previous period concurrently and
// computes their diff. The first available year, or a predecessor that
// does not exist, yields an empty previous snapshot and an empty diff.
func (r *Runner) PeriodWithCacheInfo(ctx context.Context, year int, refresh bool) (*Period, bool, error) {
	if r.Source == nil {
		return nil, false, rberr.New(rberr.ErrCodeUnavailable, "no snapshot source configured")
	}
	var (
		cur, prev       snapshot.Snapshot
		curHit, prevHit bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, curHit, err = r.LoadWithCacheInfo(gctx, year, refresh)
		return err
	})
	prevHit = true
	if py, ok := previousYear(r.Source, year); ok {
		g.Go(func() error {
			s, hit, err := r.LoadWithCacheInfo(gctx, py, refresh)
			if rberr.Is(err, rberr.ErrCodeNotFound) {
				return nil
			}
			prev, prevHit = s, hit
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	p := NewPeriod(year, cur, prev, r.Chart.Normalize().MaxEntriesExits)
	observability.Pipeline().OnDiffComplete(ctx, year, len(p.Diff.Entries), len(p.Diff.Exits))
	return p, curHit && prevHit, nil
}

// Period is a convenience wrapper that calls PeriodWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Period(ctx context.Context, year int) (*Period, error) {
	p, _, err := r.PeriodWithCacheInfo(ctx, year, false)
	return p, err
}

// LoadAll loads every available year concurrently. Years without data are
// left out of the result.
func (r *Runner) LoadAll(ctx context.Context) (map[int]snapshot.Snapshot, error) {
	if r.Source == nil {
		return nil, rberr.New(rberr.ErrCodeUnavailable, "no snapshot source configured")
	}
	var mu sync.Mutex
	out := make(map[int]snapshot.Snapshot)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for _, year := range r.Source.Years() {
		g.Go(func() error {
			s, err := r.Load(gctx, year)
			if rberr.Is(err, rberr.ErrCodeNotFound) {
				r.Logger.Warn("skipping year", "year", year, "error", rberr.UserMessage(err))
				return nil
			}
			if err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			mu.Lock()
			out[year] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RenderWithCacheInfo renders every requested format of p, serving each
// from the cache when possible.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, p *Period, opts Options) (map[string][]byte, bool, error) {
	if opts.Chart == (config.Chart{}) {
		opts.Chart = r.Chart
	}
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	curHash := cache.HashSnapshot(p.Current)
	prevHash := cache.HashSnapshot(p.Previous)

	artifacts := make(map[string][]byte)
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(curHash, opts.ArtifactKeyOpts(format, prevHash))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	rendered, err := RenderPeriod(ctx, p, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(curHash, opts.ArtifactKeyOpts(format, prevHash))
		_ = r.Cache.Set(ctx, key, data, cmp.Or(r.ArtifactTTL, TTLArtifact))
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, p *Period, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, p, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
