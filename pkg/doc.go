// Package pkg provides the core libraries for Rankbars ranked bar charts.
//
// # Overview
//
// Rankbars draws one period's ranking (companies by market capitalization)
// as horizontal bars and animates the change to the next period: companies
// that joined the ranking fade and grow in, companies that left fade out,
// and the rest slide to their new rank. Rows are keyed by company name, so
// a company keeps its visual identity across periods.
//
// # Architecture
//
// The typical data flow:
//
//	CSV dataset / MongoDB
//	         ↓
//	    [io], [store] (load snapshots)
//	         ↓
//	    [diff] (entries and exits between two periods)
//	         ↓
//	    [render/bars/layout] + [scale] (target geometry per key)
//	         ↓
//	    [render/bars/reconcile] + [render/bars/anim] (enter/update/exit tweens)
//	         ↓
//	    [render/bars/engine] → [render/bars/sink] (SVG, JSON, PDF, PNG, terminal)
//
// # Quick Start
//
// Render an animated SVG from two snapshots:
//
//	import (
//	    "github.com/matzehuels/rankbars/pkg/io"
//	    "github.com/matzehuels/rankbars/pkg/render/bars/sink"
//	)
//
//	cur, _ := io.ImportCSV("market_cap_2024.csv")
//	prev, _ := io.ImportCSV("market_cap_2023.csv")
//	svg, _ := sink.RenderSVG(cur, sink.WithPrevious(prev), sink.WithWidth(1200))
//
// Or run the cached pipeline over a dataset directory:
//
//	ds := io.NewDataset("data", 2015, 2025)
//	runner := pipeline.NewRunner(pipeline.NewCSVSource(ds), nil, nil, nil)
//	res, _ := runner.Execute(ctx, pipeline.Options{Year: 2024, Formats: []string{"svg"}, Animate: true})
//
// # Main Packages
//
// ## Data
//
// [snapshot] - Records and snapshots: one period's ranking keyed by company.
//
// [io] - CSV and JSON import/export, and the yearly dataset directory layout.
//
// [store] - Notes, annual notes, company documents, and snapshots in
// MongoDB, with an in-memory implementation for tests and local serving.
//
// [diff] - Entries and exits between two snapshots.
//
// ## Chart
//
// [scale] - Linear value scale, band rank scale, and tick formatting.
//
// [render/bars/layout] - Target geometry of every row for a snapshot and width.
//
// [render/bars/reconcile] - Classifies rows as entering, updating, or exiting.
//
// [render/bars/anim] - Time-driven tweens between geometries.
//
// [render/bars/engine] - The stateful engine that applies one render cycle
// after another to a draw target and forwards row clicks.
//
// [render/bars/sink] - Draw targets: animated SVG, JSON layout, PDF and PNG,
// and a terminal canvas.
//
// [render/bars/styles] - Built-in and TOML themes.
//
// [render/flow] - Rank-flow diagrams of a period change via Graphviz.
//
// [viewport] - Debounced width tracking that triggers re-layout.
//
// ## Infrastructure
//
// [pipeline] - Load → diff → render with caching, used by the CLI and server.
//
// [cache] - File, Redis, and null caches for snapshots and rendered artifacts.
//
// [config] - Layered configuration (defaults, YAML, environment).
//
// [server] - HTTP API serving charts, diffs, and notes.
//
// [observability] - Hooks for pipeline, chart, cache, and HTTP events, with a
// Prometheus implementation in [observability/prom].
//
// [errors] - Coded errors and input validation.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/render/bars/...        # Chart packages
//	go test -run Example ./pkg/diff      # Examples only
//
// [snapshot]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/snapshot
// [io]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/io
// [store]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/store
// [diff]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/diff
// [scale]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/scale
// [render/bars/layout]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/layout
// [render/bars/reconcile]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/reconcile
// [render/bars/anim]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/anim
// [render/bars/engine]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/engine
// [render/bars/sink]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/sink
// [render/bars/styles]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/bars/styles
// [render/flow]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/render/flow
// [viewport]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/viewport
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/config
// [server]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/server
// [observability]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/observability/prom
// [errors]: https://pkg.go.dev/github.com/matzehuels/rankbars/pkg/errors
package pkg
