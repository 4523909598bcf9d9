// Package cache stores rendered artifacts and loaded snapshots.
//
// Three backends share the [Cache] interface:
//
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared cache for `rankbars serve` replicas
//   - [NullCache]: never stores anything, used when caching is disabled
//
// Keys come from a [Keyer] so that every backend names entries the same
// way. Artifact keys hash the snapshot content together with every option
// that affects the output, so a changed CSV or theme never serves a stale
// chart.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
//
// Get reports a miss with ok=false and a nil error. A zero ttl stores the
// entry without expiration.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer names cache entries.
type Keyer interface {
	// SnapshotKey names the snapshot of year loaded from source.
	SnapshotKey(source string, year int) string

	// ArtifactKey names a rendered output of the snapshot with the given
	// content hash.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts holds every input besides the snapshot that changes a
// rendered artifact.
type ArtifactKeyOpts struct {
	Format       string  `json:"format"`
	Width        float64 `json:"width"`
	Theme        string  `json:"theme,omitempty"`
	PreviousHash string  `json:"previous,omitempty"`
	Static       bool    `json:"static,omitempty"`
	Interactive  bool    `json:"interactive,omitempty"`
	Scale        float64 `json:"scale,omitempty"`

	// Chart is the hash of the chart configuration, see [HashJSON].
	Chart string `json:"chart,omitempty"`
}

// DefaultKeyer produces "snapshot:" and "artifact:" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SnapshotKey returns "snapshot:<hash(source, year)>".
func (DefaultKeyer) SnapshotKey(source string, year int) string {
	return hashKey("snapshot", source, year)
}

// ArtifactKey returns "artifact:<hash(snapshotHash, opts)>".
func (DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}

// HashSnapshot returns the content hash of s. Record order is significant.
func HashSnapshot(s snapshot.Snapshot) string {
	if len(s) == 0 {
		return Hash(nil)
	}
	return HashJSON(s)
}

// HashJSON returns the hash of v's JSON encoding.
func HashJSON(v any) string {
	data, _ := json.Marshal(v)
	return Hash(data)
}
