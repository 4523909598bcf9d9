package pipeline

import (
	"context"
	"errors"

	rberr "github.com/matzehuels/rankbars/pkg/errors"
	rbio "github.com/matzehuels/rankbars/pkg/io"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

// Source loads period snapshots.
type Source interface {
	// Name identifies the source in cache keys and logs.
	Name() string

	// Years returns the available years in ascending order.
	Years() []int

	// Load returns the snapshot of year. Unknown years report
	// [rberr.ErrCodeNotFound].
	Load(ctx context.Context, year int) (snapshot.Snapshot, error)
}

// CSVSource reads snapshots from a dataset directory.
type CSVSource struct {
	*rbio.Dataset
}

// NewCSVSource returns a Source over ds.
func NewCSVSource(ds *rbio.Dataset) CSVSource {
	return CSVSource{Dataset: ds}
}

// Name returns "csv:<dir>".
func (s CSVSource) Name() string { return "csv:" + s.Dir }

// StoreSource reads snapshots saved in a document store.
type StoreSource struct {
	Store       store.SnapshotStore
	First, Last int
}

// Name returns "store".
func (s StoreSource) Name() string { return "store" }

// Years returns First through Last.
func (s StoreSource) Years() []int {
	return rbio.NewDataset("", s.First, s.Last).Years()
}

// Load reads year from the store.
func (s StoreSource) Load(ctx context.Context, year int) (snapshot.Snapshot, error) {
	if year < s.First || year > s.Last {
		return nil, rberr.New(rberr.ErrCodeNotFound, "data for year %d not found", year)
	}
	snap, err := s.Store.LoadSnapshot(ctx, year)
	if errors.Is(err, store.ErrNotFound) {
		return nil, rberr.Wrap(rberr.ErrCodeNotFound, err, "snapshot for year %d not found", year)
	}
	return snap, err
}

// previousYear returns the year compared against year, or false for the
// first available year.
func previousYear(src Source, year int) (int, bool) {
	years := src.Years()
	if len(years) == 0 || year <= years[0] {
		return 0, false
	}
	return year - 1, true
}
