// Package diff computes which keys entered and exited the ranking between
// two snapshots.
//
// The diff is keyed on [snapshot.Record.Key] and ordered by the stored rank
// of each record. It only lists membership changes; reordering of keys
// present in both snapshots is left to the chart transition.
package diff

import (
	"cmp"
	"slices"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

// Result lists the records that entered and exited the ranking.
//
// Entries come from the current snapshot and Exits from the previous one,
// so each list carries the rank and value observed in its own period.
type Result struct {
	Entries []snapshot.Record `json:"entries"`
	Exits   []snapshot.Record `json:"exits"`
}

// Empty reports whether the result lists no change.
func (r Result) Empty() bool { return len(r.Entries) == 0 && len(r.Exits) == 0 }

type options struct {
	max int
}

// Option configures [Compute].
type Option func(*options)

// WithMax caps each list at n records. Values below one restore the
// default of [config.DefaultMaxEntriesExits].
func WithMax(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.max = n
		}
	}
}

// Compute returns the entries and exits between previous and current.
//
// An empty previous snapshot means there is no baseline period, so the
// result is empty rather than listing every current record as an entry.
// Records failing [snapshot.Record.Valid] are ignored. When a key occurs
// more than once in a snapshot only its first occurrence counts. Both lists
// are sorted by ascending stored rank with rankless records last, ties
// keeping encounter order, and truncated to the configured maximum.
func Compute(current, previous snapshot.Snapshot, opts ...Option) Result {
	o := options{max: config.DefaultMaxEntriesExits}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{Entries: []snapshot.Record{}, Exits: []snapshot.Record{}}
	if len(previous) == 0 {
		return res
	}

	cur := firstOccurrences(current)
	prev := firstOccurrences(previous)

	res.Entries = missingFrom(cur, prev)
	res.Exits = missingFrom(prev, cur)

	sortByRank(res.Entries)
	sortByRank(res.Exits)

	res.Entries = truncate(res.Entries, o.max)
	res.Exits = truncate(res.Exits, o.max)
	return res
}

// keyed keeps the first record per key in encounter order.
type keyed struct {
	order []snapshot.Record
	index map[string]struct{}
}

func firstOccurrences(s snapshot.Snapshot) keyed {
	k := keyed{index: make(map[string]struct{}, len(s))}
	for _, r := range s {
		if !r.Valid() {
			continue
		}
		if _, dup := k.index[r.Key]; dup {
			continue
		}
		k.index[r.Key] = struct{}{}
		k.order = append(k.order, r)
	}
	return k
}

// missingFrom returns the records of a whose key is absent from b.
func missingFrom(a, b keyed) []snapshot.Record {
	out := []snapshot.Record{}
	for _, r := range a.order {
		if _, ok := b.index[r.Key]; !ok {
			out = append(out, r)
		}
	}
	return out
}

func sortByRank(recs []snapshot.Record) {
	slices.SortStableFunc(recs, func(a, b snapshot.Record) int {
		switch {
		case a.HasRank() && b.HasRank():
			return cmp.Compare(a.Rank, b.Rank)
		case a.HasRank():
			return -1
		case b.HasRank():
			return 1
		}
		return 0
	})
}

func truncate(recs []snapshot.Record, n int) []snapshot.Record {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}
