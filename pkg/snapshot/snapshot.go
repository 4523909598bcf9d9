package snapshot

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Record is one ranked entity in a snapshot.
//
// Key is the identity used for animation continuity and for diffing. It is
// normalized once at ingestion (see [NormalizeKey]) and never mutated
// afterward. Rank is the stored rank from the source data; zero means absent.
type Record struct {
	Key          string  `json:"company_name" bson:"company_name"`
	Rank         int     `json:"rank" bson:"rank"`
	Value        float64 `json:"market_cap_usd" bson:"market_cap_usd"`
	DisplayValue string  `json:"market_cap_display" bson:"market_cap_display"`
	ImageRef     string  `json:"logo_url,omitempty" bson:"logo_url,omitempty"`
	AccentColor  string  `json:"primary_hex,omitempty" bson:"primary_hex,omitempty"`
}

// HasRank reports whether the stored rank is usable for ordering.
func (r Record) HasRank() bool { return r.Rank >= 1 }

// Valid reports whether the record may take part in rendering or diffing.
// A record needs a non-empty key and a finite, non-negative value.
func (r Record) Valid() bool {
	if r.Key == "" {
		return false
	}
	return !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) && r.Value >= 0
}

// Snapshot is the full ranked collection for one period. Snapshots are
// treated as immutable once handed to the rendering or diff packages;
// functions in this package that reorder or filter return a fresh slice.
type Snapshot []Record

// NormalizeKey trims surrounding whitespace and collapses internal runs of
// whitespace into a single space.
func NormalizeKey(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Valid returns the records that pass [Record.Valid], preserving order.
func (s Snapshot) Valid() Snapshot {
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// ByValue returns a copy sorted by value descending. Ties keep input order.
func (s Snapshot) ByValue() Snapshot {
	out := slices.Clone(s)
	slices.SortStableFunc(out, func(a, b Record) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return out
}

// Presentation returns the records in the order the chart presents them:
// invalid records dropped, duplicates after the first occurrence of a key
// dropped, and the remainder sorted by value descending.
func (s Snapshot) Presentation() Snapshot {
	seen := make(map[string]struct{}, len(s))
	out := make(Snapshot, 0, len(s))
	for _, r := range s {
		if !r.Valid() {
			continue
		}
		if _, dup := seen[r.Key]; dup {
			continue
		}
		seen[r.Key] = struct{}{}
		out = append(out, r)
	}
	return out.ByValue()
}

// Keys returns the record keys in order.
func (s Snapshot) Keys() []string {
	keys := make([]string, len(s))
	for i, r := range s {
		keys[i] = r.Key
	}
	return keys
}

// MaxValue returns the largest value in s, or zero if s is empty.
func (s Snapshot) MaxValue() float64 {
	var m float64
	for _, r := range s {
		m = max(m, r.Value)
	}
	return m
}

// Lookup returns the first record with the given key.
func (s Snapshot) Lookup(key string) (Record, bool) {
	for _, r := range s {
		if r.Key == key {
			return r, true
		}
	}
	return Record{}, false
}
