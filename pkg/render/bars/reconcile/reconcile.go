// Package reconcile matches rows between two render generations by key and
// classifies each as entering, updating, or exiting.
//
// The previous generation is given as the last applied geometry per key,
// which may be mid-transition. Updates therefore start from where a row
// currently is rather than from its last target, so superseding a running
// transition never snaps rows back.
package reconcile

import (
	"cmp"
	"maps"
	"slices"

	"github.com/matzehuels/rankbars/pkg/render/bars/layout"
)

// Kind classifies a row transition.
type Kind int

const (
	Enter Kind = iota
	Update
	Exit
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Update:
		return "update"
	case Exit:
		return "exit"
	}
	return "unknown"
}

// Transition moves one row from From to To.
type Transition struct {
	Key  string
	Kind Kind
	From layout.Geometry
	To   layout.Geometry
}

// Plan is the ordered set of transitions for one render cycle.
type Plan struct {
	Transitions []Transition
}

// Keys returns the keys of the transitions of the given kind, in plan order.
func (p Plan) Keys(kind Kind) []string {
	var keys []string
	for _, t := range p.Transitions {
		if t.Kind == kind {
			keys = append(keys, t.Key)
		}
	}
	return keys
}

// Lookup returns the transition for key.
func (p Plan) Lookup(key string) (Transition, bool) {
	for _, t := range p.Transitions {
		if t.Key == key {
			return t, true
		}
	}
	return Transition{}, false
}

// Counts returns the number of entering, updating, and exiting rows.
func (p Plan) Counts() (enter, update, exit int) {
	for _, t := range p.Transitions {
		switch t.Kind {
		case Enter:
			enter++
		case Update:
			update++
		case Exit:
			exit++
		}
	}
	return enter, update, exit
}

// Compute builds the plan that takes prev to next. A nil next frame exits
// every previous row.
//
// Rows of next come first in presentation order. Exiting rows follow,
// ordered by their previous vertical position and then by key.
func Compute(prev map[string]layout.Geometry, next *layout.Frame) Plan {
	var plan Plan
	seen := make(map[string]struct{})

	if next != nil {
		plan.Transitions = make([]Transition, 0, len(next.Rows)+len(prev))
		for _, to := range next.Rows {
			seen[to.Key] = struct{}{}
			if from, ok := prev[to.Key]; ok {
				plan.Transitions = append(plan.Transitions, Transition{Key: to.Key, Kind: Update, From: from, To: to})
				continue
			}
			plan.Transitions = append(plan.Transitions, Transition{Key: to.Key, Kind: Enter, From: to.Dismissed(), To: to})
		}
	}

	exiting := slices.Collect(maps.Keys(prev))
	exiting = slices.DeleteFunc(exiting, func(k string) bool {
		_, ok := seen[k]
		return ok
	})
	slices.SortFunc(exiting, func(a, b string) int {
		return cmp.Or(cmp.Compare(prev[a].Y, prev[b].Y), cmp.Compare(a, b))
	})
	for _, k := range exiting {
		from := prev[k]
		plan.Transitions = append(plan.Transitions, Transition{Key: k, Kind: Exit, From: from, To: from.Dismissed()})
	}
	return plan
}
