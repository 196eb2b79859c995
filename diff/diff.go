// Package diff reports structural differences between two documents.
//
// Nested map[string]any values are compared key by key. Slices and scalars
// are compared as whole values, so a slice that differs in one element is
// reported as a single Changed entry at the slice's path.
package diff

import (
	"slices"
	"strings"

	"github.com/goliatone/go-timetravel/patch"
)

// Kind classifies one difference.
type Kind string

const (
	Added   Kind = "added"
	Removed Kind = "removed"
	Changed Kind = "changed"
)

// Change describes one difference between the left and right documents.
// From is set for Removed and Changed, To for Added and Changed.
type Change struct {
	Kind Kind     `json:"kind"`
	Path []string `json:"path"`
	From any      `json:"from,omitempty"`
	To   any      `json:"to,omitempty"`
}

// PathString joins the path with dots.
func (c Change) PathString() string {
	return strings.Join(c.Path, ".")
}

// Compare lists the differences going from left to right, ordered by path.
func Compare(left, right map[string]any) []Change {
	changes := compare(nil, left, right, nil)
	if changes == nil {
		return []Change{}
	}
	return changes
}

func compare(path []string, left, right map[string]any, out []Change) []Change {
	keys := make([]string, 0, len(left)+len(right))
	for key := range left {
		keys = append(keys, key)
	}
	for key := range right {
		if _, ok := left[key]; !ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	for _, key := range keys {
		at := append(append([]string(nil), path...), key)
		from, inLeft := left[key]
		to, inRight := right[key]

		switch {
		case inLeft && !inRight:
			out = append(out, Change{Kind: Removed, Path: at, From: patch.Clone(from)})
		case !inLeft && inRight:
			out = append(out, Change{Kind: Added, Path: at, To: patch.Clone(to)})
		default:
			fromMap, fromIsMap := from.(map[string]any)
			toMap, toIsMap := to.(map[string]any)
			if fromIsMap && toIsMap {
				out = compare(at, fromMap, toMap, out)
				continue
			}
			if !patch.Equal(from, to) {
				out = append(out, Change{Kind: Changed, Path: at, From: patch.Clone(from), To: patch.Clone(to)})
			}
		}
	}
	return out
}

// Paths returns the dotted path of every change, in order.
func Paths(changes []Change) []string {
	out := make([]string, len(changes))
	for i, change := range changes {
		out[i] = change.PathString()
	}
	return out
}
