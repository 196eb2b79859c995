// Package patch computes and applies minimal edit scripts between two
// map-shaped documents.
//
// A document is a map[string]any holding JSON-like values. Nested
// map[string]any values are walked key by key; every other value, slices
// included, is treated as an atomic leaf and replaced as a whole.
//
// Compute returns a Pair whose Forward operations turn the pre-state into
// the post-state and whose Inverse operations turn it back:
//
//	pair, _ := patch.Compute(pre, post)
//	next, _ := patch.Apply(pre, pair.Forward)  // equals post
//	prev, _ := patch.Apply(next, pair.Inverse) // equals pre
package patch
