// Package timetravel adds undo/redo, branching and an action log to a plain
// map-shaped state store.
//
// A Store owns one document. Every mutation goes through the active branch's
// timeline engine, which records a forward/inverse patch pair, and through
// the action inspector, which keeps a bounded, human-readable log. The three
// capabilities are exposed as facades:
//
//	store, _ := timetravel.New(map[string]any{"count": 0})
//	_ = store.Merge(map[string]any{"count": 1})
//	store.Temporal().Back(1)
//	exp, _ := store.Branches().Fork("experiment")
//	_ = store.Branches().Switch(exp.ID)
//
// A Store is not safe for concurrent use.
package timetravel
