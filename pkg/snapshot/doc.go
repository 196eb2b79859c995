// Package snapshot defines the contract for persisting a store's document
// outside the process, plus a Manager that captures and restores a live
// timetravel.Store through it.
//
// Responsibilities:
//   - Store[T] only loads/saves a single snapshot for a single Ref.
//   - Manager reads the live document, stamps Meta and checks ETags.
//   - The timetravel engine itself remains persistence-agnostic; restoring a
//     snapshot goes through Store.Replace, so it lands on the timeline like
//     any other mutation and can be undone.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `store/<store>` or `scene/<scene>/<store>` and is
//	the key MemoryStore uses.
package snapshot
