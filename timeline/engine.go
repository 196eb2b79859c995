// Package timeline implements patch-based undo/redo over a single document.
//
// The engine keeps a baseline document (position 0), an ordered log of
// patch pairs and a cursor. Moving the cursor replays forward patches or
// reverses inverse patches from the current position, so travel costs are
// proportional to the distance moved.
package timeline

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/goliatone/go-timetravel/mutation"
	"github.com/goliatone/go-timetravel/patch"
)

// ErrHistoryFull is returned by Mutate when the log is at capacity and
// AutoArchive is disabled.
var ErrHistoryFull = errors.New("timeline: history is full")

// Publisher receives the live document after every change. The engine hands
// over a copy the receiver may keep.
type Publisher func(state map[string]any)

// Result describes the outcome of one Mutate call.
type Result struct {
	Pre      map[string]any
	Post     map[string]any
	Pair     patch.Pair
	Changed  bool
	Position int
}

// State is a detached copy of an engine's lineage, as persisted by branch
// records.
type State struct {
	Current  map[string]any
	Log      []patch.Pair
	Position int
}

// Engine is the undo/redo core for one lineage. It is not safe for
// concurrent use.
type Engine struct {
	cfg       Config
	base      map[string]any
	current   map[string]any
	log       []patch.Pair
	position  int
	publish   Publisher
	listeners listeners
}

// New builds an engine whose baseline is initial.
func New(initial map[string]any, cfg Config, publish Publisher) *Engine {
	doc := patch.CloneDocument(initial)
	return &Engine{
		cfg:     cfg.withDefaults(),
		base:    patch.Clone(doc),
		current: doc,
		publish: publish,
	}
}

// Restore builds an engine positioned at position within log, whose live
// document is current. The baseline is derived by reversing the log from
// position back to 0, and the forward tail is replayed to verify it.
func Restore(current map[string]any, log []patch.Pair, position int, cfg Config, publish Publisher) (*Engine, error) {
	e := New(current, cfg, publish)
	if !e.cfg.Enabled || len(log) == 0 {
		return e, nil
	}
	if position < 0 || position > len(log) {
		return nil, fmt.Errorf("timeline: restore position %d outside [0, %d]", position, len(log))
	}

	pairs := patch.ClonePairs(log)
	base := patch.CloneDocument(current)
	for i := position - 1; i >= 0; i-- {
		if err := patch.ApplyInPlace(base, pairs[i].Inverse); err != nil {
			return nil, fmt.Errorf("timeline: restore entry %d: %w", i, err)
		}
	}

	check := patch.Clone(base)
	for i, pair := range pairs {
		if err := patch.ApplyInPlace(check, pair.Forward); err != nil {
			return nil, fmt.Errorf("timeline: replay entry %d: %w", i, err)
		}
		if i == position-1 && !patch.Equal(check, e.current) {
			return nil, fmt.Errorf("timeline: replay diverges from current state at position %d", position)
		}
	}

	e.base = base
	e.log = pairs
	e.position = position
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Enabled reports whether history is being recorded.
func (e *Engine) Enabled() bool {
	return e.cfg.Enabled
}

// Position returns the cursor: 0 is the baseline, Len() is the newest state.
func (e *Engine) Position() int {
	if !e.cfg.Enabled {
		return 0
	}
	return e.position
}

// Len returns the number of recorded patch pairs.
func (e *Engine) Len() int {
	if !e.cfg.Enabled {
		return 0
	}
	return len(e.log)
}

// CanBack reports whether an undo step is available.
func (e *Engine) CanBack() bool {
	return e.cfg.Enabled && e.position > 0
}

// CanForward reports whether a redo step is available.
func (e *Engine) CanForward() bool {
	return e.cfg.Enabled && e.position < len(e.log)
}

// Current returns a copy of the live document.
func (e *Engine) Current() map[string]any {
	return patch.Clone(e.current)
}

// Log returns a copy of the patch log.
func (e *Engine) Log() []patch.Pair {
	return patch.ClonePairs(e.log)
}

// Snapshot captures the current lineage for persistence.
func (e *Engine) Snapshot() State {
	return State{
		Current:  e.Current(),
		Log:      e.Log(),
		Position: e.Position(),
	}
}

// Mutate applies update to the live document. A pair is recorded only when
// the update changed something; any redo history beyond the cursor is
// discarded first.
func (e *Engine) Mutate(update mutation.Update) (Result, error) {
	post, err := update.Resolve(e.current)
	if err != nil {
		return Result{}, err
	}
	pair, err := patch.Compute(e.current, post)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Pre:      patch.Clone(e.current),
		Post:     patch.Clone(post),
		Pair:     pair.Clone(),
		Changed:  !pair.Empty(),
		Position: e.Position(),
	}
	if !result.Changed {
		return result, nil
	}

	if !e.cfg.Enabled {
		e.current = post
		e.emit()
		return result, nil
	}

	if e.position >= e.cfg.MaxHistory {
		if !e.cfg.AutoArchive {
			return Result{}, fmt.Errorf("%w: %d entries", ErrHistoryFull, e.position)
		}
	}

	e.log = e.log[:e.position]
	if overflow := len(e.log) + 1 - e.cfg.MaxHistory; overflow > 0 {
		if _, err := e.archive(overflow); err != nil {
			return Result{}, err
		}
	}
	e.log = append(e.log, pair)
	e.position = len(e.log)
	e.current = post
	result.Position = e.position

	e.emit()
	e.listeners.notify(e.event(EventMutate))
	return result, nil
}

// Back moves the cursor steps entries towards the baseline. steps <= 0 is
// treated as 1. It returns the new position.
func (e *Engine) Back(steps int) int {
	if steps <= 0 {
		steps = 1
	}
	return e.travel(e.position-steps, EventBack)
}

// Forward moves the cursor steps entries towards the newest state. steps <= 0
// is treated as 1. It returns the new position.
func (e *Engine) Forward(steps int) int {
	if steps <= 0 {
		steps = 1
	}
	return e.travel(e.position+steps, EventForward)
}

// Go jumps to an absolute position, clamped to [0, Len()].
func (e *Engine) Go(position int) int {
	return e.travel(position, EventGo)
}

// Reset returns to the baseline.
func (e *Engine) Reset() int {
	return e.Go(0)
}

// Archive folds up to n of the oldest entries into the baseline. Entries at
// or after the cursor are never archived. It returns the number folded.
func (e *Engine) Archive(n int) (int, error) {
	if !e.cfg.Enabled || n <= 0 {
		return 0, nil
	}
	return e.archive(min(n, e.position))
}

func (e *Engine) archive(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	n = min(n, len(e.log))
	for i := 0; i < n; i++ {
		if err := patch.ApplyInPlace(e.base, e.log[i].Forward); err != nil {
			return i, fmt.Errorf("timeline: archive entry %d: %w", i, err)
		}
	}
	e.log = slices.Delete(e.log, 0, n)
	e.position = max(0, e.position-n)
	return n, nil
}

// History yields every state from the baseline through the end of the log.
// The sequence is computed lazily from a copy taken when History is called.
func (e *Engine) History() iter.Seq2[int, map[string]any] {
	if !e.cfg.Enabled {
		current := e.Current()
		return func(yield func(int, map[string]any) bool) {
			yield(0, current)
		}
	}
	base := patch.Clone(e.base)
	pairs := slices.Clone(e.log)
	return func(yield func(int, map[string]any) bool) {
		state := base
		if !yield(0, patch.Clone(state)) {
			return
		}
		for i, pair := range pairs {
			if err := patch.ApplyInPlace(state, pair.Forward); err != nil {
				return
			}
			if !yield(i+1, patch.Clone(state)) {
				return
			}
		}
	}
}

// Subscribe registers fn for timeline events. The returned function removes
// it.
func (e *Engine) Subscribe(fn Listener) func() {
	return e.listeners.add(fn)
}

func (e *Engine) travel(target int, kind EventKind) int {
	if !e.cfg.Enabled {
		return 0
	}
	target = max(0, min(target, len(e.log)))
	if target == e.position {
		return e.position
	}

	state := patch.Clone(e.current)
	position := e.position
	for position > target {
		mustApply(state, e.log[position-1].Inverse, position-1)
		position--
	}
	for position < target {
		mustApply(state, e.log[position].Forward, position)
		position++
	}

	e.current = state
	e.position = position
	e.emit()
	e.listeners.notify(e.event(kind))
	return e.position
}

// mustApply panics when a recorded patch no longer applies. Every pair is
// computed by the engine or verified by Restore, so a failure here means the
// log was corrupted.
func mustApply(state map[string]any, ops []patch.Operation, index int) {
	if err := patch.ApplyInPlace(state, ops); err != nil {
		panic(fmt.Sprintf("timeline: corrupt patch log at entry %d: %v", index, err))
	}
}

func (e *Engine) emit() {
	if e.publish != nil {
		e.publish(patch.Clone(e.current))
	}
}

func (e *Engine) event(kind EventKind) Event {
	return Event{
		Kind:     kind,
		Position: e.position,
		Length:   len(e.log),
		State:    patch.Clone(e.current),
	}
}
