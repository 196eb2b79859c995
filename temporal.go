package timetravel

import (
	"errors"
	"iter"

	"github.com/goliatone/go-timetravel/patch"
	"github.com/goliatone/go-timetravel/timeline"
)

// ErrNoMatch is returned by Seek when no position satisfies the predicate.
var ErrNoMatch = errors.New("timetravel: no matching position")

// Temporal is the undo/redo facade. Every call acts on the engine of the
// branch active at call time.
type Temporal struct {
	store *Store
}

// Back undoes steps entries (steps <= 0 means 1) and returns the position.
func (t *Temporal) Back(steps int) int {
	return t.store.engine().Back(steps)
}

// Forward redoes steps entries (steps <= 0 means 1) and returns the position.
func (t *Temporal) Forward(steps int) int {
	return t.store.engine().Forward(steps)
}

// Go jumps to position, clamped to [0, Len()].
func (t *Temporal) Go(position int) int {
	return t.store.engine().Go(position)
}

// Reset returns to position 0.
func (t *Temporal) Reset() int {
	return t.store.engine().Reset()
}

func (t *Temporal) CanBack() bool    { return t.store.engine().CanBack() }
func (t *Temporal) CanForward() bool { return t.store.engine().CanForward() }
func (t *Temporal) Position() int    { return t.store.engine().Position() }
func (t *Temporal) Len() int         { return t.store.engine().Len() }
func (t *Temporal) Enabled() bool    { return t.store.engine().Enabled() }

// History yields every reachable state from position 0 to Len().
func (t *Temporal) History() iter.Seq2[int, map[string]any] {
	return t.store.engine().History()
}

// Log returns a copy of the active branch's patch log.
func (t *Temporal) Log() []patch.Pair {
	return t.store.engine().Log()
}

// Archive folds up to n of the oldest entries into the baseline.
func (t *Temporal) Archive(n int) (int, error) {
	return t.store.engine().Archive(n)
}

// Subscribe registers fn for timeline events. The subscription follows the
// active branch across switches.
func (t *Temporal) Subscribe(fn timeline.Listener) func() {
	return t.store.subscribeTimeline(fn)
}

// Where returns every history position whose state satisfies predicate.
func (t *Temporal) Where(predicate string) ([]int, error) {
	rule, err := t.store.compilePredicate(predicate)
	if err != nil {
		return nil, err
	}
	length := t.Len()
	positions := []int{}
	for position, state := range t.History() {
		ctx := t.store.ruleContext(state)
		ctx.Position = position
		ctx.Length = length
		ok, err := t.store.test(rule, ctx, predicate)
		if err != nil {
			return nil, atPosition(err, position)
		}
		if ok {
			positions = append(positions, position)
		}
	}
	return positions, nil
}

// Seek travels to the earliest position satisfying predicate and returns it.
func (t *Temporal) Seek(predicate string) (int, error) {
	positions, err := t.Where(predicate)
	if err != nil {
		return t.Position(), err
	}
	if len(positions) == 0 {
		return t.Position(), ErrNoMatch
	}
	return t.Go(positions[0]), nil
}
