// Package inspector keeps an append-only, bounded audit trail of mutations,
// independent of undo/redo position.
package inspector

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-timetravel/mutation"
	"github.com/goliatone/go-timetravel/patch"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 200

// Entry is one recorded mutation.
type Entry struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	ActionName string            `json:"action_name"`
	Patches    []patch.Operation `json:"patches"`
}

func (e Entry) clone() Entry {
	out := e
	out.Patches = patch.CloneOperations(e.Patches)
	if out.Patches == nil {
		out.Patches = []patch.Operation{}
	}
	return out
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity overrides DefaultCapacity. Values <= 0 are ignored.
func WithCapacity(capacity int) Option {
	return func(l *Log) {
		if capacity > 0 {
			l.capacity = capacity
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(next func() string) Option {
	return func(l *Log) {
		if next != nil {
			l.newID = next
		}
	}
}

// WithErrorHandler receives patch computation failures. The entry is still
// recorded with an empty patch list.
func WithErrorHandler(fn func(error)) Option {
	return func(l *Log) {
		l.onError = fn
	}
}

// Log is the action log. It is not safe for concurrent use.
type Log struct {
	capacity  int
	entries   []Entry
	now       func() time.Time
	newID     func() string
	onError   func(error)
	listeners []listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn func(Entry)
}

// New builds an empty log.
func New(opts ...Option) *Log {
	l := &Log{
		capacity: DefaultCapacity,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Record appends an entry for update going from pre to post, evicting the
// oldest entry once the log exceeds its capacity.
func (l *Log) Record(update mutation.Update, pre, post map[string]any) Entry {
	entry := Entry{
		ID:         l.newID(),
		Timestamp:  l.now(),
		ActionName: update.ActionNameFor(pre),
		Patches:    l.computePatches(pre, post),
	}
	l.entries = append(l.entries, entry)
	if overflow := len(l.entries) - l.capacity; overflow > 0 {
		l.entries = slices.Delete(l.entries, 0, overflow)
	}

	for _, listener := range slices.Clone(l.listeners) {
		listener.fn(entry.clone())
	}
	return entry.clone()
}

// computePatches never fails: errors and panics from exotic values yield an
// empty list.
func (l *Log) computePatches(pre, post map[string]any) (ops []patch.Operation) {
	defer func() {
		if r := recover(); r != nil {
			l.reportError(fmt.Errorf("inspector: patch computation panicked: %v", r))
			ops = []patch.Operation{}
		}
	}()
	pair, err := patch.Compute(pre, post)
	if err != nil {
		l.reportError(fmt.Errorf("inspector: patch computation: %w", err))
		return []patch.Operation{}
	}
	if pair.Forward == nil {
		return []patch.Operation{}
	}
	return pair.Forward
}

func (l *Log) reportError(err error) {
	if l.onError != nil {
		l.onError(err)
	}
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	for i, entry := range l.entries {
		out[i] = entry.clone()
	}
	return out
}

// Filter returns copies of the entries matching keep, oldest first.
func (l *Log) Filter(keep func(Entry) bool) []Entry {
	out := []Entry{}
	for _, entry := range l.entries {
		if keep == nil || keep(entry) {
			out = append(out, entry.clone())
		}
	}
	return out
}

// Len returns the number of entries currently held.
func (l *Log) Len() int {
	return len(l.entries)
}

// Capacity returns the eviction threshold.
func (l *Log) Capacity() int {
	return l.capacity
}

// Clear empties the log.
func (l *Log) Clear() {
	l.entries = nil
}

// Subscribe registers fn to receive every new entry. The returned function
// removes it.
func (l *Log) Subscribe(fn func(Entry)) func() {
	if fn == nil {
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.listeners = append(l.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		l.listeners = slices.DeleteFunc(l.listeners, func(entry listenerEntry) bool {
			return entry.id == id
		})
	}
}
