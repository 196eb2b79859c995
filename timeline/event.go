package timeline

import "slices"

// EventKind tags what moved the timeline.
type EventKind string

const (
	EventMutate  EventKind = "mutate"
	EventBack    EventKind = "back"
	EventForward EventKind = "forward"
	EventGo      EventKind = "go"
)

// Event is delivered to listeners after the live data has been updated.
type Event struct {
	Kind     EventKind
	Position int
	Length   int
	State    map[string]any
}

// Listener receives timeline events synchronously.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

type listeners struct {
	nextID  int
	entries []listenerEntry
}

func (l *listeners) add(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.entries = append(l.entries, listenerEntry{id: id, fn: fn})
	return func() {
		l.entries = slices.DeleteFunc(l.entries, func(entry listenerEntry) bool {
			return entry.id == id
		})
	}
}

// notify iterates over a snapshot of the listener list, so listeners added
// or removed while notifying take effect on the next event.
func (l *listeners) notify(event Event) {
	if len(l.entries) == 0 {
		return
	}
	snapshot := slices.Clone(l.entries)
	for _, entry := range snapshot {
		entry.fn(event)
	}
}
