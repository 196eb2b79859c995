package timetravel

import "github.com/goliatone/go-timetravel/inspector"

// Inspector is the action log facade. With the inspector disabled every
// call is a no-op and the log is always empty.
type Inspector struct {
	store *Store
}

// Enabled reports whether actions are being recorded.
func (i *Inspector) Enabled() bool {
	return i.store.actions != nil
}

// ActionLog returns a copy of the log, oldest first.
func (i *Inspector) ActionLog() []inspector.Entry {
	if i.store.actions == nil {
		return []inspector.Entry{}
	}
	return i.store.actions.Entries()
}

// Len returns the number of entries.
func (i *Inspector) Len() int {
	if i.store.actions == nil {
		return 0
	}
	return i.store.actions.Len()
}

// Capacity returns the maximum number of entries kept.
func (i *Inspector) Capacity() int {
	if i.store.actions == nil {
		return 0
	}
	return i.store.actions.Capacity()
}

// Clear empties the log.
func (i *Inspector) Clear() {
	if i.store.actions != nil {
		i.store.actions.Clear()
	}
}

// Subscribe registers fn for new entries.
func (i *Inspector) Subscribe(fn func(inspector.Entry)) func() {
	if i.store.actions == nil {
		return func() {}
	}
	return i.store.actions.Subscribe(fn)
}

// Query returns the entries satisfying predicate. Each entry is exposed as
// id, action, recorded_at, paths (JSON pointers) and ops (operation names).
func (i *Inspector) Query(predicate string) ([]inspector.Entry, error) {
	rule, err := i.store.compilePredicate(predicate)
	if err != nil {
		return nil, err
	}
	matches := []inspector.Entry{}
	for _, entry := range i.ActionLog() {
		ok, err := i.store.test(rule, i.store.ruleContext(entryBinding(entry)), predicate)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, entry)
		}
	}
	return matches, nil
}

func entryBinding(entry inspector.Entry) map[string]any {
	paths := make([]any, 0, len(entry.Patches))
	ops := make([]any, 0, len(entry.Patches))
	for _, op := range entry.Patches {
		paths = append(paths, op.PathString())
		ops = append(ops, string(op.Op))
	}
	return map[string]any{
		"id":          entry.ID,
		"action":      entry.ActionName,
		"recorded_at": entry.Timestamp,
		"paths":       paths,
		"ops":         ops,
	}
}
