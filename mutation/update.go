// Package mutation models the three ways a document can be updated: full
// replacement, shallow merge of top-level keys, and an in-place mutator
// applied to a draft copy.
package mutation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/goliatone/go-timetravel/patch"
)

// ErrNilFunc indicates a Func update was built without a mutator.
var ErrNilFunc = errors.New("mutation: mutator is nil")

// Kind tags an Update.
type Kind int

const (
	KindReplace Kind = iota + 1
	KindMerge
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindReplace:
		return "replace"
	case KindMerge:
		return "merge"
	case KindFunc:
		return "func"
	default:
		return "unknown"
	}
}

// Func edits draft in place. draft is a private deep copy of the current
// document; returning an error aborts the update.
type Func func(draft map[string]any) error

// Update is a resolved description of one mutation.
type Update struct {
	kind Kind
	data map[string]any
	fn   Func
	name string
}

// Replace builds an update that overwrites the whole document.
func Replace(doc map[string]any) Update {
	return Update{kind: KindReplace, data: patch.CloneDocument(doc)}
}

// Merge builds an update that overwrites only the given top-level keys.
func Merge(partial map[string]any) Update {
	return Update{kind: KindMerge, data: patch.CloneDocument(partial)}
}

// Apply builds an update from a mutator. The action name is derived from
// the function name when fn is a named function.
func Apply(fn Func) Update {
	return Update{kind: KindFunc, fn: fn}
}

// Named builds a mutator update with an explicit action name.
func Named(name string, fn Func) Update {
	return Update{kind: KindFunc, fn: fn, name: strings.TrimSpace(name)}
}

// WithName returns a copy of u carrying an explicit action name.
func (u Update) WithName(name string) Update {
	u.name = strings.TrimSpace(name)
	return u
}

// Kind reports the update variant.
func (u Update) Kind() Kind {
	return u.kind
}

// Keys lists the top-level keys a Merge touches, sorted. Other variants
// return nil.
func (u Update) Keys() []string {
	if u.kind != KindMerge {
		return nil
	}
	keys := make([]string, 0, len(u.data))
	for key := range u.data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// ChangedKeys lists the Merge keys whose value differs from current, sorted.
// A key missing from current counts as changed.
func (u Update) ChangedKeys(current map[string]any) []string {
	keys := u.Keys()
	return slices.DeleteFunc(keys, func(key string) bool {
		existing, ok := current[key]
		return ok && patch.Equal(existing, u.data[key])
	})
}

// Resolve computes the post-state for current. The result never aliases
// current or the update's own payload.
func (u Update) Resolve(current map[string]any) (map[string]any, error) {
	switch u.kind {
	case KindReplace:
		return patch.CloneDocument(u.data), nil
	case KindMerge:
		out := patch.CloneDocument(current)
		for key, value := range u.data {
			out[key] = patch.Clone(value)
		}
		return out, nil
	case KindFunc:
		if u.fn == nil {
			return nil, ErrNilFunc
		}
		draft := patch.CloneDocument(current)
		if err := u.fn(draft); err != nil {
			return nil, err
		}
		return draft, nil
	default:
		return nil, fmt.Errorf("mutation: unknown update kind %d", u.kind)
	}
}

// ActionName derives a human readable label for logs. Merges name every key
// they carry; use ActionNameFor to name only the keys that change.
func (u Update) ActionName() string {
	return u.label(u.Keys)
}

// ActionNameFor is ActionName with merges naming only the keys that differ
// from current.
func (u Update) ActionNameFor(current map[string]any) string {
	return u.label(func() []string { return u.ChangedKeys(current) })
}

func (u Update) label(keys func() []string) string {
	if u.name != "" {
		return u.name
	}
	switch u.kind {
	case KindMerge:
		return "set(" + strings.Join(keys(), ", ") + ")"
	case KindFunc:
		return FuncName(u.fn)
	default:
		return "set()"
	}
}

var closureName = regexp.MustCompile(`(^|\.)func\d+(\.\d+)*$`)

// FuncName returns the short name of a named function, or "anonymous" for
// closures and nil.
func FuncName(fn any) string {
	if fn == nil {
		return "anonymous"
	}
	value := reflect.ValueOf(fn)
	if value.Kind() != reflect.Func || value.IsNil() {
		return "anonymous"
	}
	info := runtime.FuncForPC(value.Pointer())
	if info == nil {
		return "anonymous"
	}
	full := info.Name()
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		full = full[idx+1:]
	}
	full = strings.TrimSuffix(full, "-fm")
	if closureName.MatchString(full) {
		return "anonymous"
	}
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		full = full[idx+1:]
	}
	if full == "" {
		return "anonymous"
	}
	return full
}
