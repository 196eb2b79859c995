package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one activity occurrence fanned out to hooks. IDs stay strings so
// the store never depends on a particular UUID type.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Valid reports whether the event carries a verb and an object reference.
func (e Event) Valid() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Compact returns a copy of hooks without nil entries, or nil when none
// remain.
func Compact(hooks Hooks) Hooks {
	var out Hooks
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes event and forwards it to every hook. Invalid events are
// dropped silently. Failures are joined, each tagged with the hook index.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, fmt.Errorf("activity: hook %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Match wraps hook so it only sees events whose verb equals one of verbs, or
// starts with it when the entry ends in a dot ("branch." matches every branch
// lifecycle verb).
func Match(hook ActivityHook, verbs ...string) ActivityHook {
	if hook == nil {
		return nil
	}
	patterns := make([]string, 0, len(verbs))
	for _, verb := range verbs {
		if verb = strings.TrimSpace(verb); verb != "" {
			patterns = append(patterns, verb)
		}
	}
	return HookFunc(func(ctx context.Context, event Event) error {
		for _, pattern := range patterns {
			if event.Verb == pattern || (strings.HasSuffix(pattern, ".") && strings.HasPrefix(event.Verb, pattern)) {
				return hook.Notify(ctx, event)
			}
		}
		return nil
	})
}

// NormalizeEvent trims identifiers, copies metadata and recipients and stamps
// a missing OccurredAt with time.Now.
func NormalizeEvent(event Event) Event {
	return normalizeAt(event, time.Now)
}

func normalizeAt(event Event, now func() time.Time) Event {
	out := event
	for _, field := range []*string{
		&out.Verb, &out.ActorID, &out.UserID, &out.TenantID,
		&out.ObjectType, &out.ObjectID, &out.Channel, &out.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	out.Metadata = cloneMap(event.Metadata)
	out.Recipients = nil
	if len(event.Recipients) > 0 {
		out.Recipients = append([]string{}, event.Recipients...)
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = now()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
