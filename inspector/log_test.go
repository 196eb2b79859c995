package inspector

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-timetravel/mutation"
	"github.com/goliatone/go-timetravel/patch"
)

func addTodo(draft map[string]any) error {
	draft["todos"] = append(draft["todos"].([]any), "x")
	return nil
}

func TestRecordDerivesNameAndPatches(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	log := New(WithClock(func() time.Time { return fixed }), WithIDGenerator(func() string { return "id-1" }))

	pre := map[string]any{"todos": []any{}}
	post := map[string]any{"todos": []any{"x"}}
	entry := log.Record(mutation.Apply(addTodo), pre, post)

	if entry.ID != "id-1" || !entry.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected id/timestamp: %+v", entry)
	}
	if entry.ActionName != "addTodo" {
		t.Fatalf("expected action name addTodo, got %q", entry.ActionName)
	}
	if len(entry.Patches) != 1 || entry.Patches[0].Op != patch.OpReplace || entry.Patches[0].PathString() != "/todos" {
		t.Fatalf("unexpected patches: %+v", entry.Patches)
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	n := 0
	log := New(WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("e%d", n)
	}))
	for i := 0; i < 210; i++ {
		log.Record(mutation.Merge(map[string]any{"i": i}), map[string]any{"i": i - 1}, map[string]any{"i": i})
	}
	entries := log.Entries()
	if len(entries) != DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", DefaultCapacity, len(entries))
	}
	if entries[0].ID != "e11" || entries[len(entries)-1].ID != "e210" {
		t.Fatalf("expected oldest 10 evicted, got first=%s last=%s", entries[0].ID, entries[len(entries)-1].ID)
	}
}

func TestRecordRecoversPatchFailures(t *testing.T) {
	var reported []error
	log := New(WithErrorHandler(func(err error) { reported = append(reported, err) }))

	entry := log.Record(mutation.Merge(map[string]any{"fn": 1}), map[string]any{}, map[string]any{"fn": func() {}})
	if entry.Patches == nil || len(entry.Patches) != 0 {
		t.Fatalf("expected empty non-nil patch list, got %#v", entry.Patches)
	}
	if len(reported) != 1 || !errors.Is(reported[0], patch.ErrUnsupportedValue) {
		t.Fatalf("expected reported ErrUnsupportedValue, got %v", reported)
	}
	if log.Len() != 1 {
		t.Fatalf("expected entry recorded despite failure")
	}
}

func TestEntriesAreDefensiveCopies(t *testing.T) {
	log := New()
	log.Record(mutation.Merge(map[string]any{"a": 1}), map[string]any{}, map[string]any{"a": 1})

	entries := log.Entries()
	entries[0].ActionName = "changed"
	entries[0].Patches[0].Value = 99

	again := log.Entries()
	if again[0].ActionName != "set(a)" || again[0].Patches[0].Value != 1 {
		t.Fatalf("expected internal entry untouched, got %+v", again[0])
	}
}

func TestClearAndSubscribe(t *testing.T) {
	log := New(WithCapacity(5))
	var seen []string
	cancel := log.Subscribe(func(entry Entry) {
		seen = append(seen, entry.ActionName)
	})

	log.Record(mutation.Replace(map[string]any{"a": 1}), nil, map[string]any{"a": 1})
	log.Record(mutation.Named("reset", func(map[string]any) error { return nil }), map[string]any{"a": 1}, map[string]any{"a": 1})
	cancel()
	log.Record(mutation.Merge(map[string]any{"b": 1}), nil, map[string]any{"b": 1})

	if len(seen) != 2 || seen[0] != "set()" || seen[1] != "reset" {
		t.Fatalf("unexpected notifications: %v", seen)
	}
	if log.Capacity() != 5 || log.Len() != 3 {
		t.Fatalf("unexpected capacity/len: %d/%d", log.Capacity(), log.Len())
	}

	filtered := log.Filter(func(entry Entry) bool { return len(entry.Patches) == 0 })
	if len(filtered) != 1 || filtered[0].ActionName != "reset" {
		t.Fatalf("unexpected filter result: %+v", filtered)
	}

	log.Clear()
	if log.Len() != 0 || len(log.Entries()) != 0 {
		t.Fatalf("expected cleared log")
	}
}
