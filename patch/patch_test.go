package patch

import (
	"errors"
	"reflect"
	"testing"
)

func TestComputeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pre  map[string]any
		post map[string]any
	}{
		{
			name: "scalar replace",
			pre:  map[string]any{"count": 1},
			post: map[string]any{"count": 2},
		},
		{
			name: "add and remove",
			pre:  map[string]any{"a": 1, "b": "gone"},
			post: map[string]any{"a": 1, "c": true},
		},
		{
			name: "nested maps",
			pre: map[string]any{
				"user": map[string]any{"name": "ada", "prefs": map[string]any{"theme": "dark"}},
			},
			post: map[string]any{
				"user": map[string]any{"name": "ada", "prefs": map[string]any{"theme": "light", "font": 12}},
			},
		},
		{
			name: "map replaced by scalar",
			pre:  map[string]any{"value": map[string]any{"x": 1}},
			post: map[string]any{"value": "flat"},
		},
		{
			name: "slice replaced whole",
			pre:  map[string]any{"items": []any{1, 2, 3}},
			post: map[string]any{"items": []any{1, 2, 3, 4}},
		},
		{
			name: "nil pre",
			pre:  nil,
			post: map[string]any{"fresh": 1},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pair, err := Compute(tc.pre, tc.post)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if pair.Empty() {
				t.Fatalf("expected non-empty pair")
			}

			forward, err := Apply(tc.pre, pair.Forward)
			if err != nil {
				t.Fatalf("apply forward: %v", err)
			}
			if !reflect.DeepEqual(forward, CloneDocument(tc.post)) {
				t.Fatalf("forward mismatch:\nwant: %#v\n got: %#v", tc.post, forward)
			}

			inverse, err := Apply(forward, pair.Inverse)
			if err != nil {
				t.Fatalf("apply inverse: %v", err)
			}
			if !reflect.DeepEqual(inverse, CloneDocument(tc.pre)) {
				t.Fatalf("inverse mismatch:\nwant: %#v\n got: %#v", tc.pre, inverse)
			}
		})
	}
}

func TestComputeNoChangeIsEmpty(t *testing.T) {
	doc := map[string]any{"a": 1, "nested": map[string]any{"list": []any{"x"}}}
	pair, err := Compute(doc, Clone(doc))
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !pair.Empty() {
		t.Fatalf("expected empty pair, got %+v", pair)
	}
}

func TestComputeTreatsSlicesAtomically(t *testing.T) {
	pair, err := Compute(
		map[string]any{"items": []any{1, 2}},
		map[string]any{"items": []any{1, 3}},
	)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(pair.Forward) != 1 {
		t.Fatalf("expected one forward op, got %d", len(pair.Forward))
	}
	op := pair.Forward[0]
	if op.Op != OpReplace || op.PathString() != "/items" {
		t.Fatalf("expected replace /items, got %s", op)
	}
}

func TestComputeRejectsCallables(t *testing.T) {
	_, err := Compute(map[string]any{}, map[string]any{"fn": func() {}})
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestComputeDoesNotAliasValues(t *testing.T) {
	post := map[string]any{"list": []any{"a"}}
	pair, err := Compute(map[string]any{}, post)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	post["list"].([]any)[0] = "mutated"
	if got := pair.Forward[0].Value.([]any)[0]; got != "a" {
		t.Fatalf("expected captured value to be detached, got %v", got)
	}
}

func TestApplyErrors(t *testing.T) {
	doc := map[string]any{"a": 1}

	if _, err := Apply(doc, []Operation{{Op: OpRemove, Path: []string{"missing"}}}); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound for remove, got %v", err)
	}
	if _, err := Apply(doc, []Operation{{Op: OpReplace, Path: []string{"a", "b"}, Value: 1}}); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound for nested replace, got %v", err)
	}
	if _, err := Apply(doc, []Operation{{Op: "move", Path: []string{"a"}}}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if _, err := Apply(doc, []Operation{{Op: OpAdd}}); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for empty path, got %v", err)
	}
	if doc["a"] != 1 {
		t.Fatalf("expected source document untouched, got %v", doc)
	}
}

func TestCloneDetachesNestedValues(t *testing.T) {
	type point struct {
		X, Y int
		Tags []string
	}
	src := map[string]any{
		"point":  &point{X: 1, Tags: []string{"a"}},
		"nested": map[string]any{"n": []any{map[string]any{"deep": true}}},
	}
	dst := Clone(src)

	dst["point"].(*point).Tags[0] = "b"
	dst["nested"].(map[string]any)["n"].([]any)[0].(map[string]any)["deep"] = false

	if src["point"].(*point).Tags[0] != "a" {
		t.Fatalf("expected struct pointer slice detached")
	}
	if src["nested"].(map[string]any)["n"].([]any)[0].(map[string]any)["deep"] != true {
		t.Fatalf("expected nested map detached")
	}
}

func TestOperationPathString(t *testing.T) {
	op := Operation{Op: OpAdd, Path: []string{"a/b", "c~d"}}
	if got := op.PathString(); got != "/a~1b/c~0d" {
		t.Fatalf("expected escaped pointer, got %q", got)
	}
	if got := (Operation{}).PathString(); got != "/" {
		t.Fatalf("expected root pointer, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(map[string]any{"ok": []any{1, "two", map[string]any{}}}); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
	if err := Validate([]any{make(chan int)}); !errors.Is(err, ErrUnsupportedValue) {
		t.Fatalf("expected ErrUnsupportedValue for channel, got %v", err)
	}
}
