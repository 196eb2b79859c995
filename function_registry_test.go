package timetravel

import (
	"slices"
	"testing"
)

func TestFunctionRegistryRegisterAndCall(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Upper", func(args ...any) (any, error) { return len(args), nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("upper", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function to be rejected")
	}

	got, err := registry.Call("UPPER", 1, 2)
	if err != nil || got != 2 {
		t.Fatalf("expected 2, got %v (%v)", got, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected error for unregistered function")
	}
}

func TestFunctionRegistryCloneIsIndependent(t *testing.T) {
	registry := NewDocumentFunctionRegistry()
	clone := registry.Clone()
	clone.Remove("fields")

	if !registry.Has("fields") {
		t.Fatalf("expected original registry unaffected")
	}
	if names := clone.Names(); !slices.Equal(names, []string{"exists", "lookup"}) {
		t.Fatalf("unexpected clone names: %v", names)
	}
}

func TestDocumentFunctions(t *testing.T) {
	doc := map[string]any{"user": map[string]any{"name": "ada"}, "count": 1}
	registry := NewDocumentFunctionRegistry()

	cases := []struct {
		name string
		fn   string
		args []any
		want any
	}{
		{name: "nested lookup", fn: "lookup", args: []any{doc, "user.name"}, want: "ada"},
		{name: "missing lookup", fn: "lookup", args: []any{doc, "user.email"}, want: nil},
		{name: "fallback", fn: "lookup", args: []any{doc, "user.email", "n/a"}, want: "n/a"},
		{name: "exists", fn: "exists", args: []any{doc, "user.name"}, want: true},
		{name: "scalar parent", fn: "exists", args: []any{doc, "count.value"}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := registry.Call(tc.fn, tc.args...)
			if err != nil {
				t.Fatalf("call: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	fields, err := registry.Call("fields", doc)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if !slices.Equal(fields.([]any), []any{"count", "user"}) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, err := registry.Call("lookup", doc, 3); err == nil {
		t.Fatalf("expected non-string path to fail")
	}
}

func TestWithCustomFunctionCreatesRegistry(t *testing.T) {
	s := newTestStore(t, WithCustomFunction("double", func(args ...any) (any, error) {
		return args[0].(int) * 2, nil
	}))
	resp, err := s.Query("double(4)")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if resp.Value != 8 {
		t.Fatalf("expected 8, got %v", resp.Value)
	}
}
