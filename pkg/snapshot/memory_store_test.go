package snapshot_test

import (
	"context"
	"slices"
	"testing"

	"github.com/goliatone/go-timetravel/pkg/snapshot"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name    string
		ref     snapshot.Ref
		want    string
		wantErr bool
	}{
		{name: "store only", ref: snapshot.Ref{Store: "editor"}, want: "store/editor"},
		{name: "scene", ref: snapshot.Ref{Store: "editor", Scene: "intro"}, want: "scene/intro/editor"},
		{name: "trimmed", ref: snapshot.Ref{Store: " editor ", Scene: " "}, want: "store/editor"},
		{name: "missing store", ref: snapshot.Ref{Scene: "intro"}, wantErr: true},
		{name: "slash in store", ref: snapshot.Ref{Store: "a/b"}, wantErr: true},
		{name: "slash in scene", ref: snapshot.Ref{Store: "a", Scene: "x/y"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := snapshot.NewMemoryStore[map[string]any]()
	ref := snapshot.Ref{Store: "editor", Scene: "intro"}
	ctx := context.Background()

	if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
		t.Fatalf("expected empty load, got ok=%v err=%v", ok, err)
	}

	meta := snapshot.Meta{SnapshotID: "s1", ETag: "e1", Extra: map[string]string{"k": "v"}}
	saved, err := store.Save(ctx, ref, map[string]any{"title": "hello"}, meta)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	meta.Extra["k"] = "mutated"
	if saved.Extra["k"] != "v" {
		t.Fatalf("expected saved meta to be cloned, got %v", saved.Extra)
	}

	doc, loaded, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if doc["title"] != "hello" || loaded.SnapshotID != "s1" || loaded.Extra["k"] != "v" {
		t.Fatalf("unexpected record: %v %+v", doc, loaded)
	}
	if keys := store.Keys(); !slices.Equal(keys, []string{"scene/intro/editor"}) {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestMemoryStoreRejectsInvalidRef(t *testing.T) {
	var store snapshot.MemoryStore[int]
	if _, err := store.Save(context.Background(), snapshot.Ref{}, 1, snapshot.Meta{}); err == nil {
		t.Fatalf("expected invalid ref error")
	}
	if _, err := store.Save(context.Background(), snapshot.Ref{Store: "n"}, 1, snapshot.Meta{}); err != nil {
		t.Fatalf("expected zero-value store to accept saves, got %v", err)
	}
}
