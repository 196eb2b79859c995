package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrETagMismatch = errors.New("snapshot: etag mismatch")
	ErrNotFound     = errors.New("snapshot: not found")
)

// Ref identifies one persisted snapshot for one store, optionally grouped
// under a scene.
type Ref struct {
	Store string
	Scene string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	Branch     string            `json:"branch,omitempty"`
	Position   int               `json:"position"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	store := strings.TrimSpace(r.Store)
	if store == "" {
		return "", fmt.Errorf("snapshot: store name is required")
	}
	if strings.Contains(store, "/") {
		return "", fmt.Errorf("snapshot: store name %q must not contain '/'", store)
	}
	scene := strings.TrimSpace(r.Scene)
	if scene == "" {
		return "store/" + store, nil
	}
	if strings.Contains(scene, "/") {
		return "", fmt.Errorf("snapshot: scene %q must not contain '/'", scene)
	}
	return fmt.Sprintf("scene/%s/%s", scene, store), nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
