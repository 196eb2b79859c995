package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	timetravel "github.com/goliatone/go-timetravel"
)

// Document is the snapshot payload the Manager persists.
type Document = map[string]any

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for Meta.UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides uuid.NewString for snapshot ids.
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// Manager captures and restores live stores through a Store.
type Manager struct {
	Store Store[Document]
	now   func() time.Time
	newID func() string
}

// NewManager wraps store.
func NewManager(store Store[Document], opts ...Option) *Manager {
	m := &Manager{Store: store, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Save persists the live document of s under ref. A non-empty meta.ETag must
// match the stored one. An empty ref.Store defaults to s.Name().
func (m *Manager) Save(ctx context.Context, ref Ref, s *timetravel.Store, meta Meta) (Meta, error) {
	if m.Store == nil {
		return Meta{}, fmt.Errorf("snapshot: store is required")
	}
	if s == nil {
		return Meta{}, fmt.Errorf("snapshot: live store is required")
	}
	if ref.Store == "" {
		ref.Store = s.Name()
	}

	_, loadedMeta, ok, err := m.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: load %q: %w", ref.Store, err)
	}
	if !ok {
		loadedMeta = Meta{}
	}
	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	document := s.State()
	etag, err := computeETag(document)
	if err != nil {
		return loadedMeta, err
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	saveMeta.SnapshotID = m.newID()
	saveMeta.ETag = etag
	saveMeta.Branch = s.Branches().ActiveID()
	saveMeta.Position = s.Temporal().Position()
	if meta.UpdatedAt.IsZero() {
		saveMeta.UpdatedAt = m.now()
	}

	saved, err := m.Store.Save(ctx, ref, document, saveMeta)
	if err != nil {
		return loadedMeta, fmt.Errorf("snapshot: save %q: %w", ref.Store, err)
	}
	return saved, nil
}

// Restore replaces the live document of s with the snapshot stored under
// ref. The replacement is recorded on the active branch's timeline.
func (m *Manager) Restore(ctx context.Context, ref Ref, s *timetravel.Store) (Meta, error) {
	if m.Store == nil {
		return Meta{}, fmt.Errorf("snapshot: store is required")
	}
	if s == nil {
		return Meta{}, fmt.Errorf("snapshot: live store is required")
	}
	if ref.Store == "" {
		ref.Store = s.Name()
	}

	document, meta, ok, err := m.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("snapshot: load %q: %w", ref.Store, err)
	}
	if !ok {
		return Meta{}, fmt.Errorf("%w: %q", ErrNotFound, ref.Store)
	}
	if err := s.Replace(document); err != nil {
		return meta, fmt.Errorf("snapshot: restore %q: %w", ref.Store, err)
	}
	return meta, nil
}

// computeETag hashes the JSON encoding of doc. encoding/json sorts map keys,
// so equal documents share an ETag.
func computeETag(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("snapshot: etag: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8]), nil
}
