package timetravel

import (
	"fmt"
	"slices"
	"sync"
)

// Registry tracks live stores by name. It is owned by the composition root
// and safe for concurrent use; the stores it holds are not.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]*Store
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: map[string]*Store{}}
}

// Create builds a store with New and registers it under its name.
func (r *Registry) Create(initial map[string]any, opts ...Option) (*Store, error) {
	store, err := New(initial, opts...)
	if err != nil {
		return nil, err
	}
	if err := r.Register(store); err != nil {
		return nil, err
	}
	return store, nil
}

// Register adds store under store.Name().
func (r *Registry) Register(store *Store) error {
	if store == nil {
		return fmt.Errorf("timetravel: register nil store")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores == nil {
		r.stores = map[string]*Store{}
	}
	if _, exists := r.stores[store.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStore, store.Name())
	}
	r.stores[store.Name()] = store
	return nil
}

// Lookup returns the store registered under name.
func (r *Registry) Lookup(name string) (*Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStoreNotFound, name)
	}
	return store, nil
}

// Names returns registered names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Remove drops name and reports whether it was registered.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stores[name]
	delete(r.stores, name)
	return ok
}
