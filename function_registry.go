package timetravel

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by lower-cased name. It is
// safe for concurrent use.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewDocumentFunctionRegistry returns a registry preloaded with document
// helpers:
//
//	lookup(doc, "a.b.c" [, fallback])  nested value by dotted path
//	exists(doc, "a.b.c")               reports whether the path exists
//	fields(doc)                        sorted top-level keys
func NewDocumentFunctionRegistry() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("lookup", docLookup)
	_ = r.Register("exists", docExists)
	_ = r.Register("fields", docFields)
	return r
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("timetravel: function %q is nil", name)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("timetravel: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("timetravel: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Remove drops the function registered under name. It reports whether one
// was present.
func (r *FunctionRegistry) Remove(name string) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	_, ok := r.functions[key]
	delete(r.functions, key)
	return ok
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[strings.ToLower(name)]
	return ok
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("timetravel: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("timetravel: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// WithFunctionRegistry configures the store to use registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the store.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func docLookup(args ...any) (any, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, fmt.Errorf("timetravel: lookup expects 2 or 3 arguments, got %d", len(args))
	}
	value, ok, err := lookupPath(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if !ok && len(args) == 3 {
		return args[2], nil
	}
	return value, nil
}

func docExists(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("timetravel: exists expects 2 arguments, got %d", len(args))
	}
	_, ok, err := lookupPath(args[0], args[1])
	return ok, err
}

func docFields(args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("timetravel: fields expects 1 argument, got %d", len(args))
	}
	doc, ok := args[0].(map[string]any)
	if !ok {
		return []any{}, nil
	}
	names := make([]string, 0, len(doc))
	for key := range doc {
		names = append(names, key)
	}
	slices.Sort(names)
	out := make([]any, len(names))
	for i, name := range names {
		out[i] = name
	}
	return out, nil
}

func lookupPath(doc, path any) (any, bool, error) {
	dotted, ok := path.(string)
	if !ok {
		return nil, false, fmt.Errorf("timetravel: path must be a string, got %T", path)
	}
	current := doc
	for _, segment := range strings.Split(dotted, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		current, ok = node[segment]
		if !ok {
			return nil, false, nil
		}
	}
	return current, true, nil
}
