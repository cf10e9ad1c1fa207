package predicates

import (
	"fmt"
	"sort"
	"sync"

	"github.com/classkit/minion/pkg/assert"
)

// Registry resolves predicates by name. Class files reference predicates
// this way; hand-written specifications may too. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	items map[string]assert.Predicate
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]assert.Predicate)}
}

// Register adds a named predicate. Registering a name twice is an error.
func (r *Registry) Register(name string, p assert.Predicate) error {
	if name == "" {
		return fmt.Errorf("predicates: name must not be empty")
	}
	if p == nil {
		return fmt.Errorf("predicates: predicate %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		return fmt.Errorf("predicates: %q already registered", name)
	}
	r.items[name] = p
	return nil
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (assert.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[name]
	return p, ok
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultRegistry = NewRegistry()

func init() {
	builtins := map[string]assert.Predicate{
		"defined":      Defined,
		"is_int":       IsInt,
		"is_integer":   IsInt,
		"is_number":    IsNumber,
		"is_string":    IsString,
		"is_bool":      IsBool,
		"is_slice":     IsSlice,
		"is_map":       IsMap,
		"is_callable":  IsCallable,
		"non_empty":    NonEmpty,
		"positive":     Positive,
		"non_negative": NonNegative,
	}
	for name, p := range builtins {
		if err := defaultRegistry.Register(name, p); err != nil {
			panic(err)
		}
	}
}

// Default returns the process-wide registry, pre-seeded with the
// builtin predicates.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a predicate to the default registry.
func Register(name string, p assert.Predicate) error {
	return defaultRegistry.Register(name, p)
}

// Lookup resolves a predicate from the default registry.
func Lookup(name string) (assert.Predicate, bool) {
	return defaultRegistry.Lookup(name)
}

// Names lists the default registry's predicate names, sorted.
func Names() []string {
	return defaultRegistry.Names()
}
