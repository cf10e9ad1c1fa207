package minion

import (
	"fmt"
	"sync"
)

// Registry is a process-wide table of compiled classes plus the named
// implementations and roles that specifications may reference instead
// of inlining. Classes register once; re-registration is an error.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	impls   map[string]*Impl
	roles   map[string]*Role
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
		impls:   make(map[string]*Impl),
		roles:   make(map[string]*Role),
	}
}

// RegisterClass adds a compiled class under its name.
func (r *Registry) RegisterClass(c *Class) error {
	if c == nil || c.name == "" {
		return fmt.Errorf("minion: cannot register an unnamed class")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.classes[c.name]; exists {
		return &AlreadyRegisteredError{Name: c.name}
	}
	r.classes[c.name] = c
	return nil
}

// LookupClass returns the class registered under name.
func (r *Registry) LookupClass(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// ClassNames returns the registered class names, sorted.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.classes)
}

// RegisterImpl adds a named implementation for specs to reference.
func (r *Registry) RegisterImpl(name string, impl *Impl) error {
	if name == "" {
		return fmt.Errorf("minion: implementation name must not be empty")
	}
	if impl == nil {
		return fmt.Errorf("minion: implementation %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.impls[name]; exists {
		return &AlreadyRegisteredError{Name: name}
	}
	r.impls[name] = impl
	return nil
}

// LookupImpl returns the implementation registered under name.
func (r *Registry) LookupImpl(name string) (*Impl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.impls[name]
	return impl, ok
}

// ImplNames returns the registered implementation names, sorted.
func (r *Registry) ImplNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.impls)
}

// RegisterRole adds a named role for specs and handles declarations to
// reference.
func (r *Registry) RegisterRole(name string, role *Role) error {
	if name == "" {
		return fmt.Errorf("minion: role name must not be empty")
	}
	if role == nil {
		return fmt.Errorf("minion: role %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.roles[name]; exists {
		return &AlreadyRegisteredError{Name: name}
	}
	r.roles[name] = role
	return nil
}

// LookupRole returns the role registered under name. Roles without an
// inline Name are returned as a copy carrying the registered name, so
// composition reports read naturally.
func (r *Registry) LookupRole(name string) (*Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[name]
	if !ok {
		return nil, false
	}
	if role.Name == "" {
		named := *role
		named.Name = name
		return &named, true
	}
	return role, true
}

// RoleNames returns the registered role names, sorted.
func (r *Registry) RoleNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.roles)
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry Minionize uses
// unless WithRegistry overrides it.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Lookup resolves a class from the default registry.
func Lookup(name string) (*Class, bool) {
	return defaultRegistry.LookupClass(name)
}

// Names lists the classes registered in the default registry.
func Names() []string {
	return defaultRegistry.ClassNames()
}

// RegisterImpl adds a named implementation to the default registry.
func RegisterImpl(name string, impl *Impl) error {
	return defaultRegistry.RegisterImpl(name, impl)
}

// RegisterRole adds a named role to the default registry.
func RegisterRole(name string, role *Role) error {
	return defaultRegistry.RegisterRole(name, role)
}
