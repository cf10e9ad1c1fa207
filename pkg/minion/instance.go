package minion

import "fmt"

// Callable is the selector-based call surface. Instances implement it,
// and forwarding targets must too: a handles entry resolves the held
// attribute value and re-invokes the target selector on it.
type Callable interface {
	Call(selector string, args ...any) (any, error)
}

// Instance is a sealed record produced by a compiled class. Its only
// readable and writable keys are the attribute names in the class
// schema; everything else is rejected. Method bodies mutate state
// through Get and Set, so the seal holds for them as well. Instances
// are not internally synchronized.
type Instance struct {
	class *Class
	id    string
	attrs map[string]any
}

// Class returns the compiled class this instance belongs to.
func (in *Instance) Class() *Class {
	return in.class
}

// ID returns the unique id assigned at construction.
func (in *Instance) ID() string {
	return in.id
}

// Get returns the value stored under a declared attribute.
func (in *Instance) Get(name string) (any, error) {
	if !in.class.schema.has(name) {
		return nil, &SealedRecordError{Class: in.class.DisplayName(), Key: name, Op: "get"}
	}
	return in.attrs[name], nil
}

// Set stores a value under a declared attribute, running the
// attribute's predicates first.
func (in *Instance) Set(name string, value any) error {
	attr, ok := in.class.schema.attrs[name]
	if !ok {
		return &SealedRecordError{Class: in.class.DisplayName(), Key: name, Op: "set"}
	}
	if err := attr.Assert.Validate(value); err != nil {
		return &AssertionError{Name: name, Description: failureDescription(err)}
	}
	in.attrs[name] = value
	return nil
}

// Call dispatches a public selector.
func (in *Instance) Call(selector string, args ...any) (any, error) {
	return in.invoke(SurfacePublic, in.class.dispatch.public, selector, args)
}

// Semiprivate returns the reserved handle for the internal call
// surface. Only code holding the instance can reach it.
func (in *Instance) Semiprivate() Handle {
	return Handle{inst: in}
}

// Handle is the reserved semiprivate call surface of one instance.
type Handle struct {
	inst *Instance
}

// Call dispatches a semiprivate selector, including the generated
// ASSERT and BUILD helpers.
func (h Handle) Call(selector string, args ...any) (any, error) {
	return h.inst.invoke(SurfaceSemiprivate, h.inst.class.dispatch.semiprivate, selector, args)
}

// Instance returns the instance the handle belongs to.
func (h Handle) Instance() *Instance {
	return h.inst
}

func (in *Instance) invoke(surface Surface, table map[string]boundMethod, selector string, args []any) (any, error) {
	entry, ok := table[selector]
	if !ok {
		return nil, &NoSuchMethodError{Class: in.class.DisplayName(), Selector: selector, Surface: surface}
	}
	if entry.forward != nil {
		held, err := in.Get(entry.forward.attr)
		if err != nil {
			return nil, err
		}
		delegate, ok := held.(Callable)
		if !ok {
			return nil, fmt.Errorf("minion: class %q: attribute %q holds %T, which cannot receive forwarded selector %q",
				in.class.DisplayName(), entry.forward.attr, held, entry.forward.target)
		}
		return delegate.Call(entry.forward.target, args...)
	}
	return entry.body(in, args...)
}

var _ Callable = (*Instance)(nil)
var _ Callable = Handle{}
