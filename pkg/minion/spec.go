// Package minion compiles declarative class specifications into sealed,
// dispatch-restricted classes. A specification names a public interface,
// an implementation, optional roles and construction requirements; the
// build pipeline validates it, merges the sources, and produces a Class
// whose instances only accept declared attribute keys and declared
// selectors.
package minion

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/classkit/minion/pkg/assert"
)

// Method is an instance method body. It receives the instance it is
// bound to plus the caller's arguments.
type Method func(self *Instance, args ...any) (any, error)

// ClassMethod is a class-level method body, used for custom
// constructors and other class-scoped selectors.
type ClassMethod func(cls *Class, args ...any) (any, error)

// BuildArgsFunc adapts positional construction arguments into the named
// parameter mapping the constructor protocol consumes.
type BuildArgsFunc func(args ...any) (map[string]any, error)

// Handles declares forwarding for the value held by an attribute.
// Exactly one of the three forms may be set: Selectors forwards each
// listed selector under its own name, Renames maps an exposed selector
// to a differently named target selector on the delegate, and Role
// expands to the method selectors the named role declares.
type Handles struct {
	Selectors []string
	Renames   map[string]string
	Role      string
}

// Attr describes one attribute of an implementation or role.
type Attr struct {
	// Default is a literal initial value. Leave nil for no default.
	Default any
	// DefaultFunc produces a fresh default per instance. Use it for
	// reference-like defaults so instances never share state.
	DefaultFunc func() any
	// Assert validates values stored through init args or mutation.
	Assert *assert.Set
	// InitArg names the constructor parameter bound to this attribute.
	InitArg string
	// MapInitArg transforms the incoming init arg value before storage.
	MapInitArg func(value any) any
	// Reader exposes an accessor method under the given selector.
	Reader string
	// Handles forwards selectors to the value held here.
	Handles *Handles
}

// Impl is the primary method and attribute source of a class.
type Impl struct {
	Has         map[string]*Attr
	Methods     map[string]Method
	Semiprivate []string
}

// Requires lists the capabilities a role demands from whatever it is
// composed with.
type Requires struct {
	Methods    []string
	Attributes []string
}

// Role is a reusable method and attribute source with requirements.
type Role struct {
	Name        string
	Has         map[string]*Attr
	Methods     map[string]Method
	Semiprivate []string
	Requires    Requires
}

// Param describes one required construction parameter.
type Param struct {
	// Assert validates the supplied value, clauses in declaration order.
	Assert *assert.Set
	// Attribute materializes the parameter as an attribute under the
	// given name. Empty means the parameter is constructor-only.
	Attribute string
	// Reader exposes an accessor for the materialized attribute.
	Reader string
}

// ParamSet is an ordered mapping of parameter name to descriptor.
// Construct with NewParamSet and chain Add calls; defects such as
// duplicate names surface when the specification is validated.
type ParamSet struct {
	params *orderedmap.OrderedMap[string, *Param]
	defect string
}

// NewParamSet returns an empty parameter set.
func NewParamSet() *ParamSet {
	return &ParamSet{params: orderedmap.New[string, *Param]()}
}

// Add appends a parameter, preserving declaration order. The receiver
// is returned for chaining.
func (ps *ParamSet) Add(name string, p *Param) *ParamSet {
	if ps.defect != "" {
		return ps
	}
	switch {
	case name == "":
		ps.defect = "construct_with parameter with empty name"
	case p == nil:
		ps.defect = "construct_with parameter " + name + " has a nil descriptor"
	default:
		if _, exists := ps.params.Get(name); exists {
			ps.defect = "construct_with parameter " + name + " declared twice"
		} else {
			ps.params.Set(name, p)
		}
	}
	return ps
}

// Len returns the number of parameters. A nil set is empty.
func (ps *ParamSet) Len() int {
	if ps == nil {
		return 0
	}
	return ps.params.Len()
}

// Get returns the descriptor declared under name.
func (ps *ParamSet) Get(name string) (*Param, bool) {
	if ps == nil {
		return nil, false
	}
	return ps.params.Get(name)
}

// Names returns the parameter names in declaration order.
func (ps *ParamSet) Names() []string {
	if ps == nil {
		return nil
	}
	out := make([]string, 0, ps.params.Len())
	for pair := ps.params.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// each walks the parameters in declaration order.
func (ps *ParamSet) each(fn func(name string, p *Param) error) error {
	if ps == nil {
		return nil
	}
	for pair := ps.params.Oldest(); pair != nil; pair = pair.Next() {
		if err := fn(pair.Key, pair.Value); err != nil {
			return err
		}
	}
	return nil
}

// Spec is the declarative input to Minionize. It is consumed exactly
// once; the pipeline never mutates it.
type Spec struct {
	// Name registers the compiled class. Empty skips registration.
	Name string
	// Interface lists the selectors callable on instances. Must be
	// non-empty and fully resolvable from the implementation and roles.
	Interface []string
	// Implementation is the primary source, inline or by registered
	// name via ImplName.
	Implementation *Impl
	ImplName       string
	// Roles are additional sources, inline or by registered name.
	Roles     []*Role
	RoleNames []string
	// ConstructWith declares the required construction parameters.
	ConstructWith *ParamSet
	// BuildArgs adapts positional constructor arguments. Optional.
	BuildArgs BuildArgsFunc
	// ClassMethods binds class-level selectors. Supplying "new" here
	// replaces the default construction protocol.
	ClassMethods map[string]ClassMethod
}
