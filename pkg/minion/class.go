package minion

import "fmt"

// Class is a compiled specification. It is immutable after Minionize
// returns and safe for concurrent construction and dispatch.
type Class struct {
	name       string
	iface      []string
	schema     *schema
	dispatch   *dispatch
	params     *ParamSet
	buildArgs  BuildArgsFunc
	classMeths map[string]ClassMethod
	customNew  bool
	emitter    EventEmitter
}

// Name returns the registered class name, empty for anonymous classes.
func (c *Class) Name() string {
	return c.name
}

// DisplayName returns the class name, or a placeholder for anonymous
// classes so error text stays readable.
func (c *Class) DisplayName() string {
	if c.name == "" {
		return "<anonymous>"
	}
	return c.name
}

// Interface returns the public selectors in declaration order.
func (c *Class) Interface() []string {
	out := make([]string, len(c.iface))
	copy(out, c.iface)
	return out
}

// AttributeNames returns the sealed record's keys in schema order.
func (c *Class) AttributeNames() []string {
	out := make([]string, len(c.schema.order))
	copy(out, c.schema.order)
	return out
}

// ParamNames returns the construct_with parameter names in declaration
// order.
func (c *Class) ParamNames() []string {
	return c.params.Names()
}

// SemiprivateSelectors returns the internal surface's selectors,
// including the generated helpers, sorted.
func (c *Class) SemiprivateSelectors() []string {
	return sortedKeys(c.dispatch.semiprivate)
}

// ClassSelectors returns the class-level selectors, sorted.
func (c *Class) ClassSelectors() []string {
	return sortedKeys(c.classMeths)
}

// Call dispatches a class-level selector such as new. Unknown selectors
// fail with the classic locate shape calling code matches on.
func (c *Class) Call(selector string, args ...any) (any, error) {
	cm, ok := c.classMeths[selector]
	if !ok {
		return nil, &NoSuchMethodError{Class: c.DisplayName(), Selector: selector, Surface: SurfaceClass}
	}
	return cm(c, args...)
}

// New constructs an instance from named parameters. When the
// specification supplied a custom new, that constructor runs instead of
// the default protocol.
func (c *Class) New(params map[string]any) (*Instance, error) {
	if c.customNew {
		return c.callCustomNew([]any{params})
	}
	return c.construct(params)
}

// Construct builds an instance from raw call arguments: positional when
// build_args is declared, otherwise nothing or a single named map.
func (c *Class) Construct(args ...any) (*Instance, error) {
	if c.customNew {
		return c.callCustomNew(args)
	}
	named, err := c.adaptArgs(args)
	if err != nil {
		return nil, err
	}
	return c.construct(named)
}

func (c *Class) callCustomNew(args []any) (*Instance, error) {
	result, err := c.classMeths["new"](c, args...)
	if err != nil {
		return nil, err
	}
	inst, ok := result.(*Instance)
	if !ok {
		return nil, fmt.Errorf("minion: class %q: custom new returned %T, not an instance", c.DisplayName(), result)
	}
	return inst, nil
}

// adaptArgs turns raw construction arguments into the named parameter
// mapping the protocol consumes.
func (c *Class) adaptArgs(args []any) (map[string]any, error) {
	if c.buildArgs != nil {
		return c.buildArgs(args...)
	}
	switch len(args) {
	case 0:
		return map[string]any{}, nil
	case 1:
		if args[0] == nil {
			return map[string]any{}, nil
		}
		if m, ok := args[0].(map[string]any); ok {
			return m, nil
		}
		return nil, fmt.Errorf("minion: class %q: positional construction requires build_args", c.DisplayName())
	default:
		return nil, fmt.Errorf("minion: class %q: positional construction requires build_args", c.DisplayName())
	}
}

// Util exposes the low-level construction machinery so hand-written
// constructors can reuse sealing, defaulting and assertion checking
// without the default protocol.
func (c *Class) Util() *Util {
	return &Util{class: c}
}

// Util is the utility surface of one class.
type Util struct {
	class *Class
}

// NewObject builds a sealed instance pre-populated with defaults and
// then overwritten with rawAttrs, keyed by attribute name. Assertions
// are skipped; the seal is not. Use Assert for validation.
func (u *Util) NewObject(rawAttrs map[string]any) (*Instance, error) {
	inst := u.class.allocate()
	for _, name := range sortedKeys(rawAttrs) {
		if !u.class.schema.has(name) {
			return nil, &SealedRecordError{Class: u.class.DisplayName(), Key: name, Op: "set"}
		}
		inst.attrs[name] = rawAttrs[name]
	}
	u.class.emitConstructed(inst)
	return inst, nil
}

// Build invokes the composed BUILD hook with the instance and the raw
// named parameters. A class without a hook accepts the call silently.
func (u *Util) Build(inst *Instance, params map[string]any) error {
	_, err := inst.Semiprivate().Call(selectorBuild, params)
	return err
}

// Assert runs the declared predicates of one construct_with parameter
// against a value.
func (u *Util) Assert(paramName string, value any) error {
	p, ok := u.class.params.Get(paramName)
	if !ok {
		return fmt.Errorf("minion: class %q: no construct_with parameter %q declared", u.class.DisplayName(), paramName)
	}
	if err := p.Assert.Validate(value); err != nil {
		return &AssertionError{Name: paramName, Description: failureDescription(err)}
	}
	return nil
}
