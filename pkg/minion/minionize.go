package minion

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Option adjusts how Minionize builds and registers a class.
type Option func(*builder) error

// WithRegistry directs registration and by-name resolution at reg
// instead of the process-wide default registry.
func WithRegistry(reg *Registry) Option {
	return func(b *builder) error {
		if reg == nil {
			return fmt.Errorf("minion: WithRegistry requires a registry")
		}
		b.registry = reg
		return nil
	}
}

// WithEmitter attaches an event emitter; the compiled class keeps it
// for construction events.
func WithEmitter(emitter EventEmitter) Option {
	return func(b *builder) error {
		if emitter == nil {
			return fmt.Errorf("minion: WithEmitter requires an emitter")
		}
		b.emitter = emitter
		return nil
	}
}

// WithLogger overrides the logger used for build events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) error {
		if logger == nil {
			return fmt.Errorf("minion: WithLogger requires a logger")
		}
		b.logger = logger
		return nil
	}
}

type builder struct {
	registry *Registry
	emitter  EventEmitter
	logger   *slog.Logger
}

// Minionize compiles a specification into a Class and, when the spec
// carries a name, registers it in the registry. The build is
// all-or-nothing: on any error no class is registered.
func Minionize(spec *Spec, opts ...Option) (*Class, error) {
	b := &builder{
		registry: defaultRegistry,
		emitter:  NoopEventEmitter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	name := ""
	if spec != nil {
		name = spec.Name
	}
	ctx, span := otel.Tracer("minion/build").Start(context.Background(), "Minionize", trace.WithAttributes(
		attribute.String("class.name", name),
	))
	defer span.End()

	cls, err := b.compile(spec)
	if err != nil {
		ev := NewEvent(EventClassCompileFailed, name, "", nil)
		ev.Err = err.Error()
		b.emitter.Emit(ctx, ev)
		b.logger.Error("minion.class.compile_failed",
			slog.String("class", name),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	b.emitter.Emit(ctx, NewEvent(EventClassCompiled, cls.DisplayName(), "", map[string]any{
		"interface":  cls.Interface(),
		"attributes": cls.AttributeNames(),
	}))
	b.logger.Debug("minion.class.compiled",
		slog.String("class", cls.DisplayName()),
		slog.Int("public_selectors", len(cls.dispatch.public)),
		slog.Int("attributes", len(cls.schema.order)),
	)

	if cls.name != "" {
		if err := b.registry.RegisterClass(cls); err != nil {
			b.logger.Error("minion.class.register_failed",
				slog.String("class", cls.name),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		b.emitter.Emit(ctx, NewEvent(EventClassRegistered, cls.name, "", nil))
		b.logger.Info("minion.class.registered", slog.String("class", cls.name))
	}

	return cls, nil
}

// compile drives the pipeline: validate, resolve sources, compose,
// build the schema, build dispatch, bind the constructor surface.
func (b *builder) compile(spec *Spec) (*Class, error) {
	if spec == nil {
		return nil, &SpecError{Detail: "no specification supplied"}
	}

	impl, roles, err := b.resolveSources(spec)
	if err != nil {
		return nil, err
	}
	if err := validateSpec(spec, impl, roles); err != nil {
		return nil, err
	}

	comp, err := compose(spec.Name, impl, roles, spec.ConstructWith)
	if err != nil {
		return nil, err
	}
	sch, err := buildSchema(spec.Name, comp, spec.ConstructWith)
	if err != nil {
		return nil, err
	}
	disp, err := buildDispatch(spec.Name, spec.Interface, comp, sch, b.registry)
	if err != nil {
		return nil, err
	}

	params := spec.ConstructWith
	if params == nil {
		params = NewParamSet()
	}

	cls := &Class{
		name:       spec.Name,
		iface:      append([]string(nil), spec.Interface...),
		schema:     sch,
		dispatch:   disp,
		params:     params,
		buildArgs:  spec.BuildArgs,
		classMeths: make(map[string]ClassMethod, len(spec.ClassMethods)+1),
		emitter:    b.emitter,
	}
	for sel, body := range spec.ClassMethods {
		cls.classMeths[sel] = body
	}
	if _, ok := cls.classMeths["new"]; ok {
		cls.customNew = true
	} else {
		cls.classMeths["new"] = defaultNew
	}

	return cls, nil
}

// resolveSources materializes by-name implementation and role
// references from the registry. Inline roles come first, named roles
// after, preserving each list's declaration order.
func (b *builder) resolveSources(spec *Spec) (*Impl, []*Role, error) {
	impl := spec.Implementation
	if spec.ImplName != "" {
		if impl != nil {
			return nil, nil, &SpecError{Class: spec.Name, Detail: "implementation given both inline and by name"}
		}
		registered, ok := b.registry.LookupImpl(spec.ImplName)
		if !ok {
			return nil, nil, &SpecError{Class: spec.Name, Detail: fmt.Sprintf("implementation %q is not registered", spec.ImplName)}
		}
		impl = registered
	}

	roles := append([]*Role(nil), spec.Roles...)
	for _, name := range spec.RoleNames {
		role, ok := b.registry.LookupRole(name)
		if !ok {
			return nil, nil, &SpecError{Class: spec.Name, Detail: fmt.Sprintf("role %q is not registered", name)}
		}
		roles = append(roles, role)
	}
	for i, role := range roles {
		if role == nil {
			return nil, nil, &SpecError{Class: spec.Name, Detail: fmt.Sprintf("role #%d is nil", i+1)}
		}
	}
	return impl, roles, nil
}

// validateSpec is the pure specification check: non-empty interface,
// at least one method source, well-formed parameter and method maps.
func validateSpec(spec *Spec, impl *Impl, roles []*Role) error {
	if len(spec.Interface) == 0 {
		return &SpecError{Class: spec.Name, Detail: "interface must not be empty"}
	}
	if impl == nil && len(roles) == 0 {
		return &SpecError{Class: spec.Name, Detail: "specification needs an implementation or at least one role"}
	}
	if spec.ConstructWith != nil && spec.ConstructWith.defect != "" {
		return &SpecError{Class: spec.Name, Detail: spec.ConstructWith.defect}
	}
	if impl != nil {
		if err := validateMethods(spec.Name, "implementation", impl.Methods); err != nil {
			return err
		}
	}
	for i, role := range roles {
		if err := validateMethods(spec.Name, roleLabel(role, i), role.Methods); err != nil {
			return err
		}
	}
	for sel, body := range spec.ClassMethods {
		if sel == "" {
			return &SpecError{Class: spec.Name, Detail: "class method with empty selector"}
		}
		if body == nil {
			return &SpecError{Class: spec.Name, Detail: fmt.Sprintf("class method %q has a nil body", sel)}
		}
	}
	return nil
}

func validateMethods(className, label string, methods map[string]Method) error {
	for _, sel := range sortedKeys(methods) {
		if sel == "" {
			return &SpecError{Class: className, Detail: label + " declares a method with an empty selector"}
		}
		if methods[sel] == nil {
			return &SpecError{Class: className, Detail: fmt.Sprintf("%s method %q has a nil body", label, sel)}
		}
	}
	return nil
}
