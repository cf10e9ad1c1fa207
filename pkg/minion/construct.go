package minion

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/classkit/minion/pkg/assert"
)

// allocate builds a sealed instance with every attribute set to its
// default. Producer defaults run fresh here, once per instance.
func (c *Class) allocate() *Instance {
	return &Instance{
		class: c,
		id:    uuid.NewString(),
		attrs: c.schema.materialize(),
	}
}

// construct runs the default construction protocol: validate the
// declared parameters, allocate with defaults, bind init args, then
// invoke the BUILD hook with the raw parameter mapping. Any failure
// aborts construction; no partial instance escapes.
func (c *Class) construct(params map[string]any) (*Instance, error) {
	if params == nil {
		params = map[string]any{}
	}

	err := c.params.each(func(name string, p *Param) error {
		value, supplied := params[name]
		if !supplied {
			if c.paramDefaulted(name) {
				return nil
			}
			if p.Assert.Len() == 0 {
				return &AssertionError{Name: name, Description: "is required"}
			}
			// Missing with no default: the declared predicates run
			// against nil and report the first failure.
			value = nil
		}
		if err := p.Assert.Validate(value); err != nil {
			return &AssertionError{Name: name, Description: failureDescription(err)}
		}
		return nil
	})
	if err != nil {
		c.emitConstructFailed(err)
		return nil, err
	}

	inst := c.allocate()
	for _, name := range c.schema.order {
		attr := c.schema.attrs[name]
		if attr.InitArg == "" {
			continue
		}
		value, supplied := params[attr.InitArg]
		if !supplied {
			continue
		}
		if attr.MapInitArg != nil {
			value = attr.MapInitArg(value)
		}
		if err := attr.Assert.Validate(value); err != nil {
			aerr := &AssertionError{Name: name, Description: failureDescription(err)}
			c.emitConstructFailed(aerr)
			return nil, aerr
		}
		inst.attrs[name] = value
	}

	if c.dispatch.buildHook != nil {
		if _, err := c.dispatch.buildHook(inst, params); err != nil {
			c.emitConstructFailed(err)
			return nil, err
		}
	}

	c.emitConstructed(inst)
	return inst, nil
}

// paramDefaulted reports whether a missing parameter is covered by a
// default on one of the attributes it populates.
func (c *Class) paramDefaulted(paramName string) bool {
	for _, name := range c.schema.order {
		attr := c.schema.attrs[name]
		if attr.InitArg == paramName && (attr.Default != nil || attr.DefaultFunc != nil) {
			return true
		}
	}
	return false
}

// defaultNew is the synthesized class-level constructor bound when the
// specification does not supply its own new.
func defaultNew(c *Class, args ...any) (any, error) {
	named, err := c.adaptArgs(args)
	if err != nil {
		return nil, err
	}
	return c.construct(named)
}

func failureDescription(err error) string {
	var f *assert.Failure
	if errors.As(err, &f) {
		return f.Description
	}
	return err.Error()
}

func (c *Class) emitConstructed(inst *Instance) {
	c.emitter.Emit(context.Background(), NewEvent(EventInstanceConstructed, c.DisplayName(), inst.id, nil))
}

func (c *Class) emitConstructFailed(err error) {
	ev := NewEvent(EventInstanceConstructFailed, c.DisplayName(), "", nil)
	ev.Err = err.Error()
	c.emitter.Emit(context.Background(), ev)
}
