package minion

import "fmt"

// schema is the final attribute layout of a compiled class: the merged
// descriptors plus a deterministic materialization order.
type schema struct {
	attrs map[string]*Attr
	order []string
}

// buildSchema merges the composed attribute namespace with the
// class-level parameter declarations. A parameter that materializes an
// attribute injects a descriptor with no default; reusing a name an
// implementation or role already declared is a conflict. Parameters
// without attribute materialization never touch the schema.
func buildSchema(className string, comp *composition, params *ParamSet) (*schema, error) {
	s := &schema{attrs: make(map[string]*Attr, len(comp.attrs))}

	for _, name := range sortedKeys(comp.attrs) {
		attr := comp.attrs[name]
		if attr == nil {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("attribute %q has a nil descriptor", name)}
		}
		if attr.Default != nil && attr.DefaultFunc != nil {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("attribute %q declares both a literal default and a producer", name)}
		}
		s.attrs[name] = attr
		s.order = append(s.order, name)
	}

	err := params.each(func(paramName string, p *Param) error {
		if p.Attribute == "" {
			return nil
		}
		name := p.Attribute
		if src, taken := comp.attrSrc[name]; taken {
			return &CompositionError{
				Class:  className,
				Kind:   "attribute",
				Name:   name,
				Detail: fmt.Sprintf("attribute %q declared by both %s and construct_with parameter %q", name, src, paramName),
			}
		}
		if _, taken := s.attrs[name]; taken {
			return &CompositionError{
				Class:  className,
				Kind:   "attribute",
				Name:   name,
				Detail: fmt.Sprintf("attribute %q materialized by more than one construct_with parameter", name),
			}
		}
		s.attrs[name] = &Attr{InitArg: paramName, Reader: p.Reader}
		s.order = append(s.order, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// has reports whether name is a declared attribute.
func (s *schema) has(name string) bool {
	_, ok := s.attrs[name]
	return ok
}

// materialize returns a fresh attribute map populated with defaults.
// Producer defaults run once per call so instances never share values.
func (s *schema) materialize() map[string]any {
	attrs := make(map[string]any, len(s.order))
	for _, name := range s.order {
		attr := s.attrs[name]
		if attr.DefaultFunc != nil {
			attrs[name] = attr.DefaultFunc()
			continue
		}
		attrs[name] = attr.Default
	}
	return attrs
}
