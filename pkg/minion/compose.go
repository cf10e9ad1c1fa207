package minion

import (
	"fmt"
	"sort"
)

// composition is the flat namespace produced by merging an
// implementation with its roles. Maps carry the winning declaration;
// sources remembers where each name came from for conflict reports.
type composition struct {
	methods     map[string]Method
	methodSrc   map[string]string
	attrs       map[string]*Attr
	attrSrc     map[string]string
	semiprivate map[string]bool
	roleMethods map[string][]string
}

// compose layers the implementation first, then roles in declaration
// order. Any method or attribute name contributed twice is a build-time
// conflict, regardless of which sources collide. After merging, every
// role's requirements are checked against the merged namespace and the
// class-level parameter set.
func compose(className string, impl *Impl, roles []*Role, params *ParamSet) (*composition, error) {
	c := &composition{
		methods:     make(map[string]Method),
		methodSrc:   make(map[string]string),
		attrs:       make(map[string]*Attr),
		attrSrc:     make(map[string]string),
		semiprivate: make(map[string]bool),
		roleMethods: make(map[string][]string),
	}

	if impl != nil {
		if err := c.mergeSource(className, "implementation", impl.Methods, impl.Has, impl.Semiprivate); err != nil {
			return nil, err
		}
	}

	for i, role := range roles {
		label := roleLabel(role, i)
		if err := c.mergeSource(className, label, role.Methods, role.Has, role.Semiprivate); err != nil {
			return nil, err
		}
		if role.Name != "" {
			c.roleMethods[role.Name] = sortedKeys(role.Methods)
		}
	}

	for i, role := range roles {
		label := roleLabel(role, i)
		for _, sel := range role.Requires.Methods {
			if _, ok := c.methods[sel]; !ok {
				return nil, &CompositionError{
					Class:  className,
					Kind:   "method",
					Name:   sel,
					Detail: fmt.Sprintf("%s requires method %q which no source provides", label, sel),
				}
			}
		}
		for _, name := range role.Requires.Attributes {
			if _, ok := c.attrs[name]; ok {
				continue
			}
			if _, ok := params.Get(name); ok {
				continue
			}
			return nil, &CompositionError{
				Class:  className,
				Kind:   "attribute",
				Name:   name,
				Detail: fmt.Sprintf("%s requires attribute %q which no source or construct_with parameter provides", label, name),
			}
		}
	}

	return c, nil
}

func (c *composition) mergeSource(className, label string, methods map[string]Method, attrs map[string]*Attr, semiprivate []string) error {
	for _, sel := range sortedKeys(methods) {
		if prev, taken := c.methodSrc[sel]; taken {
			return &CompositionError{
				Class:  className,
				Kind:   "method",
				Name:   sel,
				Detail: fmt.Sprintf("method %q declared by both %s and %s", sel, prev, label),
			}
		}
		c.methods[sel] = methods[sel]
		c.methodSrc[sel] = label
	}
	for _, name := range sortedKeys(attrs) {
		if prev, taken := c.attrSrc[name]; taken {
			return &CompositionError{
				Class:  className,
				Kind:   "attribute",
				Name:   name,
				Detail: fmt.Sprintf("attribute %q declared by both %s and %s", name, prev, label),
			}
		}
		c.attrs[name] = attrs[name]
		c.attrSrc[name] = label
	}
	for _, sel := range semiprivate {
		c.semiprivate[sel] = true
	}
	return nil
}

func roleLabel(role *Role, index int) string {
	if role.Name != "" {
		return fmt.Sprintf("role %q", role.Name)
	}
	return fmt.Sprintf("role #%d", index+1)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
