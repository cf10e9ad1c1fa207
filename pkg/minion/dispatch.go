package minion

import (
	"fmt"
	"sort"
)

// Selectors reserved for generated semiprivate helpers. They may not
// appear in a class interface.
const (
	selectorBuild  = "BUILD"
	selectorAssert = "ASSERT"
)

// forward directs a call to the value held by an attribute, invoking
// the target selector on it.
type forward struct {
	attr   string
	target string
}

// boundMethod is one dispatch table entry: either a direct body or a
// forwarding directive, never both.
type boundMethod struct {
	body    Method
	forward *forward
}

// dispatch holds the two call surfaces of a compiled class plus the
// optional post-construction hook.
type dispatch struct {
	public      map[string]boundMethod
	semiprivate map[string]boundMethod
	buildHook   Method
}

// buildDispatch resolves the interface against the composed namespace,
// synthesizes reader accessors, wires forwarding entries and installs
// the generated ASSERT and BUILD helpers on the semiprivate surface.
func buildDispatch(className string, iface []string, comp *composition, sch *schema, reg *Registry) (*dispatch, error) {
	inInterface := make(map[string]bool, len(iface))
	for _, sel := range iface {
		if sel == "" {
			return nil, &SpecError{Class: className, Detail: "interface lists an empty selector"}
		}
		if sel == selectorBuild || sel == selectorAssert {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("selector %q is reserved for the semiprivate surface", sel)}
		}
		if inInterface[sel] {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("interface lists selector %q twice", sel)}
		}
		inInterface[sel] = true
	}

	methods := make(map[string]Method, len(comp.methods))
	sources := make(map[string]string, len(comp.methodSrc))
	for sel, body := range comp.methods {
		methods[sel] = body
		sources[sel] = comp.methodSrc[sel]
	}

	buildHook := methods[selectorBuild]
	delete(methods, selectorBuild)
	if _, declared := methods[selectorAssert]; declared {
		return nil, &CompositionError{
			Class:  className,
			Kind:   "method",
			Name:   selectorAssert,
			Detail: fmt.Sprintf("method %q declared by %s collides with the generated assertion helper", selectorAssert, sources[selectorAssert]),
		}
	}

	readers := make(map[string]bool)
	for _, name := range sch.order {
		attr := sch.attrs[name]
		if attr.Reader == "" {
			continue
		}
		sel := attr.Reader
		if src, taken := sources[sel]; taken {
			return nil, &CompositionError{
				Class:  className,
				Kind:   "method",
				Name:   sel,
				Detail: fmt.Sprintf("method %q declared by both %s and the reader for attribute %q", sel, src, name),
			}
		}
		methods[sel] = readerFor(name)
		sources[sel] = fmt.Sprintf("reader for attribute %q", name)
		readers[sel] = true
	}

	for sel := range comp.semiprivate {
		if sel == selectorBuild {
			continue
		}
		if inInterface[sel] {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("selector %q is declared semiprivate but listed in the interface", sel)}
		}
		if _, ok := methods[sel]; !ok {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("semiprivate selector %q has no method", sel)}
		}
	}

	d := &dispatch{
		public:      make(map[string]boundMethod, len(iface)),
		semiprivate: make(map[string]boundMethod),
		buildHook:   buildHook,
	}

	for sel, body := range methods {
		entry := boundMethod{body: body}
		switch {
		case inInterface[sel]:
			d.public[sel] = entry
		case comp.semiprivate[sel] || readers[sel]:
			d.semiprivate[sel] = entry
		}
	}

	for _, name := range sch.order {
		attr := sch.attrs[name]
		if attr.Handles == nil {
			continue
		}
		pairs, err := expandHandles(className, name, attr.Handles, comp, reg)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			if src, taken := sources[p.exposed]; taken {
				return nil, &CompositionError{
					Class:  className,
					Kind:   "method",
					Name:   p.exposed,
					Detail: fmt.Sprintf("selector %q declared by %s and forwarded via attribute %q", p.exposed, src, name),
				}
			}
			entry := boundMethod{forward: &forward{attr: name, target: p.target}}
			if inInterface[p.exposed] {
				d.public[p.exposed] = entry
			} else {
				d.semiprivate[p.exposed] = entry
			}
			sources[p.exposed] = fmt.Sprintf("forwarding via attribute %q", name)
		}
	}

	for _, sel := range iface {
		if _, ok := d.public[sel]; !ok {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("interface selector %q does not resolve to any method", sel)}
		}
	}

	d.semiprivate[selectorAssert] = boundMethod{body: assertHelper}
	d.semiprivate[selectorBuild] = boundMethod{body: buildHelper(buildHook)}

	return d, nil
}

type handlesPair struct {
	exposed string
	target  string
}

// expandHandles normalizes the three forwarding forms into
// exposed/target selector pairs, sorted for deterministic wiring.
func expandHandles(className, attrName string, h *Handles, comp *composition, reg *Registry) ([]handlesPair, error) {
	forms := 0
	if len(h.Selectors) > 0 {
		forms++
	}
	if len(h.Renames) > 0 {
		forms++
	}
	if h.Role != "" {
		forms++
	}
	if forms != 1 {
		return nil, &SpecError{Class: className, Detail: fmt.Sprintf("attribute %q: handles must use exactly one of selectors, renames or a role reference", attrName)}
	}

	var pairs []handlesPair
	switch {
	case len(h.Selectors) > 0:
		for _, sel := range h.Selectors {
			pairs = append(pairs, handlesPair{exposed: sel, target: sel})
		}
	case len(h.Renames) > 0:
		for _, exposed := range sortedKeys(h.Renames) {
			pairs = append(pairs, handlesPair{exposed: exposed, target: h.Renames[exposed]})
		}
	default:
		selectors, ok := comp.roleMethods[h.Role]
		if !ok {
			role, found := reg.LookupRole(h.Role)
			if !found {
				return nil, &SpecError{Class: className, Detail: fmt.Sprintf("attribute %q: handles references unknown role %q", attrName, h.Role)}
			}
			selectors = sortedKeys(role.Methods)
		}
		for _, sel := range selectors {
			pairs = append(pairs, handlesPair{exposed: sel, target: sel})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].exposed < pairs[j].exposed })
	for _, p := range pairs {
		if p.exposed == "" || p.target == "" {
			return nil, &SpecError{Class: className, Detail: fmt.Sprintf("attribute %q: handles lists an empty selector", attrName)}
		}
	}
	return pairs, nil
}

func readerFor(attrName string) Method {
	return func(self *Instance, _ ...any) (any, error) {
		return self.Get(attrName)
	}
}

// assertHelper is the generated semiprivate ASSERT entry. It runs the
// declared predicates of one construction parameter against a value and
// returns the value unchanged on success.
func assertHelper(self *Instance, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("minion: ASSERT expects a parameter name and a value, got %d arguments", len(args))
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("minion: ASSERT parameter name must be a string, got %T", args[0])
	}
	if err := self.class.Util().Assert(name, args[1]); err != nil {
		return nil, err
	}
	return args[1], nil
}

// buildHelper wraps the composed BUILD hook, or degrades to a no-op so
// the semiprivate surface stays uniform for hand-written constructors.
func buildHelper(hook Method) Method {
	return func(self *Instance, args ...any) (any, error) {
		if hook == nil {
			return nil, nil
		}
		return hook(self, args...)
	}
}
