// Package classfile loads declarative class specifications from YAML
// documents. Method bodies cannot live in YAML, so declarations
// reference implementations and roles registered in code by name;
// assert maps reference predicates from a predicate registry. Clause
// order in the document is preserved, matching the engine's
// first-failure reporting.
package classfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/classkit/minion/pkg/assert"
	"github.com/classkit/minion/pkg/minion"
	"github.com/classkit/minion/pkg/predicates"
)

// Document is the top-level YAML shape.
type Document struct {
	Classes []Decl `yaml:"classes"`
}

// Decl is one class declaration.
type Decl struct {
	Name           string    `yaml:"name"`
	Interface      []string  `yaml:"interface"`
	Implementation string    `yaml:"implementation"`
	Roles          []string  `yaml:"roles"`
	ConstructWith  yaml.Node `yaml:"construct_with"`
}

type paramNode struct {
	Assert    yaml.Node `yaml:"assert"`
	Attribute yaml.Node `yaml:"attribute"`
	Reader    yaml.Node `yaml:"reader"`
}

// Option adjusts loading and building.
type Option func(*loader)

// WithPredicates resolves assert clauses against reg instead of the
// builtin predicate registry.
func WithPredicates(reg *predicates.Registry) Option {
	return func(l *loader) { l.predicates = reg }
}

// WithRegistry resolves implementation and role names against reg and
// registers built classes there.
func WithRegistry(reg *minion.Registry) Option {
	return func(l *loader) { l.registry = reg }
}

// WithEmitter forwards an event emitter to Minionize for each class.
func WithEmitter(emitter minion.EventEmitter) Option {
	return func(l *loader) { l.emitter = emitter }
}

type loader struct {
	predicates *predicates.Registry
	registry   *minion.Registry
	emitter    minion.EventEmitter
}

func newLoader(opts []Option) *loader {
	l := &loader{
		predicates: predicates.Default(),
		registry:   minion.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses one YAML class file into specifications, without
// building them.
func Load(path string, opts ...Option) ([]*minion.Spec, error) {
	l := newLoader(opts)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	specs, err := l.parse(data)
	if err != nil {
		return nil, fmt.Errorf("classfile %s: %w", path, err)
	}
	return specs, nil
}

// LoadDir loads every .yaml and .yml file directly under root, in
// lexical order.
func LoadDir(root string, opts ...Option) ([]*minion.Spec, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []*minion.Spec
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		specs, err := Load(filepath.Join(root, entry.Name()), opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, specs...)
	}
	return out, nil
}

// Build loads a class file and compiles every declaration, registering
// named classes in the loader's registry.
func Build(path string, opts ...Option) ([]*minion.Class, error) {
	l := newLoader(opts)
	specs, err := Load(path, opts...)
	if err != nil {
		return nil, err
	}
	mopts := []minion.Option{minion.WithRegistry(l.registry)}
	if l.emitter != nil {
		mopts = append(mopts, minion.WithEmitter(l.emitter))
	}
	classes := make([]*minion.Class, 0, len(specs))
	for _, spec := range specs {
		cls, err := minion.Minionize(spec, mopts...)
		if err != nil {
			return nil, fmt.Errorf("classfile %s: %w", path, err)
		}
		classes = append(classes, cls)
	}
	return classes, nil
}

func (l *loader) parse(data []byte) ([]*minion.Spec, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(doc.Classes) == 0 {
		return nil, errors.New("no classes declared")
	}
	specs := make([]*minion.Spec, 0, len(doc.Classes))
	for _, decl := range doc.Classes {
		spec, err := l.translate(decl)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (l *loader) translate(decl Decl) (*minion.Spec, error) {
	name := strings.TrimSpace(decl.Name)
	if name == "" {
		return nil, errors.New("class name is required")
	}
	if len(decl.Interface) == 0 {
		return nil, fmt.Errorf("class %q: interface is required", name)
	}
	if decl.Implementation == "" && len(decl.Roles) == 0 {
		return nil, fmt.Errorf("class %q: implementation or roles are required", name)
	}

	spec := &minion.Spec{
		Name:      name,
		Interface: decl.Interface,
		ImplName:  decl.Implementation,
		RoleNames: decl.Roles,
	}

	params, err := l.translateParams(name, decl.ConstructWith)
	if err != nil {
		return nil, err
	}
	spec.ConstructWith = params
	return spec, nil
}

// translateParams walks the construct_with mapping node directly so
// parameter and clause order survive the trip through YAML.
func (l *loader) translateParams(className string, node yaml.Node) (*minion.ParamSet, error) {
	if node.IsZero() {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("class %q: construct_with must be a mapping (line %d)", className, node.Line)
	}

	params := minion.NewParamSet()
	for i := 0; i < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		paramName := keyNode.Value

		var pn paramNode
		if err := valueNode.Decode(&pn); err != nil {
			return nil, fmt.Errorf("class %q: parameter %q: %w", className, paramName, err)
		}

		p := &minion.Param{}
		set, err := l.translateAssert(className, paramName, pn.Assert)
		if err != nil {
			return nil, err
		}
		p.Assert = set

		p.Attribute, err = boolOrName(pn.Attribute, paramName)
		if err != nil {
			return nil, fmt.Errorf("class %q: parameter %q: attribute: %w", className, paramName, err)
		}
		reader, err := boolOrName(pn.Reader, p.Attribute)
		if err != nil {
			return nil, fmt.Errorf("class %q: parameter %q: reader: %w", className, paramName, err)
		}
		if reader != "" && p.Attribute == "" {
			return nil, fmt.Errorf("class %q: parameter %q: reader requires attribute materialization", className, paramName)
		}
		p.Reader = reader

		params.Add(paramName, p)
	}
	return params, nil
}

func (l *loader) translateAssert(className, paramName string, node yaml.Node) (*assert.Set, error) {
	if node.IsZero() {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("class %q: parameter %q: assert must be a mapping of description to predicate name (line %d)", className, paramName, node.Line)
	}
	set, err := assert.NewSet()
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(node.Content); i += 2 {
		description := node.Content[i].Value
		predicateName := node.Content[i+1].Value
		p, ok := l.predicates.Lookup(predicateName)
		if !ok {
			return nil, fmt.Errorf("class %q: parameter %q: unknown predicate %q (line %d)", className, paramName, predicateName, node.Content[i+1].Line)
		}
		if err := set.Add(description, p); err != nil {
			return nil, fmt.Errorf("class %q: parameter %q: %w", className, paramName, err)
		}
	}
	return set, nil
}

// boolOrName normalizes the bool-or-string YAML forms: true enables the
// feature under defaultName, false and absence disable it, a string
// names it explicitly.
func boolOrName(node yaml.Node, defaultName string) (string, error) {
	if node.IsZero() {
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", errors.New("must be true, false or a name")
	}
	var b bool
	if err := node.Decode(&b); err == nil {
		if !b {
			return "", nil
		}
		if defaultName == "" {
			return "", errors.New("true needs a name to default to; set attribute first")
		}
		return defaultName, nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return "", errors.New("must be true, false or a name")
	}
	if strings.TrimSpace(s) == "" {
		return "", errors.New("name must not be empty")
	}
	return s, nil
}
