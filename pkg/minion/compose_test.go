package minion

import (
	"errors"
	"strings"
	"testing"
)

func TestComposeMergesImplementationAndRoles(t *testing.T) {
	impl := &Impl{
		Has:     map[string]*Attr{"count": {Default: 0}},
		Methods: map[string]Method{"next": stubMethod},
	}
	role := &Role{
		Name:        "Resettable",
		Has:         map[string]*Attr{"initial": {Default: 0}},
		Methods:     map[string]Method{"reset": stubMethod},
		Semiprivate: []string{"reset"},
	}

	comp, err := compose("Counter", impl, []*Role{role}, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if _, ok := comp.methods["next"]; !ok {
		t.Fatal("implementation method missing from merged namespace")
	}
	if _, ok := comp.methods["reset"]; !ok {
		t.Fatal("role method missing from merged namespace")
	}
	if !comp.semiprivate["reset"] {
		t.Fatal("semiprivate marker lost in merge")
	}
	if comp.attrSrc["initial"] != `role "Resettable"` {
		t.Fatalf("unexpected attribute source: %s", comp.attrSrc["initial"])
	}
}

func TestComposeRejectsMethodConflict(t *testing.T) {
	impl := &Impl{Methods: map[string]Method{"next": stubMethod}}
	role := &Role{Name: "Bounded", Methods: map[string]Method{"next": stubMethod}}

	_, err := compose("Counter", impl, []*Role{role}, nil)
	var cerr *CompositionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompositionError, got %v", err)
	}
	if cerr.Kind != "method" || cerr.Name != "next" {
		t.Fatalf("unexpected conflict fields: %+v", cerr)
	}
	if !strings.Contains(cerr.Error(), "implementation") || !strings.Contains(cerr.Error(), `role "Bounded"`) {
		t.Fatalf("conflict should name both sources: %v", cerr)
	}
}

func TestComposeRejectsAttributeConflictBetweenRoles(t *testing.T) {
	a := &Role{Name: "A", Has: map[string]*Attr{"size": {}}}
	b := &Role{Name: "B", Has: map[string]*Attr{"size": {}}}

	_, err := compose("Thing", nil, []*Role{a, b}, nil)
	var cerr *CompositionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompositionError, got %v", err)
	}
	if cerr.Kind != "attribute" || cerr.Name != "size" {
		t.Fatalf("unexpected conflict fields: %+v", cerr)
	}
}

func TestComposeChecksRoleRequirements(t *testing.T) {
	role := &Role{
		Name:     "Bounded",
		Methods:  map[string]Method{"full": stubMethod},
		Requires: Requires{Methods: []string{"size"}},
	}

	_, err := compose("Queue", &Impl{}, []*Role{role}, nil)
	var cerr *CompositionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompositionError, got %v", err)
	}
	if !strings.Contains(cerr.Error(), `requires method "size"`) {
		t.Fatalf("requirement error should name the capability: %v", cerr)
	}

	impl := &Impl{Methods: map[string]Method{"size": stubMethod}}
	if _, err := compose("Queue", impl, []*Role{role}, nil); err != nil {
		t.Fatalf("satisfied requirement should compose: %v", err)
	}
}

func TestComposeRequiredAttributeSatisfiedByParams(t *testing.T) {
	role := &Role{
		Name:     "Capped",
		Methods:  map[string]Method{"cap": stubMethod},
		Requires: Requires{Attributes: []string{"limit"}},
	}

	if _, err := compose("Queue", &Impl{}, []*Role{role}, nil); err == nil {
		t.Fatal("expected unmet attribute requirement to fail")
	}

	params := NewParamSet().Add("limit", &Param{})
	if _, err := compose("Queue", &Impl{}, []*Role{role}, params); err != nil {
		t.Fatalf("construct_with parameter should satisfy requirement: %v", err)
	}
}

func TestBuildSchemaInjectsParamAttributes(t *testing.T) {
	impl := &Impl{Has: map[string]*Attr{"count": {Default: 0}}}
	comp, err := compose("Counter", impl, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	params := NewParamSet().Add("start", &Param{Attribute: "seed", Reader: "seed"})
	sch, err := buildSchema("Counter", comp, params)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	attr, ok := sch.attrs["seed"]
	if !ok {
		t.Fatal("materialized attribute missing from schema")
	}
	if attr.InitArg != "start" {
		t.Fatalf("materialized attribute should bind init arg start, got %q", attr.InitArg)
	}
	if attr.Default != nil || attr.DefaultFunc != nil {
		t.Fatal("materialized attribute must not carry a default")
	}
	if !sch.has("count") {
		t.Fatal("implementation attribute missing from schema")
	}
}

func TestBuildSchemaRejectsParamAttributeConflict(t *testing.T) {
	impl := &Impl{Has: map[string]*Attr{"count": {Default: 0}}}
	comp, err := compose("Counter", impl, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	params := NewParamSet().Add("start", &Param{Attribute: "count"})
	_, err = buildSchema("Counter", comp, params)
	var cerr *CompositionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CompositionError, got %v", err)
	}
	if cerr.Name != "count" {
		t.Fatalf("unexpected conflict name: %q", cerr.Name)
	}
}

func TestBuildSchemaAllowsParamOnlyNameReuse(t *testing.T) {
	// A parameter without attribute materialization may share its name
	// with a declared attribute; only materialization conflicts.
	impl := &Impl{Has: map[string]*Attr{"start": {Default: 0}}}
	comp, err := compose("Counter", impl, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	params := NewParamSet().Add("start", &Param{})
	if _, err := buildSchema("Counter", comp, params); err != nil {
		t.Fatalf("param-only declaration should not conflict: %v", err)
	}
}

func TestBuildSchemaRejectsDoubleDefault(t *testing.T) {
	impl := &Impl{Has: map[string]*Attr{
		"items": {Default: 1, DefaultFunc: func() any { return 2 }},
	}}
	comp, err := compose("Bag", impl, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	_, err = buildSchema("Bag", comp, nil)
	var serr *SpecError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SpecError, got %v", err)
	}
}

func TestMaterializeProducesFreshDefaults(t *testing.T) {
	impl := &Impl{Has: map[string]*Attr{
		"items": {DefaultFunc: func() any { return map[string]bool{} }},
	}}
	comp, err := compose("Bag", impl, nil, nil)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	sch, err := buildSchema("Bag", comp, nil)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	first := sch.materialize()["items"].(map[string]bool)
	second := sch.materialize()["items"].(map[string]bool)
	first["a"] = true
	if len(second) != 0 {
		t.Fatal("producer default shared between materializations")
	}
}

func stubMethod(_ *Instance, _ ...any) (any, error) {
	return nil, nil
}
