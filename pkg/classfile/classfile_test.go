package classfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/classkit/minion/pkg/minion"
)

const counterFile = `
classes:
  - name: Counter
    interface: [next, count]
    implementation: counter.impl
    construct_with:
      start:
        assert:
          is not defined: defined
          is not an integer: is_int
        attribute: count
        reader: true
      tag:
        assert:
          is not a string: is_string
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func counterRegistry(t *testing.T) *minion.Registry {
	t.Helper()
	reg := minion.NewRegistry()
	err := reg.RegisterImpl("counter.impl", &minion.Impl{
		Has: map[string]*minion.Attr{
			"tag": {Default: ""},
		},
		Methods: map[string]minion.Method{
			"next": func(self *minion.Instance, args ...any) (any, error) {
				raw, err := self.Get("count")
				if err != nil {
					return nil, err
				}
				n := raw.(int) + 1
				if err := self.Set("count", n); err != nil {
					return nil, err
				}
				return n, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("register impl: %v", err)
	}
	return reg
}

func TestLoadTranslatesDeclaration(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.yaml", counterFile)

	specs, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}

	spec := specs[0]
	if spec.Name != "Counter" {
		t.Fatalf("name = %q", spec.Name)
	}
	if spec.ImplName != "counter.impl" {
		t.Fatalf("impl name = %q", spec.ImplName)
	}
	if got := spec.ConstructWith.Names(); len(got) != 2 || got[0] != "start" || got[1] != "tag" {
		t.Fatalf("param order = %v", got)
	}

	start, ok := spec.ConstructWith.Get("start")
	if !ok {
		t.Fatalf("start param missing")
	}
	if start.Attribute != "count" {
		t.Fatalf("attribute = %q", start.Attribute)
	}
	if start.Reader != "count" {
		t.Fatalf("reader = %q, want attribute name", start.Reader)
	}
	wantClauses := []string{"is not defined", "is not an integer"}
	if got := start.Assert.Descriptions(); len(got) != 2 || got[0] != wantClauses[0] || got[1] != wantClauses[1] {
		t.Fatalf("clause order = %v, want %v", got, wantClauses)
	}

	tag, ok := spec.ConstructWith.Get("tag")
	if !ok {
		t.Fatalf("tag param missing")
	}
	if tag.Attribute != "" || tag.Reader != "" {
		t.Fatalf("tag should not materialize: attribute %q reader %q", tag.Attribute, tag.Reader)
	}
}

func TestBuildConstructsWorkingClass(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.yaml", counterFile)
	reg := counterRegistry(t)

	classes, err := Build(path, WithRegistry(reg))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("expected 1 class, got %d", len(classes))
	}

	cls := classes[0]
	inst, err := cls.New(map[string]any{"start": 10, "tag": "t"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for want := 11; want <= 13; want++ {
		got, err := inst.Call("next")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("next = %v, want %d", got, want)
		}
	}
	got, err := inst.Call("count")
	if err != nil {
		t.Fatalf("count reader: %v", err)
	}
	if got != 13 {
		t.Fatalf("count = %v, want 13", got)
	}

	if _, ok := reg.LookupClass("Counter"); !ok {
		t.Fatalf("class not registered")
	}
}

func TestBuildReportsFirstClauseInDocumentOrder(t *testing.T) {
	path := writeFile(t, t.TempDir(), "counter.yaml", counterFile)
	reg := counterRegistry(t)

	classes, err := Build(path, WithRegistry(reg))
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	_, err = classes[0].New(map[string]any{"start": nil, "tag": "t"})
	if err == nil {
		t.Fatalf("expected assertion failure")
	}
	var aerr *minion.AssertionError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AssertionError, got %T: %v", err, err)
	}
	if err.Error() != "Attribute 'start' is not defined" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestLoadRejectsMalformedDeclarations(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing class name",
			yaml: "classes:\n  - interface: [next]\n    implementation: x\n",
			want: "class name is required",
		},
		{
			name: "missing interface",
			yaml: "classes:\n  - name: C\n    implementation: x\n",
			want: "interface is required",
		},
		{
			name: "missing sources",
			yaml: "classes:\n  - name: C\n    interface: [next]\n",
			want: "implementation or roles are required",
		},
		{
			name: "no classes",
			yaml: "classes: []\n",
			want: "no classes declared",
		},
		{
			name: "unknown predicate",
			yaml: "classes:\n  - name: C\n    interface: [next]\n    implementation: x\n    construct_with:\n      n:\n        assert:\n          is bad: no_such_predicate\n",
			want: `unknown predicate "no_such_predicate"`,
		},
		{
			name: "assert not a mapping",
			yaml: "classes:\n  - name: C\n    interface: [next]\n    implementation: x\n    construct_with:\n      n:\n        assert: [defined]\n",
			want: "assert must be a mapping",
		},
		{
			name: "construct_with not a mapping",
			yaml: "classes:\n  - name: C\n    interface: [next]\n    implementation: x\n    construct_with: [n]\n",
			want: "construct_with must be a mapping",
		},
		{
			name: "reader without attribute",
			yaml: "classes:\n  - name: C\n    interface: [next]\n    implementation: x\n    construct_with:\n      n:\n        reader: true\n",
			want: "reader:",
		},
		{
			name: "named reader without attribute",
			yaml: "classes:\n  - name: C\n    interface: [next]\n    implementation: x\n    construct_with:\n      n:\n        reader: peek\n",
			want: "reader requires attribute materialization",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.yaml", tc.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %q, want substring %q", err.Error(), tc.want)
			}
		})
	}
}

func TestBoolOrNameForms(t *testing.T) {
	const doc = `
classes:
  - name: Box
    interface: [value]
    implementation: box.impl
    construct_with:
      a:
        attribute: true
      b:
        attribute: stored_b
        reader: peek_b
      c:
        attribute: false
`
	path := writeFile(t, t.TempDir(), "box.yaml", doc)
	specs, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	params := specs[0].ConstructWith
	a, _ := params.Get("a")
	if a.Attribute != "a" {
		t.Fatalf("attribute true should bind under param name, got %q", a.Attribute)
	}
	b, _ := params.Get("b")
	if b.Attribute != "stored_b" || b.Reader != "peek_b" {
		t.Fatalf("explicit names not honored: %q %q", b.Attribute, b.Reader)
	}
	c, _ := params.Get("c")
	if c.Attribute != "" {
		t.Fatalf("attribute false should not bind, got %q", c.Attribute)
	}
}

func TestLoadDirCollectsLexically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_second.yaml", "classes:\n  - name: Second\n    interface: [go]\n    implementation: x\n")
	writeFile(t, dir, "a_first.yml", "classes:\n  - name: First\n    interface: [go]\n    implementation: x\n")
	writeFile(t, dir, "notes.txt", "ignored")

	specs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(specs))
	}
	if specs[0].Name != "First" || specs[1].Name != "Second" {
		t.Fatalf("order = %s, %s", specs[0].Name, specs[1].Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
