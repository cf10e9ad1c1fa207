package minion

import (
	"errors"
	"testing"
)

func TestRegistryRejectsUnnamedClass(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterClass(nil); err == nil {
		t.Fatal("nil class should not register")
	}
	if err := reg.RegisterClass(&Class{}); err == nil {
		t.Fatal("unnamed class should not register")
	}
}

func TestRegistryImplAndRoleNamespaces(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterImpl("b.impl", &Impl{}); err != nil {
		t.Fatalf("register impl: %v", err)
	}
	if err := reg.RegisterImpl("a.impl", &Impl{}); err != nil {
		t.Fatalf("register impl: %v", err)
	}
	if err := reg.RegisterImpl("a.impl", &Impl{}); err == nil {
		t.Fatal("duplicate impl registration should fail")
	}

	names := reg.ImplNames()
	if len(names) != 2 || names[0] != "a.impl" || names[1] != "b.impl" {
		t.Fatalf("impl names not sorted: %v", names)
	}

	if err := reg.RegisterRole("stack", &Role{Methods: map[string]Method{"push": stubMethod}}); err != nil {
		t.Fatalf("register role: %v", err)
	}
	role, ok := reg.LookupRole("stack")
	if !ok {
		t.Fatal("registered role not found")
	}
	if role.Name != "stack" {
		t.Fatalf("lookup should carry the registered name, got %q", role.Name)
	}

	var rerr *AlreadyRegisteredError
	err := reg.RegisterRole("stack", &Role{})
	if !errors.As(err, &rerr) {
		t.Fatalf("expected AlreadyRegisteredError, got %v", err)
	}
}

func TestDefaultRegistryRoundtrip(t *testing.T) {
	// Unique names keep this safe against other tests sharing the
	// process-wide registry.
	if err := RegisterImpl("registry_test.counter", counterImpl()); err != nil {
		t.Fatalf("register impl: %v", err)
	}
	cls, err := Minionize(&Spec{
		Name:      "registry_test.Counter",
		Interface: []string{"next"},
		ImplName:  "registry_test.counter",
	})
	if err != nil {
		t.Fatalf("minionize: %v", err)
	}
	found, ok := Lookup("registry_test.Counter")
	if !ok || found != cls {
		t.Fatal("default registry lookup failed")
	}
	if DefaultRegistry() == nil {
		t.Fatal("default registry should exist")
	}

	listed := false
	for _, name := range Names() {
		if name == "registry_test.Counter" {
			listed = true
		}
	}
	if !listed {
		t.Fatalf("Names() should list the registered class, got %v", Names())
	}
}
