package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/classkit/minion/pkg/audit"
	"github.com/classkit/minion/pkg/config"
	"github.com/classkit/minion/pkg/minion"
)

const counterClassfile = `
classes:
  - name: Counter
    interface: [next]
    implementation: runtime_test.counter
    construct_with:
      start:
        assert:
          is not an integer: is_int
        attribute: count
`

func counterTestImpl() *minion.Impl {
	return &minion.Impl{
		Methods: map[string]minion.Method{
			"next": func(self *minion.Instance, _ ...any) (any, error) {
				current, err := self.Get("count")
				if err != nil {
					return nil, err
				}
				n := current.(int) + 1
				if err := self.Set("count", n); err != nil {
					return nil, err
				}
				return n, nil
			},
		},
	}
}

func writeClassfile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "counter.yaml"), []byte(counterClassfile), 0o644); err != nil {
		t.Fatalf("write classfile: %v", err)
	}
	return dir
}

func TestLocalRuntimeLifecycle(t *testing.T) {
	cfg := &config.Config{
		Telemetry: config.TelemetryConfig{Exporter: "none", Service: "minion"},
		Audit:     config.AuditConfig{Enabled: true, Backend: "memory"},
		Classfile: config.ClassfileConfig{Dir: writeClassfile(t)},
	}
	rt := NewLocal(cfg)
	if err := rt.Registry().RegisterImpl("runtime_test.counter", counterTestImpl()); err != nil {
		t.Fatalf("register impl: %v", err)
	}

	ctx := context.Background()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() {
		if err := rt.Stop(ctx); err != nil {
			t.Errorf("stop: %v", err)
		}
	}()

	if err := rt.Start(ctx); err == nil {
		t.Fatal("double start should fail")
	}

	if _, ok := rt.Registry().LookupClass("Counter"); !ok {
		t.Fatal("classfile class not compiled into registry")
	}

	inst, err := rt.Construct(ctx, "Counter", map[string]any{"start": 10})
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	result, err := rt.Dispatch(ctx, inst, "next")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result != 11 {
		t.Fatalf("next = %v, want 11", result)
	}

	if _, err := rt.Construct(ctx, "Counter", map[string]any{"start": "ten"}); err == nil {
		t.Fatal("expected assertion failure")
	} else if !strings.Contains(err.Error(), "Attribute 'start' is not an integer") {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := rt.Construct(ctx, "Nope", nil); err == nil {
		t.Fatal("unknown class should fail")
	}

	events, err := rt.AuditStore().List(ctx, audit.Filter{Class: "Counter"})
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	seen := make(map[string]int)
	for _, ev := range events {
		seen[ev.Type]++
	}
	for _, want := range []string{
		"class.compiled",
		"class.registered",
		"instance.constructed",
		"instance.construct_failed",
	} {
		if seen[want] == 0 {
			t.Fatalf("missing audit event %s, got %v", want, seen)
		}
	}
}

func TestRuntimeRequiresStart(t *testing.T) {
	rt := NewLocal(&config.Config{Telemetry: config.TelemetryConfig{Exporter: "none"}})
	if _, err := rt.Construct(context.Background(), "Counter", nil); err == nil {
		t.Fatal("construct before start should fail")
	}
	if _, err := rt.Dispatch(context.Background(), nil, "next"); err == nil {
		t.Fatal("dispatch before start should fail")
	}
	if err := rt.Stop(context.Background()); err != nil {
		t.Fatalf("stop without start should be safe: %v", err)
	}
}

func TestRuntimeRejectsUnknownAuditBackend(t *testing.T) {
	rt := NewLocal(&config.Config{
		Telemetry: config.TelemetryConfig{Exporter: "none"},
		Audit:     config.AuditConfig{Enabled: true, Backend: "parchment"},
	})
	if err := rt.Start(context.Background()); err == nil {
		t.Fatal("unknown audit backend should fail start")
	}
}
