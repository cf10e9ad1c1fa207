package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/classkit/minion/pkg/minion"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	event := Event{
		Type:       "instance.constructed",
		Class:      "Counter",
		InstanceID: "inst-1",
		Payload:    map[string]any{"ok": true},
		RecordedAt: time.Now().UTC(),
	}
	if err := store.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}
	events, err := store.List(context.Background(), Filter{Class: "Counter"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].InstanceID != "inst-1" {
		t.Fatalf("unexpected instance id: %s", events[0].InstanceID)
	}
}

func TestMemoryStoreFilters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, ev := range []Event{
		{Type: "class.compiled", Class: "Counter"},
		{Type: "instance.constructed", Class: "Counter"},
		{Type: "instance.constructed", Class: "Queue"},
		{Type: "instance.construct_failed", Class: "Counter", Error: "Attribute 'start' is not an integer"},
	} {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, err := store.List(ctx, Filter{Class: "Counter", Type: "instance.constructed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	events, err = store.List(ctx, Filter{Class: "Counter", Limit: 2})
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestMemoryStorePruneBefore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()
	for _, ev := range []Event{
		{Type: "class.compiled", Class: "Old", RecordedAt: now.Add(-48 * time.Hour)},
		{Type: "class.compiled", Class: "Stale", RecordedAt: now.Add(-25 * time.Hour)},
		{Type: "class.compiled", Class: "Fresh", RecordedAt: now},
	} {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	pruned, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("pruned = %d, want 2", pruned)
	}
	events, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Class != "Fresh" {
		t.Fatalf("unexpected survivors: %v", events)
	}
}

func TestSQLiteStorePruneBefore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:minion_audit_prune?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	for _, ev := range []Event{
		{Type: "class.compiled", Class: "Old", RecordedAt: now.Add(-48 * time.Hour)},
		{Type: "class.compiled", Class: "Fresh", RecordedAt: now},
	} {
		if err := store.Record(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	pruned, err := store.PruneBefore(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}
	events, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Class != "Fresh" {
		t.Fatalf("unexpected survivors: %v", events)
	}
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", "file:minion_audit_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	event := Event{
		Type:       "instance.constructed",
		Class:      "Counter",
		InstanceID: "inst-1",
		Payload:    map[string]any{"params": map[string]any{"start": float64(10)}},
		RecordedAt: time.Now().UTC(),
	}
	if err := store.Record(context.Background(), event); err != nil {
		t.Fatalf("record: %v", err)
	}
	events, err := store.List(context.Background(), Filter{Class: "Counter", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != "instance.constructed" {
		t.Fatalf("unexpected type: %s", events[0].Type)
	}
	if events[0].Payload == nil {
		t.Fatalf("payload not round-tripped")
	}
}

func TestSQLiteStoreFailureRows(t *testing.T) {
	db, err := sql.Open("sqlite", "file:minion_audit_failures?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	ctx := context.Background()
	if err := store.Record(ctx, Event{
		Type:       "instance.construct_failed",
		Class:      "Counter",
		Error:      "Attribute 'start' is not an integer",
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	events, err := store.List(ctx, Filter{Type: "instance.construct_failed"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Error != "Attribute 'start' is not an integer" {
		t.Fatalf("unexpected error text: %s", events[0].Error)
	}
}

func TestEmitterRecordsLifecycle(t *testing.T) {
	store := NewMemoryStore()
	reg := minion.NewRegistry()

	cls, err := minion.Minionize(&minion.Spec{
		Name:      "AuditedCounter",
		Interface: []string{"next"},
		Implementation: &minion.Impl{
			Has: map[string]*minion.Attr{
				"count": {Default: 0},
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
		},
	}, minion.WithRegistry(reg), minion.WithEmitter(NewEmitter(store)))
	if err != nil {
		t.Fatalf("minionize: %v", err)
	}

	if _, err := cls.New(nil); err != nil {
		t.Fatalf("new: %v", err)
	}

	events, err := store.List(context.Background(), Filter{Class: "AuditedCounter"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"class.compiled", "class.registered", "instance.constructed"}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Fatalf("event %d = %s, want %s", i, ev.Type, want[i])
		}
	}
}
