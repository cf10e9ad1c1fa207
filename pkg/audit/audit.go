// Package audit persists class lifecycle events so that compilations
// and constructions can be inspected after the fact.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/classkit/minion/pkg/minion"
)

// Event is one persisted lifecycle record.
type Event struct {
	Type       string
	Class      string
	InstanceID string
	Error      string
	Payload    map[string]any
	RecordedAt time.Time
}

// Store persists lifecycle audit events.
type Store interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// Pruner is implemented by stores that can discard old events.
type Pruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Filter limits audit event queries.
type Filter struct {
	Class string
	Type  string
	Limit int
}

// MemoryStore keeps audit events in memory.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore returns an in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends an audit event.
func (s *MemoryStore) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns filtered audit events.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if filter.Class != "" && ev.Class != filter.Class {
			continue
		}
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		out = append(out, ev)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// PruneBefore drops events recorded before cutoff and reports how many
// were removed.
func (s *MemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.RecordedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, ev)
	}
	pruned := len(s.events) - len(kept)
	s.events = kept
	return pruned, nil
}

// Emitter bridges the engine's event stream into a Store. It implements
// minion.EventEmitter; record failures are logged, never propagated,
// so auditing cannot fail a construction.
type Emitter struct {
	store  Store
	logger *slog.Logger
}

// NewEmitter wraps a store as an event emitter.
func NewEmitter(store Store) *Emitter {
	return &Emitter{store: store, logger: slog.Default()}
}

// Emit implements minion.EventEmitter.
func (e *Emitter) Emit(ctx context.Context, event minion.Event) {
	if e == nil || e.store == nil {
		return
	}
	if err := e.store.Record(ctx, FromLifecycle(event)); err != nil {
		e.logger.Warn("minion.audit.record_failed",
			slog.String("event", string(event.Type)),
			slog.String("class", event.Class),
			slog.String("error", err.Error()))
	}
}

// FromLifecycle converts an engine event into an audit record.
func FromLifecycle(event minion.Event) Event {
	return Event{
		Type:       string(event.Type),
		Class:      event.Class,
		InstanceID: event.InstanceID,
		Error:      event.Err,
		Payload:    event.Payload,
		RecordedAt: normalizeTime(event.Timestamp),
	}
}

// encodePayload marshals the payload into JSON.
func encodePayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return []byte("null"), nil
	}
	return json.Marshal(payload)
}

// decodePayload parses a JSON payload.
func decodePayload(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeTime ensures timestamps are in UTC.
func normalizeTime(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return value.UTC()
}
