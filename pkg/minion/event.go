package minion

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted by the build pipeline
// and by constructors.
type EventType string

const (
	EventClassCompiled           EventType = "class.compiled"
	EventClassCompileFailed      EventType = "class.compile_failed"
	EventClassRegistered         EventType = "class.registered"
	EventInstanceConstructed     EventType = "instance.constructed"
	EventInstanceConstructFailed EventType = "instance.construct_failed"
)

// Event captures a semantic build or construction event.
type Event struct {
	Type       EventType
	Class      string
	InstanceID string
	Err        string
	Timestamp  time.Time
	Payload    map[string]any
}

// EventEmitter receives semantic events. Implementations must be safe
// for concurrent use; construction can happen from many goroutines.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter discards every event.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

type fanoutEmitter struct {
	emitters []EventEmitter
}

func (f *fanoutEmitter) Emit(ctx context.Context, event Event) {
	for _, e := range f.emitters {
		e.Emit(ctx, event)
	}
}

// CombineEmitters fans every event out to all given emitters, in order.
// Nil entries are skipped. With zero non-nil emitters the result is a
// no-op.
func CombineEmitters(emitters ...EventEmitter) EventEmitter {
	kept := make([]EventEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e == nil {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == 0 {
		return NoopEventEmitter{}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &fanoutEmitter{emitters: kept}
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(eventType EventType, class string, instanceID string, payload map[string]any) Event {
	return Event{
		Type:       eventType,
		Class:      class,
		InstanceID: instanceID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}
