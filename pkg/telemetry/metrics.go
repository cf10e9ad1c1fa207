// SPDX-License-Identifier: Apache-2.0
// Lifecycle metrics for class builds and instance construction.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/classkit/minion/pkg/minion"
)

// Recorder tracks class build and construction rates for production
// monitoring. It implements minion.EventEmitter, so it can be passed
// straight to Minionize via minion.WithEmitter.
type Recorder struct {
	// compiledCounter tracks successful class compilations
	compiledCounter metric.Int64Counter

	// compileFailedCounter tracks failed class compilations
	compileFailedCounter metric.Int64Counter

	// registeredCounter tracks class registrations
	registeredCounter metric.Int64Counter

	// constructedCounter tracks successful instance constructions by class
	constructedCounter metric.Int64Counter

	// constructFailedCounter tracks rejected constructions by class
	constructFailedCounter metric.Int64Counter

	mu sync.RWMutex
}

// NewRecorder creates a lifecycle metrics recorder with OTEL meters.
func NewRecorder() (*Recorder, error) {
	meter := otel.Meter("minion/lifecycle")

	compiledCounter, err := meter.Int64Counter(
		"minion.classes.compiled",
		metric.WithDescription("Classes compiled successfully"),
	)
	if err != nil {
		return nil, err
	}

	compileFailedCounter, err := meter.Int64Counter(
		"minion.classes.compile_failed",
		metric.WithDescription("Class compilations rejected by validation"),
	)
	if err != nil {
		return nil, err
	}

	registeredCounter, err := meter.Int64Counter(
		"minion.classes.registered",
		metric.WithDescription("Classes registered in a registry"),
	)
	if err != nil {
		return nil, err
	}

	constructedCounter, err := meter.Int64Counter(
		"minion.instances.constructed",
		metric.WithDescription("Instances constructed by class"),
	)
	if err != nil {
		return nil, err
	}

	constructFailedCounter, err := meter.Int64Counter(
		"minion.instances.construct_failed",
		metric.WithDescription("Constructions rejected by assertions or hooks, by class"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		compiledCounter:        compiledCounter,
		compileFailedCounter:   compileFailedCounter,
		registeredCounter:      registeredCounter,
		constructedCounter:     constructedCounter,
		constructFailedCounter: constructFailedCounter,
	}, nil
}

// Emit implements minion.EventEmitter by incrementing the counter for
// the event type. Counters are labeled by class name only; instance
// identifiers stay out of metric labels to keep cardinality bounded.
func (r *Recorder) Emit(ctx context.Context, event minion.Event) {
	if r == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs := metric.WithAttributes(ClassAttributes(event.Class, 0, 0, 0)...)
	switch event.Type {
	case minion.EventClassCompiled:
		r.compiledCounter.Add(ctx, 1, attrs)
	case minion.EventClassCompileFailed:
		r.compileFailedCounter.Add(ctx, 1, attrs)
	case minion.EventClassRegistered:
		r.registeredCounter.Add(ctx, 1, attrs)
	case minion.EventInstanceConstructed:
		r.constructedCounter.Add(ctx, 1, attrs)
	case minion.EventInstanceConstructFailed:
		r.constructFailedCounter.Add(ctx, 1, attrs)
	}
}
