// Package runtime assembles a configured engine process: telemetry,
// audit, registries and class files wired together behind a single
// Start/Stop lifecycle.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/classkit/minion/pkg/audit"
	"github.com/classkit/minion/pkg/classfile"
	"github.com/classkit/minion/pkg/config"
	"github.com/classkit/minion/pkg/minion"
	"github.com/classkit/minion/pkg/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Runtime defines the minimal lifecycle for hosting the engine.
type Runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// LocalRuntime hosts the engine in-process. Implementations and roles
// are registered on Registry() before Start; Start initializes
// telemetry, opens the audit store, compiles the configured class
// files and begins the audit retention sweep.
type LocalRuntime struct {
	cfg      *config.Config
	version  string
	registry *minion.Registry
	emitter  minion.EventEmitter
	store    audit.Store
	db       *sql.DB
	shutdown telemetry.ShutdownFunc
	tracer   trace.Tracer
	started  bool

	auditMode string

	retention     time.Duration
	pruneInterval time.Duration
	pruneTimeout  time.Duration
	pruneCancel   context.CancelFunc
	pruneDone     chan struct{}
}

// NewLocal creates a runtime around cfg with a fresh class registry.
func NewLocal(cfg *config.Config) *LocalRuntime {
	return &LocalRuntime{
		cfg:      cfg,
		version:  "dev",
		registry: minion.NewRegistry(),
	}
}

// SetVersion sets the service version reported to telemetry.
func (r *LocalRuntime) SetVersion(version string) {
	if version != "" {
		r.version = version
	}
}

// SetRegistry replaces the runtime's class registry. Must be called
// before Start.
func (r *LocalRuntime) SetRegistry(reg *minion.Registry) {
	if reg != nil {
		r.registry = reg
	}
}

// SetAuditStore overrides the config-selected audit store. Must be
// called before Start; the caller keeps ownership of the store's
// resources.
func (r *LocalRuntime) SetAuditStore(store audit.Store) {
	r.store = store
}

// Registry returns the class registry the runtime compiles into.
func (r *LocalRuntime) Registry() *minion.Registry {
	return r.registry
}

// Emitter returns the combined event emitter wired at Start. Embedders
// pass it to their own Minionize calls so code-built classes share the
// audit and metrics pipeline. Nil before Start.
func (r *LocalRuntime) Emitter() minion.EventEmitter {
	return r.emitter
}

// AuditStore returns the audit store, or nil when auditing is off.
func (r *LocalRuntime) AuditStore() audit.Store {
	return r.store
}

// Start initializes telemetry and audit, compiles class files from the
// configured directory and marks the runtime ready.
func (r *LocalRuntime) Start(ctx context.Context) error {
	if r.cfg == nil {
		return errors.New("runtime needs a config")
	}
	if r.started {
		return errors.New("runtime already started")
	}

	shutdown, err := telemetry.InitWithConfig(r.cfg.Telemetry.Service, r.version, telemetry.Config{
		Exporter: r.cfg.Telemetry.Exporter,
		Endpoint: r.cfg.Telemetry.Endpoint,
		Insecure: r.cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	r.shutdown = shutdown

	if err := r.initEmitter(); err != nil {
		r.teardown(ctx)
		return err
	}

	loaded, err := r.compileClassfiles()
	if err != nil {
		r.teardown(ctx)
		return err
	}

	r.tracer = otel.Tracer("minion/runtime")
	r.started = true
	r.startPruneSweeper()

	slog.Default().InfoContext(ctx, "runtime.start",
		slog.String("telemetry", r.cfg.Telemetry.Exporter),
		slog.String("audit", r.auditMode),
		slog.Int("classes", loaded),
	)
	return nil
}

func (r *LocalRuntime) initEmitter() error {
	emitters := make([]minion.EventEmitter, 0, 2)

	recorder, err := telemetry.NewRecorder()
	if err != nil {
		return err
	}
	emitters = append(emitters, recorder)

	r.auditMode = "off"
	if r.store != nil {
		r.auditMode = "custom"
	} else if r.cfg.Audit.Enabled {
		switch r.cfg.Audit.Backend {
		case "", "memory":
			r.store = audit.NewMemoryStore()
			r.auditMode = "memory"
		case "sqlite":
			store, db, err := audit.Open(r.cfg.Audit.Path)
			if err != nil {
				return err
			}
			r.store = store
			r.db = db
			r.auditMode = "sqlite"
		default:
			return fmt.Errorf("unknown audit backend %q", r.cfg.Audit.Backend)
		}
	}
	if r.store != nil {
		emitters = append(emitters, audit.NewEmitter(r.store))
	}

	r.emitter = minion.CombineEmitters(emitters...)
	return nil
}

func (r *LocalRuntime) compileClassfiles() (int, error) {
	if r.cfg.Classfile.Dir == "" {
		return 0, nil
	}
	specs, err := classfile.LoadDir(r.cfg.Classfile.Dir)
	if err != nil {
		return 0, err
	}
	for _, spec := range specs {
		if _, err := minion.Minionize(spec, minion.WithRegistry(r.registry), minion.WithEmitter(r.emitter)); err != nil {
			return 0, err
		}
	}
	return len(specs), nil
}

// Stop halts the sweeper, closes the audit database and flushes
// telemetry.
func (r *LocalRuntime) Stop(ctx context.Context) error {
	r.stopPruneSweeper()
	err := r.teardown(ctx)
	r.started = false
	return err
}

func (r *LocalRuntime) teardown(ctx context.Context) error {
	var errs []error
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	if r.shutdown != nil {
		errs = append(errs, r.shutdown(ctx))
		r.shutdown = nil
	}
	return errors.Join(errs...)
}

// Construct builds an instance of a registered class, traced and
// logged.
func (r *LocalRuntime) Construct(ctx context.Context, className string, params map[string]any) (*minion.Instance, error) {
	if !r.started {
		return nil, errors.New("runtime not started")
	}
	cls, ok := r.registry.LookupClass(className)
	if !ok {
		return nil, fmt.Errorf("no class %q registered", className)
	}

	ctx, span := r.tracer.Start(ctx, "Runtime.Construct", trace.WithAttributes(
		telemetry.ClassAttributes(className, len(cls.AttributeNames()), len(cls.ParamNames()), len(cls.Interface()))...,
	))
	defer span.End()
	traceID, spanID := traceIDs(span)
	log := slog.Default()

	inst, err := cls.New(params)
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "runtime.construct.error",
			slog.String("class", className),
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	log.InfoContext(ctx, "runtime.construct.complete",
		slog.String("class", className),
		slog.String("instance_id", inst.ID()),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
	)
	return inst, nil
}

// Dispatch calls a public selector on an instance, traced and logged.
func (r *LocalRuntime) Dispatch(ctx context.Context, inst *minion.Instance, selector string, args ...any) (any, error) {
	if !r.started {
		return nil, errors.New("runtime not started")
	}
	if inst == nil {
		return nil, errors.New("dispatch needs an instance")
	}
	className := inst.Class().DisplayName()

	ctx, span := r.tracer.Start(ctx, "Runtime.Dispatch", trace.WithAttributes(
		telemetry.CallAttributes(className, selector, "public")...,
	))
	defer span.End()
	traceID, spanID := traceIDs(span)
	log := slog.Default()

	result, err := inst.Call(selector, args...)
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "runtime.dispatch.error",
			slog.String("class", className),
			slog.String("selector", selector),
			slog.String("trace_id", traceID),
			slog.String("span_id", spanID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	log.DebugContext(ctx, "runtime.dispatch.complete",
		slog.String("class", className),
		slog.String("selector", selector),
		slog.String("trace_id", traceID),
		slog.String("span_id", spanID),
	)
	return result, nil
}

func traceIDs(span trace.Span) (string, string) {
	sc := span.SpanContext()
	return sc.TraceID().String(), sc.SpanID().String()
}
