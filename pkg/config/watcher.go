package config

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls configuration files for changes and reloads the layered
// configuration when any of them is rewritten.
type Watcher struct {
	mu          sync.RWMutex
	path        string
	profile     string
	watched     []string
	interval    time.Duration
	lastModTime map[string]time.Time
	config      *Config
	listeners   []func(*Config)
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval for file changes.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher for the given base config file and
// profile. It loads the initial configuration and polls both the base
// file and the active profile overlay for modification.
func NewWatcher(path, profile string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:        path,
		profile:     profile,
		interval:    1 * time.Second,
		lastModTime: make(map[string]time.Time),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	if path != "" {
		w.watched = append(w.watched, path)
	}
	if pp := profileConfigPath(path, profile); pp != "" {
		w.watched = append(w.watched, pp)
	}
	for _, p := range w.watched {
		if info, err := os.Stat(p); err == nil {
			w.lastModTime[p] = info.ModTime()
		}
	}

	cfg, err := LoadWithProfile(path, profile)
	if err != nil {
		return nil, err
	}
	w.config = cfg

	return w, nil
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Start begins watching for configuration changes.
func (w *Watcher) Start(ctx context.Context) {
	go w.watch(ctx)
}

// Stop stops the watcher and waits for the poll loop to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForChanges() {
				w.reload()
			}
		}
	}
}

func (w *Watcher) checkForChanges() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, p := range w.watched {
		info, err := os.Stat(p)
		if err != nil {
			// File may have been removed between polls.
			continue
		}
		last, seen := w.lastModTime[p]
		if !seen || info.ModTime().After(last) {
			w.lastModTime[p] = info.ModTime()
			changed = true
		}
	}
	return changed
}

func (w *Watcher) reload() {
	cfg, err := LoadWithProfile(w.path, w.profile)
	if err != nil {
		w.logger.Warn("config.reload.error", slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.config = cfg
	listeners := make([]func(*Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("config.reload.complete",
		slog.String("path", w.path),
		slog.String("profile", w.profile))

	for _, fn := range listeners {
		fn(cfg)
	}
}

// WatchConfig creates a watcher for the given config path and profile
// and starts it. It returns the watcher and the initial configuration.
func WatchConfig(ctx context.Context, path, profile string, opts ...WatcherOption) (*Watcher, *Config, error) {
	w, err := NewWatcher(path, profile, opts...)
	if err != nil {
		return nil, nil, err
	}
	w.Start(ctx)
	return w, w.Config(), nil
}

// ReloadableConfig is a thread-safe holder for a Config that a watcher
// callback can swap atomically while readers keep using the accessors.
type ReloadableConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewReloadableConfig wraps an initial configuration.
func NewReloadableConfig(cfg *Config) *ReloadableConfig {
	return &ReloadableConfig{config: cfg}
}

// Get returns the current configuration.
func (r *ReloadableConfig) Get() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Update atomically replaces the configuration.
func (r *ReloadableConfig) Update(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
}

// Log returns the logging configuration.
func (r *ReloadableConfig) Log() LogConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Log
}

// Telemetry returns the telemetry configuration.
func (r *ReloadableConfig) Telemetry() TelemetryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Telemetry
}

// Audit returns the audit configuration.
func (r *ReloadableConfig) Audit() AuditConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Audit
}

// Classfile returns the classfile configuration.
func (r *ReloadableConfig) Classfile() ClassfileConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.Classfile
}
