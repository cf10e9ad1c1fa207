package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected default exporter none, got %s", cfg.Telemetry.Exporter)
	}
	if cfg.Audit.Backend != "memory" {
		t.Errorf("expected default audit backend memory, got %s", cfg.Audit.Backend)
	}
	if cfg.Audit.Enabled {
		t.Errorf("expected audit disabled by default")
	}
}

func TestLoadEnv(t *testing.T) {
	os.Setenv("MINION_LOG_LEVEL", "debug")
	defer os.Unsetenv("MINION_LOG_LEVEL")
	os.Setenv("MINION_TELEMETRY_EXPORTER", "stdout")
	defer os.Unsetenv("MINION_TELEMETRY_EXPORTER")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug from env, got %s", cfg.Log.Level)
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("expected exporter stdout from env, got %s", cfg.Telemetry.Exporter)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	content := `
log:
  level: "warn"
  format: "json"
audit:
  enabled: true
  backend: "sqlite"
  path: "/tmp/audit.db"
classfile:
  dir: "./classes"
`
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "warn" || cfg.Log.Format != "json" {
		t.Errorf("log config not loaded: %+v", cfg.Log)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Backend != "sqlite" || cfg.Audit.Path != "/tmp/audit.db" {
		t.Errorf("audit config not loaded: %+v", cfg.Audit)
	}
	if cfg.Classfile.Dir != "./classes" {
		t.Errorf("classfile dir not loaded: %s", cfg.Classfile.Dir)
	}
	// Untouched sections keep defaults.
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected default exporter, got %s", cfg.Telemetry.Exporter)
	}
}

func TestLoadWithProfile(t *testing.T) {
	tmpDir := t.TempDir()

	baseConfig := `
log:
  level: "info"
telemetry:
  exporter: "stdout"
`
	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte(baseConfig), 0644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}

	devConfig := `
log:
  level: "debug"
`
	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte(devConfig), 0644); err != nil {
		t.Fatalf("failed to write dev config: %v", err)
	}

	prodConfig := `
log:
  level: "error"
telemetry:
  exporter: "otlp"
`
	prodPath := filepath.Join(tmpDir, "config.prod.yaml")
	if err := os.WriteFile(prodPath, []byte(prodConfig), 0644); err != nil {
		t.Fatalf("failed to write prod config: %v", err)
	}

	tests := []struct {
		name         string
		profile      string
		wantLevel    string
		wantExporter string // Should inherit from base when not overridden
	}{
		{
			name:         "no profile - base only",
			profile:      "",
			wantLevel:    "info",
			wantExporter: "stdout",
		},
		{
			name:         "dev profile",
			profile:      "dev",
			wantLevel:    "debug",
			wantExporter: "stdout", // Not overridden in dev
		},
		{
			name:         "prod profile",
			profile:      "prod",
			wantLevel:    "error",
			wantExporter: "otlp",
		},
		{
			name:         "nonexistent profile - falls back to base",
			profile:      "staging",
			wantLevel:    "info",
			wantExporter: "stdout",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadWithProfile(basePath, tc.profile)
			if err != nil {
				t.Fatalf("LoadWithProfile failed: %v", err)
			}

			if cfg.Log.Level != tc.wantLevel {
				t.Errorf("log level: got %s, want %s", cfg.Log.Level, tc.wantLevel)
			}
			if cfg.Telemetry.Exporter != tc.wantExporter {
				t.Errorf("exporter: got %s, want %s", cfg.Telemetry.Exporter, tc.wantExporter)
			}
		})
	}
}

func TestProfileConfigPath(t *testing.T) {
	tmpDir := t.TempDir()

	devPath := filepath.Join(tmpDir, "config.dev.yaml")
	if err := os.WriteFile(devPath, []byte("log: {}"), 0644); err != nil {
		t.Fatalf("failed to create dev config: %v", err)
	}

	basePath := filepath.Join(tmpDir, "config.yaml")

	tests := []struct {
		name     string
		base     string
		profile  string
		wantPath string
	}{
		{
			name:     "existing profile",
			base:     basePath,
			profile:  "dev",
			wantPath: devPath,
		},
		{
			name:     "nonexistent profile",
			base:     basePath,
			profile:  "prod",
			wantPath: "",
		},
		{
			name:     "empty profile",
			base:     basePath,
			profile:  "",
			wantPath: "",
		},
		{
			name:     "empty base",
			base:     "",
			profile:  "dev",
			wantPath: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := profileConfigPath(tc.base, tc.profile)
			if got != tc.wantPath {
				t.Errorf("profileConfigPath(%q, %q) = %q, want %q", tc.base, tc.profile, got, tc.wantPath)
			}
		})
	}
}
