package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Audit     AuditConfig     `koanf:"audit"`
	Classfile ClassfileConfig `koanf:"classfile"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter string `koanf:"exporter"` // none, stdout, otlp
	Endpoint string `koanf:"endpoint"`
	Insecure bool   `koanf:"insecure"`
	Service  string `koanf:"service"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Backend string `koanf:"backend"` // memory, sqlite
	Path    string `koanf:"path"`
}

type ClassfileConfig struct {
	Dir string `koanf:"dir"`
}

// Global k instance
var k = koanf.New(".")

func Load(path string) (*Config, error) {
	return LoadWithProfile(path, "")
}

// LoadWithProfile layers configuration: defaults, then the base file,
// then config.<profile>.yaml from the same directory when it exists,
// then MINION_* environment variables.
func LoadWithProfile(path, profile string) (*Config, error) {
	if err := loadLayers(path, profile); err != nil {
		return nil, err
	}
	return unmarshal()
}

// LoadWithCLI loads like LoadWithProfile, taking --config and --profile
// from args and applying --set key=value pairs on top of every other
// source. Arguments it does not recognize are skipped, so callers may
// pass their full command line.
func LoadWithCLI(args []string) (*Config, error) {
	path, profile, sets, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	if err := loadLayers(path, profile); err != nil {
		return nil, err
	}
	for _, ov := range sets {
		k.Set(ov.key, ov.value)
	}
	return unmarshal()
}

func loadLayers(path, profile string) error {
	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.exporter", "none")
	k.Set("telemetry.endpoint", "localhost:4317")
	k.Set("telemetry.insecure", true)
	k.Set("telemetry.service", "minion")

	k.Set("audit.enabled", false)
	k.Set("audit.backend", "memory")
	k.Set("audit.path", "minion_audit.db")

	k.Set("classfile.dir", "")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return err
		}
	}

	// 2. Profile override file, if present
	if pp := profileConfigPath(path, profile); pp != "" {
		if err := k.Load(file.Provider(pp), yaml.Parser()); err != nil {
			return err
		}
	}

	// 3. Load from ENV (MINION_LOG_LEVEL -> log.level)
	return k.Load(env.Provider("MINION_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MINION_")), "_", ".", -1)
	}), nil)
}

func unmarshal() (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type override struct {
	key   string
	value any
}

// parseCLIOverrides scans args for --config, --profile and repeatable
// --set key=value flags. Each flag also accepts the --flag=value form.
func parseCLIOverrides(args []string) (string, string, []override, error) {
	var (
		path    string
		profile string
		sets    []override
	)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for --config")
			}
			i++
			path = args[i]
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for --profile")
			}
			i++
			profile = args[i]
		case strings.HasPrefix(arg, "--profile="):
			profile = strings.TrimPrefix(arg, "--profile=")
		case arg == "--set":
			if i+1 >= len(args) {
				return "", "", nil, fmt.Errorf("missing value for --set")
			}
			i++
			ov, err := parseSet(args[i])
			if err != nil {
				return "", "", nil, err
			}
			sets = append(sets, ov)
		case strings.HasPrefix(arg, "--set="):
			ov, err := parseSet(strings.TrimPrefix(arg, "--set="))
			if err != nil {
				return "", "", nil, err
			}
			sets = append(sets, ov)
		}
	}
	return path, profile, sets, nil
}

func parseSet(pair string) (override, error) {
	key, raw, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return override{}, fmt.Errorf("invalid --set %q, expected key=value", pair)
	}
	return override{key: key, value: coerceValue(raw)}, nil
}

// coerceValue keeps --set booleans and numbers typed. Anything that is
// not a JSON literal stays a plain string.
func coerceValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// profileConfigPath derives the sibling profile file for a base config
// path, e.g. config.yaml + "dev" -> config.dev.yaml. Returns "" when
// either input is empty or the derived file does not exist.
func profileConfigPath(base, profile string) string {
	if base == "" || profile == "" {
		return ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)
	candidate := filepath.Join(filepath.Dir(base), stem+"."+profile+ext)
	if _, err := os.Stat(candidate); err != nil {
		return ""
	}
	return candidate
}
