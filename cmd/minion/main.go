package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/classkit/minion/pkg/config"
	"github.com/classkit/minion/pkg/predicates"
	"github.com/classkit/minion/pkg/telemetry"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigPath string
	Profile    string
	Sets       []string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := loadConfig(global)
	if err != nil {
		fatal(err)
	}
	telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	switch args[0] {
	case "validate":
		runValidate(global, cfg, args[1:])
	case "describe":
		runDescribe(global, args[1:])
	case "predicates":
		ensureNoArgs(args[1:])
		runPredicates(global)
	case "audit":
		runAudit(ctx, global, cfg, args[1:])
	case "help":
		printUsage()
	case "version":
		printVersion()
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func loadConfig(global globalFlags) (*config.Config, error) {
	loaderArgs := make([]string, 0, 4+2*len(global.Sets))
	if global.ConfigPath != "" {
		loaderArgs = append(loaderArgs, "--config", global.ConfigPath)
	}
	if global.Profile != "" {
		loaderArgs = append(loaderArgs, "--profile", global.Profile)
	}
	for _, pair := range global.Sets {
		loaderArgs = append(loaderArgs, "--set", pair)
	}
	return config.LoadWithCLI(loaderArgs)
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: getenv("MINION_CONFIG", ""),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--profile":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --profile")
			}
			flags.Profile = args[i+1]
			i++
		case strings.HasPrefix(arg, "--profile="):
			flags.Profile = strings.TrimPrefix(arg, "--profile=")
		case arg == "--set":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --set")
			}
			flags.Sets = append(flags.Sets, args[i+1])
			i++
		case strings.HasPrefix(arg, "--set="):
			flags.Sets = append(flags.Sets, strings.TrimPrefix(arg, "--set="))
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func runPredicates(flags globalFlags) {
	names := predicates.Names()
	if flags.JSON {
		printJSON(map[string]any{"predicates": names})
		return
	}
	writer := newTabWriter()
	writeRow(writer, "PREDICATE")
	for _, name := range names {
		writeRow(writer, name)
	}
	_ = writer.Flush()
}

func printJSON(value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(payload))
}

func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
}

func writeRow(writer *tabwriter.Writer, cols ...string) {
	for i, col := range cols {
		cols[i] = normalizeCell(col)
	}
	fmt.Fprintln(writer, strings.Join(cols, "\t"))
}

func normalizeCell(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return strings.Join(strings.Fields(value), " ")
}

func truncateMessage(value string, limit int) string {
	value = normalizeCell(value)
	if limit <= 0 || len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Println(version)
}

func printUsage() {
	fmt.Print(`Minion CLI

Usage:
  minion [global flags] <command> [args]

Global flags:
  --config <path>      Path to config.yaml
  --profile <name>     Config profile overlay (config.<name>.yaml)
  --set <key=value>    Override a config key (repeatable)
  --json               JSON output

Commands:
  validate [path...]        Check class files (defaults to classfile.dir from config)
  describe <file|dir> [--class <name>]
  predicates                List registered assert predicates
  audit list [--db <path>] [--class <name>] [--type <event>] [--limit N]
  version

`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func ensureNoArgs(args []string) {
	if len(args) > 0 {
		fatal(fmt.Errorf("unexpected args: %v", args))
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
