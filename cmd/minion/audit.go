package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/classkit/minion/pkg/audit"
	"github.com/classkit/minion/pkg/config"
)

func runAudit(ctx context.Context, flags globalFlags, cfg *config.Config, args []string) {
	if len(args) == 0 || args[0] != "list" {
		fatal(errors.New("usage: minion audit list [--db <path>] [--class <name>] [--type <event>] [--limit N]"))
	}

	cmd := flag.NewFlagSet("audit list", flag.ContinueOnError)
	dbPath := cmd.String("db", "", "SQLite audit database (defaults to audit.path from config)")
	class := cmd.String("class", "", "Class name filter")
	eventType := cmd.String("type", "", "Event type filter")
	limit := cmd.Int("limit", 50, "Maximum events")
	if err := cmd.Parse(args[1:]); err != nil {
		fatal(err)
	}

	path := *dbPath
	if path == "" {
		if cfg.Audit.Backend != "sqlite" {
			fatal(fmt.Errorf("audit backend %q keeps no persisted events; pass --db or set audit.backend to sqlite", cfg.Audit.Backend))
		}
		path = cfg.Audit.Path
	}

	store, db, err := audit.Open(path)
	if err != nil {
		fatal(err)
	}
	defer db.Close()

	events, err := store.List(ctx, audit.Filter{
		Class: *class,
		Type:  *eventType,
		Limit: *limit,
	})
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		printJSON(events)
		return
	}

	writer := newTabWriter()
	writeRow(writer, "RECORDED", "TYPE", "CLASS", "INSTANCE", "ERROR")
	for _, event := range events {
		writeRow(writer,
			formatTime(event.RecordedAt),
			event.Type,
			event.Class,
			event.InstanceID,
			truncateMessage(event.Error, 60),
		)
	}
	_ = writer.Flush()
}
