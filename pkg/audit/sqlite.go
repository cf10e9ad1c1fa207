package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Open opens (creating if needed) a SQLite database at path and returns
// a store backed by it. The caller owns closing the returned DB.
func Open(path string) (*SQLiteStore, *sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}

// Record stores a single audit event.
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	payload, err := encodePayload(event.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO minion_audit_events (
			event_type, class_name, instance_id, error_text, payload_json, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.Type,
		event.Class,
		event.InstanceID,
		event.Error,
		string(payload),
		normalizeTime(event.RecordedAt),
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT event_type, class_name, instance_id, error_text, payload_json, recorded_at
		FROM minion_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.Class != "" {
		addFilter("class_name = ?", filter.Class)
	}
	if filter.Type != "" {
		addFilter("event_type = ?", filter.Type)
	}
	query += where + " ORDER BY recorded_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event       Event
			payloadJSON string
			recorded    sql.NullTime
		)
		if err := rows.Scan(
			&event.Type,
			&event.Class,
			&event.InstanceID,
			&event.Error,
			&payloadJSON,
			&recorded,
		); err != nil {
			return nil, err
		}
		if payloadJSON != "" && payloadJSON != "null" {
			if payload, err := decodePayload([]byte(payloadJSON)); err == nil {
				event.Payload = payload
			}
		}
		if recorded.Valid {
			event.RecordedAt = recorded.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// PruneBefore deletes events recorded before cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM minion_audit_events WHERE recorded_at < ?`,
		normalizeTime(cutoff),
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS minion_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			class_name TEXT,
			instance_id TEXT,
			error_text TEXT,
			payload_json TEXT,
			recorded_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_minion_audit_class ON minion_audit_events(class_name);
		CREATE INDEX IF NOT EXISTS idx_minion_audit_type ON minion_audit_events(event_type);
	`)
	return err
}
