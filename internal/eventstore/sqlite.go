package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/modjar/internal/foundation/errors"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS build_events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	build_id TEXT NOT NULL,
	type TEXT NOT NULL,
	at_ms INTEGER NOT NULL,
	payload BLOB NOT NULL,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS build_events_build ON build_events(build_id);
CREATE INDEX IF NOT EXISTS build_events_at ON build_events(at_ms);
`

const selectEvents = "SELECT seq, build_id, type, at_ms, payload, metadata FROM build_events "

// SQLiteStore is the ledger backed by a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens the ledger at path, creating the file and its
// directory when missing. ":memory:" opens a throwaway ledger.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create ledger directory").
				WithContext(errors.ContextPath, path).
				Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr(err, "open ledger")
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ledgerSchema); err != nil {
		_ = db.Close()
		return nil, storeErr(err, "initialize ledger schema")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, ev Event) error {
	var meta []byte
	if len(ev.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(ev.Metadata); err != nil {
			return storeErr(err, "marshal event metadata")
		}
	}
	payload := []byte(ev.Payload)
	if payload == nil {
		payload = []byte("{}")
	}
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO build_events (build_id, type, at_ms, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		ev.BuildID, ev.Type, at.UnixMilli(), payload, meta)
	if err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, "append event").
			WithContext("build_id", ev.BuildID).
			WithContext("event_type", ev.Type).
			Build()
	}
	return nil
}

func (s *SQLiteStore) Build(ctx context.Context, buildID string) ([]Event, error) {
	return s.query(ctx, selectEvents+"WHERE build_id = ? ORDER BY seq", buildID)
}

func (s *SQLiteStore) Between(ctx context.Context, from, to time.Time) ([]Event, error) {
	return s.query(ctx, selectEvents+"WHERE at_ms BETWEEN ? AND ? ORDER BY seq", from.UnixMilli(), to.UnixMilli())
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storeErr(err, "query ledger")
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var (
			ev      Event
			atMS    int64
			payload []byte
			meta    sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &ev.BuildID, &ev.Type, &atMS, &payload, &meta); err != nil {
			return nil, storeErr(err, "scan ledger row")
		}
		ev.At = time.UnixMilli(atMS)
		ev.Payload = payload
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &ev.Metadata); err != nil {
				return nil, storeErr(err, "decode event metadata")
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "read ledger")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
