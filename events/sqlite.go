package events

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder mirrors event trails into a SQLite table so the indexing
// layer can query them without touching the ledgers.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// StoredEvent is one row of the events table.
type StoredEvent struct {
	ID      uuid.UUID
	Seq     uint64
	Kind    Kind
	At      time.Time
	Payload []byte
}

// Decode rebuilds the typed event.
func (s StoredEvent) Decode() (Event, error) {
	return DecodePayload(s.Kind, s.Payload)
}

// NewSQLiteRecorder opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("events: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id      TEXT PRIMARY KEY,
			seq     INTEGER NOT NULL UNIQUE,
			kind    TEXT NOT NULL,
			at      INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Emit writes the whole trail in one SQL transaction.
func (r *SQLiteRecorder) Emit(trail []Envelope) error {
	if len(trail) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSinkClosed
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("events: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO events (id, seq, kind, at, payload) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("events: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, env := range trail {
		payload, err := EncodePayload(env.Event)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(env.ID.String(), env.Seq, string(env.Kind()), env.At.UnixNano(), string(payload)); err != nil {
			return fmt.Errorf("events: insert %s #%d: %w", env.Kind(), env.Seq, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("events: commit: %w", err)
	}
	return nil
}

// Count returns the number of stored events.
func (r *SQLiteRecorder) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("events: count: %w", err)
	}
	return n, nil
}

// LastSeq returns the highest stored sequence number, or zero when empty.
func (r *SQLiteRecorder) LastSeq() (uint64, error) {
	var seq sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("events: last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

// ListByKind returns the stored events of one kind ordered by sequence.
func (r *SQLiteRecorder) ListByKind(kind Kind) ([]StoredEvent, error) {
	rows, err := r.db.Query(`SELECT id, seq, kind, at, payload FROM events WHERE kind = ? ORDER BY seq`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("events: list %s: %w", kind, err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			id, k, payload string
			seq, at        int64
		)
		if err := rows.Scan(&id, &seq, &k, &at, &payload); err != nil {
			return nil, fmt.Errorf("events: scan: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("events: parse id %q: %w", id, err)
		}
		out = append(out, StoredEvent{
			ID:      parsed,
			Seq:     uint64(seq),
			Kind:    Kind(k),
			At:      time.Unix(0, at),
			Payload: []byte(payload),
		})
	}
	return out, rows.Err()
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
