// Package faultstore persists sealed faults to a SQLite journal and prunes
// old entries on a schedule.
package faultstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/faultline/internal/foundation/errors"
	"git.home.luguber.info/inful/faultline/internal/fault"
)

// Sentinel errors.
var (
	ErrAppendFailed = ferrors.StoreError("failed to append fault").Build()
	ErrQueryFailed  = ferrors.StoreError("failed to query faults").Build()
)

// Query filters List results. Zero fields match everything.
type Query struct {
	Since time.Time
	Label string
	Limit int
}

// Store is a fault journal.
type Store interface {
	Append(ctx context.Context, r fault.Record) (int64, error)
	List(ctx context.Context, q Query) ([]fault.Record, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the journal at dbPath. Use ":memory:" for
// an in-memory journal.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "open sqlite database").Build()
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryStore, "initialize schema").Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS faults (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code INTEGER NOT NULL,
		label TEXT NOT NULL,
		grp TEXT NOT NULL,
		message TEXT NOT NULL,
		file TEXT,
		line INTEGER,
		timestamp INTEGER NOT NULL,
		request_id TEXT,
		fingerprint TEXT,
		trace TEXT,
		data TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_faults_timestamp ON faults(timestamp);
	CREATE INDEX IF NOT EXISTS idx_faults_label ON faults(label);
	CREATE INDEX IF NOT EXISTS idx_faults_fingerprint ON faults(fingerprint);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores r and returns its id.
func (s *SQLiteStore) Append(ctx context.Context, r fault.Record) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	traceJSON, err := json.Marshal(r.Trace)
	if err != nil {
		return 0, ErrAppendFailed.Wrap(err)
	}
	var dataJSON []byte
	if len(r.Data) > 0 {
		if dataJSON, err = json.Marshal(r.Data); err != nil {
			return 0, ErrAppendFailed.Wrap(err)
		}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO faults (code, label, grp, message, file, line, timestamp, request_id, fingerprint, trace, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Code, r.Label, r.Group, r.Message, r.File, r.Line, r.Timestamp.UnixNano(),
		r.RequestID, r.Fingerprint, string(traceJSON), string(dataJSON),
	)
	if err != nil {
		return 0, ErrAppendFailed.Wrap(err)
	}
	return res.LastInsertId()
}

// List returns matching faults, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]fault.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, code, label, grp, message, file, line, timestamp, request_id, fingerprint, trace, data
		FROM faults WHERE timestamp >= ?`
	args := []any{q.Since.UnixNano()}
	if q.Since.IsZero() {
		args[0] = int64(0)
	}
	if q.Label != "" {
		query += " AND label = ?"
		args = append(args, q.Label)
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ErrQueryFailed.Wrap(err)
	}
	defer func() { _ = rows.Close() }()

	var out []fault.Record
	for rows.Next() {
		var (
			r                   fault.Record
			ts                  int64
			traceJSON, dataJSON sql.NullString
			file, reqID, finger sql.NullString
			line                sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Code, &r.Label, &r.Group, &r.Message, &file, &line, &ts,
			&reqID, &finger, &traceJSON, &dataJSON); err != nil {
			return nil, ErrQueryFailed.Wrap(err)
		}
		r.File, r.Line, r.RequestID, r.Fingerprint = file.String, int(line.Int64), reqID.String, finger.String
		r.Timestamp = time.Unix(0, ts).UTC()
		if traceJSON.String != "" && traceJSON.String != "null" {
			if err := json.Unmarshal([]byte(traceJSON.String), &r.Trace); err != nil {
				return nil, ErrQueryFailed.Wrap(err)
			}
		}
		if dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &r.Data); err != nil {
				return nil, ErrQueryFailed.Wrap(err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrQueryFailed.Wrap(err)
	}
	return out, nil
}

// Prune deletes faults recorded before the cutoff.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM faults WHERE timestamp < ?", before.UnixNano())
	if err != nil {
		return 0, ferrors.WrapError(err, ferrors.CategoryStore, "prune faults").Build()
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
