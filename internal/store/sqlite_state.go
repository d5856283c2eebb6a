package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dayplan-cli/internal/model"

	_ "modernc.org/sqlite"
)

const stateFileName = "state.sqlite"

// SQLite persists the local collection. Rows keep the full record as a JSON
// blob next to a few indexed columns.
type SQLite struct {
	path string
	db   *sql.DB
}

// StatePath is the local state db location inside a data dir.
func StatePath(dataDir string) string {
	return filepath.Join(filepath.Clean(dataDir), stateFileName)
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite: missing path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is locked"
	// when a sync loop and a CLI command share the file.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLiteState(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{path: path, db: db}, nil
}

func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrateSQLiteState(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL,
			date TEXT NOT NULL,
			rank TEXT NOT NULL,
			deleted INTEGER NOT NULL,
			last_modified_unixms INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_date ON items(date);`,
		`CREATE INDEX IF NOT EXISTS idx_items_seq ON items(seq);`,
		`CREATE TABLE IF NOT EXISTS days (
			day TEXT PRIMARY KEY,
			manual INTEGER NOT NULL,
			last_modified_unixms INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the whole collection, items in insertion order.
func (s *SQLite) Load(ctx context.Context) (model.Collection, error) {
	items, err := readJSONRows[model.Item](ctx, s.db, `SELECT json FROM items ORDER BY seq, id`)
	if err != nil {
		return model.Collection{}, fmt.Errorf("load items: %w", err)
	}
	days, err := readJSONRows[model.DayState](ctx, s.db, `SELECT json FROM days ORDER BY day`)
	if err != nil {
		return model.Collection{}, fmt.Errorf("load days: %w", err)
	}
	// Ensure nil slices are empty for stable callers.
	if items == nil {
		items = []model.Item{}
	}
	if days == nil {
		days = []model.DayState{}
	}
	return model.Collection{Items: items, Days: days}, nil
}

// SaveChange upserts touched rows. Existing items keep their sequence number so
// collection order survives restarts.
func (s *SQLite) SaveChange(ctx context.Context, ch Change) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	nowMs := time.Now().UTC().UnixMilli()
	for _, it := range ch.Items {
		if err := upsertItem(ctx, tx, it, nowMs); err != nil {
			return err
		}
	}
	for _, d := range ch.Days {
		if err := upsertDay(ctx, tx, d, nowMs); err != nil {
			return err
		}
	}
	for _, id := range ch.Removed {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
			return err
		}
	}
	if err := writeMeta(ctx, tx, "version", fmt.Sprintf("%d", ch.Version)); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll rewrites both tables from coll.
func (s *SQLite) ReplaceAll(ctx context.Context, coll model.Collection) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range []string{"items", "days"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}
	nowMs := time.Now().UTC().UnixMilli()
	for _, it := range coll.Items {
		if err := upsertItem(ctx, tx, it, nowMs); err != nil {
			return err
		}
	}
	for _, d := range coll.Days {
		if err := upsertDay(ctx, tx, d, nowMs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertItem(ctx context.Context, tx *sql.Tx, it model.Item, nowMs int64) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO items(id, seq, date, rank, deleted, last_modified_unixms, json, updated_at_unixms)
		VALUES(?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM items), ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			rank = excluded.rank,
			deleted = excluded.deleted,
			last_modified_unixms = excluded.last_modified_unixms,
			json = excluded.json,
			updated_at_unixms = excluded.updated_at_unixms`,
		it.ID, string(it.Date), it.Rank, boolToInt(it.Deleted()), it.LastModified.UTC().UnixMilli(), string(raw), nowMs)
	return err
}

func upsertDay(ctx context.Context, tx *sql.Tx, d model.DayState, nowMs int64) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO days(day, manual, last_modified_unixms, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		string(d.Day), boolToInt(d.Manual), d.LastModified.UTC().UnixMilli(), string(raw), nowMs)
	return err
}

func writeMeta(ctx context.Context, tx *sql.Tx, k, v string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v)
	return err
}

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
