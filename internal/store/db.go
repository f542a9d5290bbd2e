// Package store is the TaskStore: durable SQLite persistence for tasks
// (SPEC_FULL.md §4.7). Grounded on
// surge-downloader-surge/internal/engine/state/state.go for the
// withTx/upsert shape, itsmenewbie03-greg/internal/database/database.go
// for the connection-setup pragmas, and original_source/main.py's
// init_database/_ensure_schedule_columns/migrate_from_json for the exact
// schema and forward-migration semantics (no Go file in the pack defines
// the sql.Open call the teacher's state.go assumes, so this file is
// authored fresh against that implied contract).
package store

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	dest_folder TEXT NOT NULL,
	filename TEXT NOT NULL,
	threads INTEGER DEFAULT 4,
	total_size INTEGER DEFAULT 0,
	downloaded INTEGER DEFAULT 0,
	status TEXT DEFAULT 'queued',
	error TEXT,
	temp_root TEXT DEFAULT '',
	media_json TEXT,
	media_state_json TEXT,
	headers_json TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(url, dest_folder)
)`

// scheduleColumns are added by ALTER TABLE on first run against a database
// created before schedules existed, mirroring
// original_source/main.py:_ensure_schedule_columns.
var scheduleColumns = []struct {
	name string
	ddl  string
}{
	{"scheduled_start", "ALTER TABLE downloads ADD COLUMN scheduled_start TEXT"},
	{"scheduled_end", "ALTER TABLE downloads ADD COLUMN scheduled_end TEXT"},
	{"repeat_interval", "ALTER TABLE downloads ADD COLUMN repeat_interval INTEGER DEFAULT 0"},
}

// DB wraps a *sql.DB opened against the task store's SQLite file, with
// WAL mode and foreign keys enabled.
type DB struct {
	conn *sql.DB
}

// openDB opens (creating if absent) the SQLite database at path, runs the
// schema and column migrations, and returns a ready-to-use DB. Exported
// through TaskStore.Open in store.go, which is the package's public
// entry point.
func openDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite only tolerates one writer; modernc's driver doesn't pool
	// connections the way a networked DB does, so cap at one to avoid
	// "database is locked" errors under concurrent access.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	rows, err := db.conn.Query("PRAGMA table_info(downloads)")
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return err
		}
		existing[name] = true
	}
	rows.Close()

	for _, col := range scheduleColumns {
		if existing[col.name] {
			continue
		}
		if _, err := db.conn.Exec(col.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any returned error.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// fileExists is a small helper shared by the legacy-JSON import path.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
