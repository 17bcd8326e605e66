// Package sqlite provides the embedded SQLite stores for listings and
// parse runs.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	price INTEGER NOT NULL DEFAULT 0,
	district TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	rooms TEXT NOT NULL DEFAULT '',
	size TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL UNIQUE,
	source TEXT NOT NULL DEFAULT '',
	available_from TEXT NOT NULL DEFAULT '',
	image_url TEXT,
	scraped_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS parse_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ran_at DATETIME NOT NULL,
	listings_found INTEGER NOT NULL,
	status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings (scraped_at);
CREATE INDEX IF NOT EXISTS idx_listings_price ON listings (price);
`

// Open opens or creates the SQLite database at the given path, enables
// WAL mode for concurrent readers during a refresh, and creates the
// schema if needed.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}
