package learning

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the learning snapshot store. Snapshots are opaque blobs; the
// table keeps a short history so a corrupt latest write never loses
// everything.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    created_ns  INTEGER NOT NULL,
    size        INTEGER NOT NULL,
    blob        BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_ns);
`

// keepSnapshots is how many historical snapshots to retain.
const keepSnapshots = 3

// SQLitePersistence implements Persistence over a local sqlite database.
type SQLitePersistence struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the snapshot database.
func OpenSQLite(path string) (*SQLitePersistence, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLitePersistence{db: db, path: path}, nil
}

// Save stores a snapshot blob and prunes old ones.
func (p *SQLitePersistence) Save(blob []byte) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO snapshots (created_ns, size, blob) VALUES (?, ?, ?)`,
		time.Now().UnixNano(), len(blob), blob,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM snapshots WHERE id NOT IN
		 (SELECT id FROM snapshots ORDER BY created_ns DESC LIMIT ?)`,
		keepSnapshots,
	); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	return tx.Commit()
}

// Load returns the newest snapshot blob, or nil when none exists.
func (p *SQLitePersistence) Load() ([]byte, error) {
	var blob []byte
	err := p.db.QueryRow(
		`SELECT blob FROM snapshots ORDER BY created_ns DESC LIMIT 1`,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return blob, nil
}

// Close closes the database.
func (p *SQLitePersistence) Close() error {
	return p.db.Close()
}
