package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	lineage       TEXT NOT NULL,
	node_count    INTEGER NOT NULL,
	facts_json    TEXT NOT NULL,
	time_learned  INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES snapshots(version_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_lineage ON snapshots(lineage, created_at);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	lineage       TEXT NOT NULL,
	direction     TEXT NOT NULL,
	change_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	lineage       TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshots(version_id)
);
`

// createdLayout keeps created_at fixed-width so it sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store-struct
// ErrNoLineage is returned by GetCurrent for a lineage that never committed.
var ErrNoLineage = errors.New("lineage has no active version")

// Store journals snapshot versions per lineage (one lineage per squad) in
// SQLite and tracks which version is active.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// pragmas are per connection, and one writer at a time is all SQLite allows
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region commit
// CommitSnapshot inserts a new version and makes it the lineage's active one.
func (s *Store) CommitSnapshot(lineage string, snap Snapshot) error {
	factsJSON, err := encodeFacts(snap.Facts)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if snap.ParentID != "" {
		parentPtr = snap.ParentID
	}

	_, err = tx.Exec(
		`INSERT INTO snapshots (version_id, parent_id, lineage, node_count, facts_json, time_learned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.VersionID, parentPtr, lineage, snap.NodeCount, factsJSON, snap.TimeLearned,
		snap.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (lineage, version_id) VALUES (?, ?)
		 ON CONFLICT(lineage) DO UPDATE SET version_id = excluded.version_id`,
		lineage, snap.VersionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion commit

// #region read
// GetCurrent reads the active version of a lineage.
func (s *Store) GetCurrent(lineage string) (Snapshot, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE lineage = ?`, lineage).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("get active %s: %w", lineage, ErrNoLineage)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get active %s: %w", lineage, err)
	}
	return s.GetVersion(versionID)
}

// GetVersion retrieves a specific version by ID.
func (s *Store) GetVersion(id string) (Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, node_count, facts_json, time_learned, created_at
		 FROM snapshots WHERE version_id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return snap, nil
}

// ListVersions returns the most recent versions of a lineage, newest first.
func (s *Store) ListVersions(lineage string, limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, node_count, facts_json, time_learned, created_at
		 FROM snapshots WHERE lineage = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, lineage, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Lineages lists every lineage with an active version.
func (s *Store) Lineages() ([]string, error) {
	rows, err := s.db.Query(`SELECT lineage FROM active_snapshot ORDER BY lineage`)
	if err != nil {
		return nil, fmt.Errorf("list lineages: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan lineage: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(r rowScanner) (Snapshot, error) {
	var snap Snapshot
	var parentID sql.NullString
	var factsJSON, createdStr string
	if err := r.Scan(&snap.VersionID, &parentID, &snap.NodeCount, &factsJSON, &snap.TimeLearned, &createdStr); err != nil {
		return Snapshot{}, err
	}
	if parentID.Valid {
		snap.ParentID = parentID.String
	}
	facts, err := decodeFacts(factsJSON)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Facts = facts
	snap.CreatedAt, err = time.Parse(createdLayout, createdStr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse created_at: %w", err)
	}
	return snap, nil
}

// #endregion read

// #region rollback
// Rollback points the lineage's active version at a previous version.
func (s *Store) Rollback(lineage, targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM snapshots WHERE version_id = ? AND lineage = ?`, targetVersionID, lineage,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found in lineage %s", targetVersionID, lineage)
	}

	_, err = s.db.Exec(`UPDATE active_snapshot SET version_id = ? WHERE lineage = ?`, targetVersionID, lineage)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback
