package logging

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-change
// LogChange writes a provenance entry to the provenance_log table.
func LogChange(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (version_id, lineage, direction, change_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.Lineage,
		entry.Direction,
		nullIfEmpty(entry.ChangeJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return fmt.Errorf("log change: %w", err)
	}
	return nil
}

// EncodeRecord serializes a ChangeRecord for ProvenanceEntry.ChangeJSON.
func EncodeRecord(rec ChangeRecord) (string, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal change record: %w", err)
	}
	return string(b), nil
}

// DecodeRecord parses ProvenanceEntry.ChangeJSON.
func DecodeRecord(s string) (ChangeRecord, error) {
	var rec ChangeRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return ChangeRecord{}, fmt.Errorf("unmarshal change record: %w", err)
	}
	return rec, nil
}

// #endregion log-change

// #region list-entries
// ListEntries returns the latest entries of a lineage, newest first. A limit
// of zero or less returns all of them.
func ListEntries(db *sql.DB, lineage string, limit int) ([]ProvenanceEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT version_id, lineage, direction, change_json, decision, reason, created_at
		 FROM provenance_log WHERE lineage = ? ORDER BY id DESC LIMIT ?`, lineage, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var changeJSON, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &e.Lineage, &e.Direction, &changeJSON, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.ChangeJSON = changeJSON.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(createdLayout, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-entries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
