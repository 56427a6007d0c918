package database

import (
	"database/sql"
	"fmt"
	"time"

	"fishtank/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the photo-record database and bootstraps the schema.
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		modified_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		reject_reason TEXT,
		width INTEGER,
		height INTEGER,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_photos_path ON photos(path);
	CREATE INDEX IF NOT EXISTS idx_photos_status ON photos(status);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create photos table: %w", err)
	}

	return db, nil
}

// IsUnchanged reports whether a photo at path was already processed with
// the given modification time. Used to keep re-ingestion idempotent: an
// unchanged file must not spawn a second fish.
func IsUnchanged(db *sql.DB, path string, modTime time.Time) (bool, error) {
	var storedModTime string
	err := db.QueryRow("SELECT modified_at FROM photos WHERE path = ?", path).Scan(&storedModTime)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("database error for %s: %w", path, err)
	}

	storedTime, err := time.Parse(time.RFC3339, storedModTime)
	if err != nil {
		return false, fmt.Errorf("cannot parse stored time for %s: %w", path, err)
	}

	return !modTime.After(storedTime), nil
}

// UpsertPending records a newly observed photo, or resets an existing
// record to pending when the file changed on disk.
func UpsertPending(db *sql.DB, path string, modTime time.Time) error {
	now := time.Now().Format(time.RFC3339)
	_, err := db.Exec(`
		INSERT INTO photos (path, modified_at, status, reject_reason, created_at)
		VALUES (?, ?, 'pending', NULL, ?)
		ON CONFLICT(path) DO UPDATE SET
			modified_at = excluded.modified_at,
			status = 'pending',
			reject_reason = NULL`,
		path, modTime.Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("cannot upsert record for %s: %w", path, err)
	}
	return nil
}

// MarkAccepted transitions a record to accepted and stores the photo size.
func MarkAccepted(db *sql.DB, path string, width, height int) error {
	_, err := db.Exec(
		"UPDATE photos SET status = 'accepted', reject_reason = NULL, width = ?, height = ? WHERE path = ?",
		width, height, path)
	if err != nil {
		return fmt.Errorf("cannot mark %s accepted: %w", path, err)
	}
	return nil
}

// MarkRejected transitions a record to rejected with a reason.
func MarkRejected(db *sql.DB, path string, reason string) error {
	_, err := db.Exec(
		"UPDATE photos SET status = 'rejected', reject_reason = ? WHERE path = ?",
		reason, path)
	if err != nil {
		return fmt.Errorf("cannot mark %s rejected: %w", path, err)
	}
	return nil
}

// GetRecord fetches the record for one path.
func GetRecord(db *sql.DB, path string) (*types.PhotoRecord, error) {
	var rec types.PhotoRecord
	var reason sql.NullString
	var width, height sql.NullInt64
	err := db.QueryRow(
		"SELECT id, path, modified_at, status, reject_reason, width, height FROM photos WHERE path = ?",
		path).Scan(&rec.ID, &rec.Path, &rec.ModifiedAt, &rec.Status, &reason, &width, &height)
	if err != nil {
		return nil, err
	}
	rec.RejectReason = reason.String
	rec.Width = int(width.Int64)
	rec.Height = int(height.Int64)
	return &rec, nil
}

// IngestStats summarizes the photo registry.
type IngestStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// GetIngestStats counts records by status.
func GetIngestStats(db *sql.DB) (*IngestStats, error) {
	var stats IngestStats
	rows, err := db.Query("SELECT status, COUNT(*) FROM photos GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		switch types.PhotoStatus(status) {
		case types.StatusPending:
			stats.Pending = count
		case types.StatusAccepted:
			stats.Accepted = count
		case types.StatusRejected:
			stats.Rejected = count
		}
	}
	return &stats, rows.Err()
}
