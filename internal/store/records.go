package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxContentSize is the largest record content stored. Anything beyond this
// is truncated at insert time to keep the database from bloating.
const maxContentSize = 16 * 1024 // 16KB

// Record is one tag-scoped memory record.
type Record struct {
	ID         string
	Tag        string
	Content    string
	Type       string // learned-pattern, session-state, note
	Category   string
	Confidence float64
	SessionID  string
	CreatedAt  int64 // unix millis
}

// InsertRecord stores a record. Assigns a UUID if none is set and truncates
// oversized content. Returns the record id.
func (db *DB) InsertRecord(r *Record) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if len(r.Content) > maxContentSize {
		r.Content = r.Content[:maxContentSize]
	}

	_, err := db.Exec(`
		INSERT INTO records (id, tag, content, type, category, confidence, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Tag, r.Content, r.Type, r.Category, r.Confidence, r.SessionID, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return r.ID, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Tag, &r.Content, &r.Type, &r.Category, &r.Confidence, &r.SessionID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListRecords returns the most recent records for a tag, newest first.
func (db *DB) ListRecords(tag string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, tag, content, type, category, confidence, session_id, created_at
		FROM records WHERE tag = ? ORDER BY created_at DESC LIMIT ?
	`, tag, limit)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// RecordsByTag returns every record for a tag, newest first.
func (db *DB) RecordsByTag(tag string) ([]Record, error) {
	rows, err := db.Query(`
		SELECT id, tag, content, type, category, confidence, session_id, created_at
		FROM records WHERE tag = ? ORDER BY created_at DESC
	`, tag)
	if err != nil {
		return nil, fmt.Errorf("records by tag: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// DeleteRecord removes a single record under a tag. Returns true if a row
// was actually deleted.
func (db *DB) DeleteRecord(tag, id string) (bool, error) {
	result, err := db.Exec("DELETE FROM records WHERE tag = ? AND id = ?", tag, id)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeleteByTag removes all records under a tag. Returns the number removed.
func (db *DB) DeleteByTag(tag string) (int, error) {
	result, err := db.Exec("DELETE FROM records WHERE tag = ?", tag)
	if err != nil {
		return 0, fmt.Errorf("delete by tag: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// CountRecords returns the number of records under a tag.
func (db *DB) CountRecords(tag string) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM records WHERE tag = ?", tag).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}
