package ingest

import (
	"database/sql"
	"fmt"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// SQLiteSource streams rows from a SQLite database holding a
// records(id TEXT, record JSON) table, one JSON object per record.
// Only one parsed record is alive at a time.
type SQLiteSource struct {
	Path string
}

func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{Path: path}
}

// Each implements Source. Records are read in rowid order.
func (s *SQLiteSource) Each(fn RowFunc) error {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.Path, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	rows, err := db.Query("SELECT id, record FROM records ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	n := 0
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		n++
		parsed, err := oj.ParseString(raw)
		if err != nil {
			return fmt.Errorf("parse record %s: %w", id, err)
		}
		row, err := recordRow(n, parsed)
		if err != nil {
			return fmt.Errorf("record %s: %w", id, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return rows.Err()
}
