package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER,
	position INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	attrs JSON
);
CREATE INDEX IF NOT EXISTS idx_parent_name ON nodes(parent_id, name);
`

// WriteSQLite stores t as a flat node table in a SQLite database at dbPath.
// Existing rows are replaced. parent_id is NULL for the root and position is
// the node's index among its siblings.
func WriteSQLite(dbPath string, t *Tree) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("clear nodes: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO nodes (id, parent_id, position, kind, name, attrs) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	insert := func(id NodeID, parent *NodeID, pos int) error {
		n := t.Node(id)
		var attrs any
		if len(n.Attrs) > 0 {
			b, err := json.Marshal(n.Attrs)
			if err != nil {
				return fmt.Errorf("encode attrs of %q: %w", n.Name, err)
			}
			attrs = string(b)
		}
		var pid any
		if parent != nil {
			pid = int64(*parent)
		}
		if _, err := stmt.Exec(int64(id), pid, pos, n.Kind.String(), n.Name, attrs); err != nil {
			return fmt.Errorf("insert node %q: %w", n.Name, err)
		}
		return nil
	}

	if err := insert(t.Root(), nil, 0); err != nil {
		return err
	}
	var werr error
	t.Walk(func(id NodeID, _ int) bool {
		if werr != nil {
			return false
		}
		parent := id
		for pos, c := range t.Node(id).Children {
			if werr = insert(c, &parent, pos); werr != nil {
				return false
			}
		}
		return true
	})
	if werr != nil {
		return werr
	}
	return tx.Commit()
}
