package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// OpenSource picks a Source by file extension. selector only applies to
// JSON input.
func OpenSource(path, selector string) (Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVSource(path), nil
	case ".json":
		return NewJSONSource(path, selector), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported row source %q", path)
	}
}

// SliceSource serves rows from memory.
type SliceSource []Row

// Each implements Source.
func (s SliceSource) Each(fn RowFunc) error {
	for _, r := range s {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}
