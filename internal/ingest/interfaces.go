package ingest

// Row is one input record. Fields are keyed by symbolised column name.
type Row struct {
	// Line is the 1-based position of the row in its source. For CSV this
	// is the physical line (the header is line 1); for JSON and SQLite it is
	// the record ordinal.
	Line   int
	Fields map[string]string
	// Raw is the source text of the row, for error reports.
	Raw string
}

// Get returns the named field, or "" when the column is absent.
func (r Row) Get(key string) string {
	return r.Fields[key]
}

// RowFunc receives rows in source order. Returning an error stops iteration.
type RowFunc func(Row) error

// Source abstracts over CSV, JSON and SQLite row inputs.
// Each is restartable when the underlying file is.
type Source interface {
	Each(fn RowFunc) error
}
