// Package membership loads per-item collection lists for a reporting period
// and merges them across periods into the list of items that must be mapped
// into more than one collection.
package membership

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentic-research/eraload/internal/faults"
	"github.com/agentic-research/eraload/internal/ingest"
)

// ValueDelimiter separates multiple values inside a single CSV field.
const ValueDelimiter = "||"

// Columns names the (symbolised) input columns.
type Columns struct {
	Item   string // mandatory
	Owner  string // mandatory
	Others string // optional, ValueDelimiter separated
}

// DefaultColumns matches the handle CSV produced for each reporting year.
func DefaultColumns() Columns {
	return Columns{Item: "item_hdl", Owner: "c_owner_hdl", Others: "c_others_hdl"}
}

// Entry is one item's collection membership. The owning collection is held
// apart from the additional (mapped) ones.
type Entry struct {
	Item       string
	Owner      string
	Additional []string
}

// Collections returns the owner followed by the additional collections.
func (e Entry) Collections() []string {
	out := make([]string, 0, 1+len(e.Additional))
	out = append(out, e.Owner)
	return append(out, e.Additional...)
}

// Len is the number of collections the item belongs to.
func (e Entry) Len() int { return 1 + len(e.Additional) }

// Table maps item identifiers to their collections. It is immutable once
// built.
type Table struct {
	label   string
	source  string
	entries map[string]Entry
}

// New builds a table from entries without validating them. Later entries
// for the same item replace earlier ones.
func New(label string, entries []Entry) *Table {
	t := &Table{label: label, entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		t.entries[e.Item] = e
	}
	return t
}

// LoadFile loads and validates the table in path. The label defaults to the
// file's base name.
func LoadFile(path string, cols Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only

	return Load(f, path, cols)
}

// Load reads a membership CSV from r. source names the input in errors.
// Loading fails on the first row with an empty mandatory value, on a
// repeated item, and (after all rows are read) on any item listing the same
// collection twice.
func Load(r io.Reader, source string, cols Columns) (*Table, error) {
	t := &Table{
		label:   filepath.Base(source),
		source:  source,
		entries: make(map[string]Entry),
	}
	err := ingest.ReadCSV(r, ',', func(row ingest.Row) error {
		for _, field := range []string{cols.Item, cols.Owner} {
			if row.Get(field) == "" {
				return &faults.ShapeError{File: source, Line: row.Line, Field: field, Raw: row.Raw}
			}
		}
		item := row.Get(cols.Item)
		if _, dup := t.entries[item]; dup {
			return &faults.InvariantError{ID: item, Reason: "item handle has been repeated", Source: source}
		}
		t.entries[item] = Entry{
			Item:       item,
			Owner:      row.Get(cols.Owner),
			Additional: SplitValues(row.Get(cols.Others)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// SplitValues splits a multi-value field, dropping empty segments.
func SplitValues(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, ValueDelimiter) {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate fails if any item is mapped to the same collection more than
// once. Items are checked in sorted order so the reported item is stable.
func (t *Table) Validate() error {
	for _, item := range t.Items() {
		seen := make(map[string]struct{})
		for _, c := range t.entries[item].Collections() {
			if _, dup := seen[c]; dup {
				return &faults.InvariantError{
					ID:     item,
					Reason: fmt.Sprintf("item is mapped to collection %s more than once", c),
					Source: t.label,
				}
			}
			seen[c] = struct{}{}
		}
	}
	return nil
}

// Get returns the entry for item.
func (t *Table) Get(item string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[item]
	return e, ok
}

// Items returns every item identifier in sorted order.
func (t *Table) Items() []string {
	items := make([]string, 0, len(t.entries))
	for k := range t.entries {
		items = append(items, k)
	}
	sort.Strings(items)
	return items
}

// Entries returns every entry sorted by item identifier.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, item := range t.Items() {
		out = append(out, t.entries[item])
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func (t *Table) Label() string { return t.label }

// Source is the file the table was loaded from, or "" if built in memory.
func (t *Table) Source() string { return t.source }
