package membership

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// Output column names of the BMET mapping CSV.
const (
	ColumnItem        = "item_hdl"
	ColumnCollections = "col_hdls"
)

// Enricher appends extra (debugging) columns to each output row.
type Enricher interface {
	Headers() []string
	Fields(ctx context.Context, e Entry) ([]string, error)
}

// RenderCSV renders the table as item_hdl,col_hdls sorted by item, with the
// collections joined by ValueDelimiter (owner first). Every value is
// quoted. enrich may be nil. Nothing is returned unless every row, including
// its enrichment lookups, rendered successfully.
func (t *Table) RenderCSV(ctx context.Context, enrich Enricher) ([]byte, error) {
	var buf bytes.Buffer

	header := []string{ColumnItem, ColumnCollections}
	if enrich != nil {
		header = append(header, enrich.Headers()...)
	}
	buf.WriteString(strings.Join(header, ","))
	buf.WriteByte('\n')

	for _, e := range t.Entries() {
		fields := []string{e.Item, strings.Join(e.Collections(), ValueDelimiter)}
		if enrich != nil {
			extra, err := enrich.Fields(ctx, e)
			if err != nil {
				return nil, fmt.Errorf("enrich %s: %w", e.Item, err)
			}
			fields = append(fields, extra...)
		}
		for i, f := range fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quote(f))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// WriteCSV renders the table with RenderCSV and copies it to w. A failed
// lookup leaves w untouched.
func (t *Table) WriteCSV(ctx context.Context, w io.Writer, enrich Enricher) error {
	data, err := t.RenderCSV(ctx, enrich)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
