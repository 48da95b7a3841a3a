package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads rows from a CSV file with a header line.
type CSVSource struct {
	Path  string
	Comma rune // defaults to ','
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path, Comma: ','}
}

// Each implements Source.
func (s *CSVSource) Each(fn RowFunc) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only

	return ReadCSV(f, s.Comma, fn)
}

// ReadCSV streams rows from r. The first record is the header; its names
// are symbolised with SymbolizeHeader. Blank lines are skipped.
func ReadCSV(r io.Reader, comma rune, fn RowFunc) error {
	cr := csv.NewReader(stripUTF8BOM(bufio.NewReader(r)))
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = SymbolizeHeader(h)
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		fields := make(map[string]string, len(keys))
		for i, v := range rec {
			if i < len(keys) {
				fields[keys[i]] = v
			}
		}
		if err := fn(Row{Line: line, Fields: fields, Raw: rawLine(rec, cr.Comma)}); err != nil {
			return err
		}
	}
}

// SymbolizeHeader normalises a header name the way the handle and matrix
// CSVs have always been keyed: lower-cased, each space turned into "_",
// then everything outside [a-z0-9_] dropped. "FOR Title" -> "for_title".
// Surrounding or repeated spaces are kept as underscores.
func SymbolizeHeader(h string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return -1
		}
	}, strings.ToLower(h))
}

func rawLine(rec []string, comma rune) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	_ = w.Write(rec)
	w.Flush()
	return strings.TrimRight(buf.String(), "\r\n")
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
