package ingest

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultSelector selects every element of a top-level array.
const DefaultSelector = "$[*]"

// JSONSource yields one row per object matched by a JSONPath selector.
type JSONSource struct {
	Path     string
	Selector string
}

func NewJSONSource(path, selector string) *JSONSource {
	if selector == "" {
		selector = DefaultSelector
	}
	return &JSONSource{Path: path, Selector: selector}
}

// Each implements Source.
func (s *JSONSource) Each(fn RowFunc) error {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return err
	}
	data, err := oj.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse json %s: %w", s.Path, err)
	}
	return eachMatch(data, s.Selector, fn)
}

func eachMatch(data any, selector string, fn RowFunc) error {
	x, err := jp.ParseString(selector)
	if err != nil {
		return fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	for i, m := range x.Get(data) {
		row, err := recordRow(i+1, m)
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// recordRow flattens a decoded JSON object into a Row.
func recordRow(line int, v any) (Row, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Row{}, fmt.Errorf("record %d: expected object, got %T", line, v)
	}
	fields := make(map[string]string, len(obj))
	for k, val := range obj {
		fields[SymbolizeHeader(k)] = stringify(val)
	}
	return Row{Line: line, Fields: fields, Raw: oj.JSON(obj, &oj.Options{Sort: true})}, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		return oj.JSON(t, &oj.Options{Sort: true})
	default:
		return fmt.Sprint(t)
	}
}
