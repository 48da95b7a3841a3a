package ingest

import (
	"regexp"
	"strconv"

	"github.com/agentic-research/eraload/api"
)

// Lookups carries the read-only tables LOOKUP_ tokens resolve against.
type Lookups struct {
	Clusters api.ClusterTable
	// ClassificationColumn is the row field holding the cluster code.
	ClassificationColumn string
}

type lookupFunc func(lk Lookups, row Row) string

// lookupTable is the fixed LOOKUP_<NAME> dispatch.
var lookupTable = map[string]lookupFunc{
	"CLUSTER_NAME": func(lk Lookups, row Row) string {
		d, _ := lk.Clusters.Description(row.Get(lk.ClassificationColumn))
		return d
	},
	"CLUSTER_ORDINAL": func(lk Lookups, row Row) string {
		n, ok := lk.Clusters.Ordinal(row.Get(lk.ClassificationColumn))
		if !ok {
			return ""
		}
		return strconv.Itoa(n)
	},
}

var tokenPattern = regexp.MustCompile(`\{\{(CSV_FIELD|LOOKUP)_([A-Za-z0-9_]+)\}\}`)

// Render replaces every {{CSV_FIELD_<key>}} and {{LOOKUP_<NAME>}} token in
// text. A missing column renders as "". A LOOKUP_ name with no entry in the
// dispatch table is left in place verbatim. Replacement text is never
// scanned again.
func Render(text string, row Row, lk Lookups) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := tokenPattern.FindStringSubmatch(tok)
		switch m[1] {
		case "CSV_FIELD":
			return row.Get(m[2])
		default:
			fn, ok := lookupTable[m[2]]
			if !ok {
				return tok
			}
			return fn(lk, row)
		}
	})
}

// RenderTemplate renders every value of tmpl against row.
func RenderTemplate(tmpl api.Template, row Row, lk Lookups) map[string]string {
	if len(tmpl) == 0 {
		return nil
	}
	out := make(map[string]string, len(tmpl))
	for k, v := range tmpl {
		out[k] = Render(v, row, lk)
	}
	return out
}
