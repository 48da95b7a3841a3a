package api

import "sort"

// Structure describes how classification rows map onto a community tree.
// It is the resolved form of the job configuration consumed by the builder.
type Structure struct {
	// RootName is the name of the top-level community.
	RootName string
	// RootAttributes are the optional elements of the top-level community.
	// Values are used verbatim (no row is available to substitute from).
	RootAttributes Template
	// GroupTemplate populates every sub-community created from a row.
	GroupTemplate Template
	// LeafTemplate populates every collection created from a row.
	LeafTemplate Template
	// SkipCodeLength skips rows whose code column has exactly this many
	// characters. Zero disables skipping.
	SkipCodeLength int
	// Columns names the row fields the default rules read.
	Columns Columns
	// Clusters is the classification lookup table.
	Clusters ClusterTable
}

// Columns names the (symbolised) row fields used by the default rules.
type Columns struct {
	Classification string // e.g. "cluster_abbrev"
	Code           string // e.g. "for_code"
	Title          string // e.g. "for_title"
}

// Template maps an attribute name to a text that may contain
// {{CSV_FIELD_<key>}} and {{LOOKUP_<NAME>}} tokens.
type Template map[string]string

// Keys returns the template keys in lexical order.
func (t Template) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cluster is one row of the classification lookup table.
type Cluster struct {
	Code        string
	Description string
	Ordinal     int
}

// ClusterTable is the read-only code -> cluster lookup shared by every
// component of a run. Build it once with NewClusterTable.
type ClusterTable struct {
	byCode map[string]Cluster
	order  []string
}

// NewClusterTable indexes clusters by code. Later duplicates are ignored;
// config validation rejects them before this is called.
func NewClusterTable(clusters []Cluster) ClusterTable {
	t := ClusterTable{byCode: make(map[string]Cluster, len(clusters))}
	for _, c := range clusters {
		if _, ok := t.byCode[c.Code]; ok {
			continue
		}
		t.byCode[c.Code] = c
		t.order = append(t.order, c.Code)
	}
	return t
}

// Lookup returns the cluster for code.
func (t ClusterTable) Lookup(code string) (Cluster, bool) {
	c, ok := t.byCode[code]
	return c, ok
}

// Description returns the cluster description for code.
func (t ClusterTable) Description(code string) (string, bool) {
	c, ok := t.byCode[code]
	return c.Description, ok
}

// Ordinal returns the display ordinal for code.
func (t ClusterTable) Ordinal(code string) (int, bool) {
	c, ok := t.byCode[code]
	return c.Ordinal, ok
}

// Clusters returns the table in declaration order.
func (t ClusterTable) Clusters() []Cluster {
	out := make([]Cluster, 0, len(t.order))
	for _, code := range t.order {
		out = append(out, t.byCode[code])
	}
	return out
}

// Len is the number of distinct codes.
func (t ClusterTable) Len() int { return len(t.order) }
