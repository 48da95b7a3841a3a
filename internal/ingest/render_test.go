package ingest

import (
	"testing"

	"github.com/agentic-research/eraload/api"
	"github.com/stretchr/testify/assert"
)

func testLookups() Lookups {
	return Lookups{
		Clusters: api.NewClusterTable([]api.Cluster{
			{Code: "MIC", Description: "Cluster 6. Mathematical, Information and Computing Sciences", Ordinal: 6},
		}),
		ClassificationColumn: "cluster_abbrev",
	}
}

func TestRender(t *testing.T) {
	lk := testLookups()
	row := Row{Fields: map[string]string{
		"title":          "Physics",
		"cluster_abbrev": "MIC",
		"for_code":       "0101",
	}}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"csv field exact", "{{CSV_FIELD_title}}", "Physics"},
		{"csv field with underscore key", "Code {{CSV_FIELD_for_code}}!", "Code 0101!"},
		{"missing column renders empty", "[{{CSV_FIELD_nope}}]", "[]"},
		{"cluster name", "{{LOOKUP_CLUSTER_NAME}}", "Cluster 6. Mathematical, Information and Computing Sciences"},
		{"cluster ordinal", "#{{LOOKUP_CLUSTER_ORDINAL}}", "#6"},
		{"unknown lookup passes through", "x {{LOOKUP_UNKNOWN}} y", "x {{LOOKUP_UNKNOWN}} y"},
		{"no tokens", "plain text", "plain text"},
		{"mixed", "{{CSV_FIELD_for_code}} - {{CSV_FIELD_title}}", "0101 - Physics"},
		{"not a token", "{{ CSV_FIELD_title }}", "{{ CSV_FIELD_title }}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.text, row, lk))
			// deterministic across calls
			assert.Equal(t, tt.want, Render(tt.text, row, lk))
		})
	}
}

func TestRender_NoRecursion(t *testing.T) {
	row := Row{Fields: map[string]string{
		"a": "{{CSV_FIELD_b}}",
		"b": "boom",
	}}
	assert.Equal(t, "{{CSV_FIELD_b}}", Render("{{CSV_FIELD_a}}", row, testLookups()))
}

func TestRender_UnknownClusterCode(t *testing.T) {
	row := Row{Fields: map[string]string{"cluster_abbrev": "ZZZ"}}
	assert.Equal(t, "", Render("{{LOOKUP_CLUSTER_NAME}}", row, testLookups()))
	assert.Equal(t, "", Render("{{LOOKUP_CLUSTER_ORDINAL}}", row, testLookups()))
}

func TestRenderTemplate(t *testing.T) {
	row := Row{Fields: map[string]string{"for_title": "Pure Mathematics"}}
	got := RenderTemplate(api.Template{"description": "About {{CSV_FIELD_for_title}}"}, row, testLookups())
	assert.Equal(t, map[string]string{"description": "About Pure Mathematics"}, got)
	assert.Nil(t, RenderTemplate(nil, row, testLookups()))
}
