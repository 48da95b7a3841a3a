package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentic-research/eraload/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefault(t *testing.T) {
	cfg, err := NewLoader(nil).Load("")
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Structure.Clusters.Len())
	d, ok := cfg.Structure.Clusters.Description("MHS")
	assert.True(t, ok)
	assert.Equal(t, "Cluster 8. Medical and Health Sciences", d)
	n, _ := cfg.Structure.Clusters.Ordinal("EC")
	assert.Equal(t, 5, n)
	assert.Equal(t, 2, cfg.Structure.SkipCodeLength)
	assert.Equal(t, "item_hdl", cfg.Membership.Item)
}

func TestLoad_HCL(t *testing.T) {
	p := writeFile(t, "era.hcl", `
structure {
  root_name        = "ERA 2012 TEST"
  skip_code_length = 0

  root_attributes = {
    description = "Top community"
  }
  group_template = {
    description = "{{LOOKUP_CLUSTER_NAME}}"
  }
  leaf_template = {
    intro   = "Field of research {{CSV_FIELD_for_code}}"
    license = "CC-BY"
  }

  columns {
    title = "for_name"
  }

  cluster "PCE" {
    description = "Physical Sciences"
    ordinal     = 1
  }
  cluster "HCA" {
    description = "Humanities"
  }
}

membership {
  owner_column = "col_owner_hdl"
}
`)
	cfg, err := NewLoader(nil).Load(p)
	require.NoError(t, err)

	s := cfg.Structure
	assert.Equal(t, "ERA 2012 TEST", s.RootName)
	assert.Equal(t, 0, s.SkipCodeLength)
	assert.Equal(t, api.Template{"description": "Top community"}, s.RootAttributes)
	assert.Equal(t, "{{LOOKUP_CLUSTER_NAME}}", s.GroupTemplate["description"])
	assert.Equal(t, "CC-BY", s.LeafTemplate["license"])
	assert.Equal(t, api.Columns{Classification: "cluster_abbrev", Code: "for_code", Title: "for_name"}, s.Columns)
	assert.Equal(t, []api.Cluster{
		{Code: "PCE", Description: "Physical Sciences", Ordinal: 1},
		{Code: "HCA", Description: "Humanities"},
	}, s.Clusters.Clusters())

	assert.Equal(t, "item_hdl", cfg.Membership.Item)
	assert.Equal(t, "col_owner_hdl", cfg.Membership.Owner)
}

func TestLoad_YAML(t *testing.T) {
	p := writeFile(t, "era.yaml", `
structure:
  root_name: ERA 2015
  leaf_template:
    description: "{{CSV_FIELD_for_title}}"
  clusters:
    - code: MIC
      description: Maths
      ordinal: 6
membership:
  others_column: col_others_hdl
`)
	cfg, err := NewLoader(nil).Load(p)
	require.NoError(t, err)
	assert.Equal(t, "ERA 2015", cfg.Structure.RootName)
	assert.Equal(t, 2, cfg.Structure.SkipCodeLength, "unset keeps default")
	assert.Equal(t, 1, cfg.Structure.Clusters.Len())
	assert.Equal(t, "col_others_hdl", cfg.Membership.Others)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, content, want string
	}{
		{"unknown extension", "era.toml", "x = 1", "unsupported config format"},
		{"bad hcl", "era.hcl", "structure {", "parse config"},
		{"bad yaml", "era.yaml", "structure: [", "parse config"},
		{"duplicate cluster", "era.yaml", "structure:\n  clusters:\n    - {code: A, description: a}\n    - {code: A, description: b}\n", "more than once"},
		{"disallowed group key", "era.yaml", "structure:\n  group_template:\n    license: x\n", "<license>"},
		{"disallowed leaf key", "era.hcl", "structure {\n  leaf_template = { title = \"x\" }\n}\n", "<title>"},
		{"empty column", "era.yaml", "membership:\n  item_column: \"\"\n", "item_column"},
		{"empty root", "era.yaml", "structure:\n  root_name: \"\"\n", "root_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(nil).Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}
