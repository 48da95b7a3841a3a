package config

import (
	"errors"
	"fmt"

	"github.com/agentic-research/eraload/api"
	"github.com/agentic-research/eraload/internal/graph"
	"github.com/agentic-research/eraload/internal/membership"
)

// Config is the resolved job configuration for a run. It is built once at
// startup and passed explicitly to every component that needs it.
type Config struct {
	Structure  api.Structure
	Membership membership.Columns
}

// DefaultClusters is the ERA cluster table (abbreviation -> description).
func DefaultClusters() []api.Cluster {
	return []api.Cluster{
		{Code: "PCE", Description: "Cluster 1. Physical, Chemical and Earth Sciences", Ordinal: 1},
		{Code: "HCA", Description: "Cluster 2. Humanities and Creative Arts", Ordinal: 2},
		{Code: "EE", Description: "Cluster 3. Engineering and Environmental Sciences", Ordinal: 3},
		{Code: "EHS", Description: "Cluster 4. Education and Human Society", Ordinal: 4},
		{Code: "EC", Description: "Cluster 5. Economics and Commerce", Ordinal: 5},
		{Code: "MIC", Description: "Cluster 6. Mathematical, Information and Computing Sciences", Ordinal: 6},
		{Code: "BB", Description: "Cluster 7. Biological and Biotechnological Sciences", Ordinal: 7},
		{Code: "MHS", Description: "Cluster 8. Medical and Health Sciences", Ordinal: 8},
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Structure: api.Structure{
			RootName:       "ERA TEST",
			SkipCodeLength: 2,
			Columns: api.Columns{
				Classification: "cluster_abbrev",
				Code:           "for_code",
				Title:          "for_title",
			},
			Clusters: api.NewClusterTable(DefaultClusters()),
		},
		Membership: membership.DefaultColumns(),
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	s := c.Structure
	if s.RootName == "" {
		return errors.New("structure: root_name is required")
	}
	if s.SkipCodeLength < 0 {
		return fmt.Errorf("structure: skip_code_length must not be negative, got %d", s.SkipCodeLength)
	}
	for name, v := range map[string]string{
		"classification": s.Columns.Classification,
		"code":           s.Columns.Code,
		"title":          s.Columns.Title,
		"item_column":    c.Membership.Item,
		"owner_column":   c.Membership.Owner,
	} {
		if v == "" {
			return fmt.Errorf("column %s must not be empty", name)
		}
	}
	if s.Clusters.Len() == 0 {
		return errors.New("structure: at least one cluster is required")
	}
	if err := checkTemplate("root_attributes", graph.KindCommunity, s.RootAttributes); err != nil {
		return err
	}
	if err := checkTemplate("group_template", graph.KindCommunity, s.GroupTemplate); err != nil {
		return err
	}
	return checkTemplate("leaf_template", graph.KindCollection, s.LeafTemplate)
}

func checkTemplate(field string, kind graph.Kind, t api.Template) error {
	for _, k := range t.Keys() {
		if !graph.IsAllowedAttr(kind, k) {
			return fmt.Errorf("structure: %s: element <%s> is not permitted for a %s (allowed: %v)",
				field, k, kind, graph.AllowedAttrs(kind))
		}
	}
	return nil
}
