package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/eraload/api"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape shared by the HCL and YAML formats.
// Pointer fields are optional and fall back to Default().
type fileConfig struct {
	Structure  *fileStructure  `hcl:"structure,block" yaml:"structure"`
	Membership *fileMembership `hcl:"membership,block" yaml:"membership"`
}

type fileStructure struct {
	RootName       *string           `hcl:"root_name,optional" yaml:"root_name"`
	RootAttributes map[string]string `hcl:"root_attributes,optional" yaml:"root_attributes"`
	GroupTemplate  map[string]string `hcl:"group_template,optional" yaml:"group_template"`
	LeafTemplate   map[string]string `hcl:"leaf_template,optional" yaml:"leaf_template"`
	SkipCodeLength *int              `hcl:"skip_code_length,optional" yaml:"skip_code_length"`
	Columns        *fileColumns      `hcl:"columns,block" yaml:"columns"`
	Clusters       []fileCluster     `hcl:"cluster,block" yaml:"clusters"`
}

type fileColumns struct {
	Classification *string `hcl:"classification,optional" yaml:"classification"`
	Code           *string `hcl:"code,optional" yaml:"code"`
	Title          *string `hcl:"title,optional" yaml:"title"`
}

type fileCluster struct {
	Code        string `hcl:"code,label" yaml:"code"`
	Description string `hcl:"description" yaml:"description"`
	Ordinal     int    `hcl:"ordinal,optional" yaml:"ordinal"`
}

type fileMembership struct {
	ItemColumn   *string `hcl:"item_column,optional" yaml:"item_column"`
	OwnerColumn  *string `hcl:"owner_column,optional" yaml:"owner_column"`
	OthersColumn *string `hcl:"others_column,optional" yaml:"others_column"`
}

// Loader reads job configuration files.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger disables logging.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load returns Default() overlaid with the file at path, if any. The format
// follows the extension: .hcl, or .yaml/.yml.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		l.logger.Debug("No config file given, using defaults")
		return cfg, cfg.Validate()
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		if err := hclsimple.Decode(filepath.Base(path), src, nil, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(src, &fc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .hcl, .yaml or .yml)", path)
	}

	if err := fc.apply(cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	l.logger.Debug("Loaded config",
		zap.String("path", path),
		zap.String("root_name", cfg.Structure.RootName),
		zap.Int("clusters", cfg.Structure.Clusters.Len()))
	return cfg, nil
}

func (fc *fileConfig) apply(cfg *Config) error {
	if s := fc.Structure; s != nil {
		st := &cfg.Structure
		if s.RootName != nil {
			st.RootName = *s.RootName
		}
		if s.RootAttributes != nil {
			st.RootAttributes = s.RootAttributes
		}
		if s.GroupTemplate != nil {
			st.GroupTemplate = s.GroupTemplate
		}
		if s.LeafTemplate != nil {
			st.LeafTemplate = s.LeafTemplate
		}
		if s.SkipCodeLength != nil {
			st.SkipCodeLength = *s.SkipCodeLength
		}
		if c := s.Columns; c != nil {
			setString(&st.Columns.Classification, c.Classification)
			setString(&st.Columns.Code, c.Code)
			setString(&st.Columns.Title, c.Title)
		}
		if len(s.Clusters) > 0 {
			clusters := make([]api.Cluster, 0, len(s.Clusters))
			seen := make(map[string]struct{}, len(s.Clusters))
			for _, c := range s.Clusters {
				if _, dup := seen[c.Code]; dup {
					return fmt.Errorf("cluster %q is declared more than once", c.Code)
				}
				seen[c.Code] = struct{}{}
				clusters = append(clusters, api.Cluster{Code: c.Code, Description: c.Description, Ordinal: c.Ordinal})
			}
			st.Clusters = api.NewClusterTable(clusters)
		}
	}
	if m := fc.Membership; m != nil {
		cols := &cfg.Membership
		setString(&cols.Item, m.ItemColumn)
		setString(&cols.Owner, m.OwnerColumn)
		setString(&cols.Others, m.OthersColumn)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
