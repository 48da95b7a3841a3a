package ingest

import (
	"fmt"

	"github.com/agentic-research/eraload/api"
	"github.com/agentic-research/eraload/internal/faults"
	"github.com/agentic-research/eraload/internal/graph"
	"go.uber.org/zap"
)

// Rules are the pluggable per-row decisions of a build.
type Rules struct {
	// Skip returns true for rows that must be ignored entirely.
	Skip func(Row) bool
	// GroupName names the sub-community a row belongs to.
	GroupName func(Row) (string, error)
	// LeafName names the collection a row belongs to.
	LeafName func(Row) (string, error)
}

// Engine builds a two-level community tree from classification rows.
type Engine struct {
	Structure api.Structure
	Rules     Rules
	Lookups   Lookups

	log *zap.Logger
}

// NewEngine wires the default rules for s. A nil logger disables logging.
func NewEngine(s api.Structure, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Structure: s,
		Rules:     DefaultRules(s),
		Lookups:   Lookups{Clusters: s.Clusters, ClassificationColumn: s.Columns.Classification},
		log:       logger,
	}
}

// Build consumes src in order. For every row that is not skipped it finds
// or creates the group under the root, then finds or creates the leaf
// under that group. New nodes take their attributes from the templates
// rendered against the row that created them; rows mapping to an existing
// (group, leaf) pair add nothing. Any error aborts the build and no tree is
// returned.
func (e *Engine) Build(src Source) (*graph.Tree, error) {
	tree, err := graph.NewTree(e.Structure.RootName, e.Structure.RootAttributes)
	if err != nil {
		return nil, fmt.Errorf("root community: %w", err)
	}

	var rows, skipped, groups, leaves int
	err = src.Each(func(row Row) error {
		rows++
		if e.Rules.Skip != nil && e.Rules.Skip(row) {
			skipped++
			e.log.Debug("skipping row", zap.Int("line", row.Line))
			return nil
		}

		groupName, err := e.Rules.GroupName(row)
		if err != nil {
			return err
		}
		group, ok := tree.Child(tree.Root(), groupName)
		if !ok {
			attrs := RenderTemplate(e.Structure.GroupTemplate, row, e.Lookups)
			if group, err = tree.AddChild(tree.Root(), graph.KindCommunity, groupName, attrs); err != nil {
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			groups++
			e.log.Debug("created community", zap.String("name", groupName), zap.Int("line", row.Line))
		}

		leafName, err := e.Rules.LeafName(row)
		if err != nil {
			return err
		}
		if _, ok := tree.Child(group, leafName); ok {
			return nil
		}
		attrs := RenderTemplate(e.Structure.LeafTemplate, row, e.Lookups)
		if _, err := tree.AddChild(group, graph.KindCollection, leafName, attrs); err != nil {
			return fmt.Errorf("line %d: %w", row.Line, err)
		}
		leaves++
		e.log.Debug("created collection",
			zap.String("community", groupName),
			zap.String("name", leafName),
			zap.Int("line", row.Line))
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("structure built",
		zap.Int("rows", rows),
		zap.Int("skipped", skipped),
		zap.Int("communities", groups),
		zap.Int("collections", leaves))
	return tree, nil
}

// DefaultRules derives the standard rules from s:
//   - skip rows whose code has exactly SkipCodeLength characters
//   - group by the cluster description of the classification column,
//     failing on an unknown code
//   - name leaves "<code> - <title>"
func DefaultRules(s api.Structure) Rules {
	cols := s.Columns
	return Rules{
		Skip: func(row Row) bool {
			return s.SkipCodeLength > 0 && len(row.Get(cols.Code)) == s.SkipCodeLength
		},
		GroupName: func(row Row) (string, error) {
			code := row.Get(cols.Classification)
			name, ok := s.Clusters.Description(code)
			if !ok {
				return "", &faults.ReferenceError{Kind: "cluster code", Key: code, Line: row.Line, Raw: row.Raw}
			}
			return name, nil
		},
		LeafName: func(row Row) (string, error) {
			return fmt.Sprintf("%s - %s", row.Get(cols.Code), row.Get(cols.Title)), nil
		},
	}
}
