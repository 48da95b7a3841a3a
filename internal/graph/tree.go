package graph

import (
	"fmt"

	"github.com/agentic-research/eraload/internal/faults"
)

// Kind declares whether a node is a community (may hold children) or a
// collection (leaf).
type Kind uint8

const (
	KindCommunity Kind = iota
	KindCollection
)

func (k Kind) String() string {
	switch k {
	case KindCommunity:
		return "community"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// communityAttrs and collectionAttrs are the optional elements accepted by
// the DSpace structure-builder, in the order it expects them. "name" is
// mandatory and carried separately.
var (
	communityAttrs  = []string{"description", "intro", "copyright", "sidebar"}
	collectionAttrs = []string{"description", "intro", "copyright", "sidebar", "license", "provenance"}
)

// AllowedAttrs returns the permitted attribute keys for k in canonical order.
func AllowedAttrs(k Kind) []string {
	if k == KindCollection {
		return collectionAttrs
	}
	return communityAttrs
}

// IsAllowedAttr reports whether key may be set on a node of kind k.
func IsAllowedAttr(k Kind, key string) bool {
	for _, a := range AllowedAttrs(k) {
		if a == key {
			return true
		}
	}
	return false
}

// NodeID addresses a node inside its Tree.
type NodeID int

// Attr is a single optional element of a node.
type Attr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Node is an arena entry. It is frozen once added.
type Node struct {
	Name     string
	Kind     Kind
	Attrs    []Attr
	Children []NodeID
}

// Attr returns the value of key, if set.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Tree is an arena of nodes rooted at index 0. Parents own their children
// by index; there are no upward links. A Tree is not safe for concurrent
// mutation.
type Tree struct {
	nodes []Node
}

// NewTree creates a tree whose root is a community named rootName.
func NewTree(rootName string, attrs map[string]string) (*Tree, error) {
	ordered, err := orderAttrs(KindCommunity, rootName, attrs)
	if err != nil {
		return nil, err
	}
	return &Tree{nodes: []Node{{Name: rootName, Kind: KindCommunity, Attrs: ordered}}}, nil
}

// Root returns the root node ID.
func (t *Tree) Root() NodeID { return 0 }

// Len is the total node count including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node at id. It panics on an ID not issued by t.
func (t *Tree) Node(id NodeID) *Node {
	return &t.nodes[id]
}

// Child returns the child of parent named name (case-sensitive exact match).
func (t *Tree) Child(parent NodeID, name string) (NodeID, bool) {
	for _, c := range t.nodes[parent].Children {
		if t.nodes[c].Name == name {
			return c, true
		}
	}
	return 0, false
}

// AddChild appends a new node to the end of parent's children. The name must
// be unique among parent's children and every attribute key must be allowed
// for kind.
func (t *Tree) AddChild(parent NodeID, kind Kind, name string, attrs map[string]string) (NodeID, error) {
	if int(parent) < 0 || int(parent) >= len(t.nodes) {
		return 0, fmt.Errorf("parent node %d does not exist", parent)
	}
	p := &t.nodes[parent]
	if p.Kind == KindCollection {
		return 0, &faults.InvariantError{ID: p.Name, Reason: "a collection cannot contain child nodes"}
	}
	if _, dup := t.Child(parent, name); dup {
		return 0, &faults.InvariantError{ID: name, Reason: fmt.Sprintf("duplicate name under %s '%s'", p.Kind, p.Name)}
	}
	ordered, err := orderAttrs(kind, name, attrs)
	if err != nil {
		return 0, err
	}

	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{Name: name, Kind: kind, Attrs: ordered})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id, nil
}

// Walk visits nodes depth-first, parents before children, in insertion
// order. Returning false from fn prunes that subtree.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	var visit func(id NodeID, depth int)
	visit = func(id NodeID, depth int) {
		if !fn(id, depth) {
			return
		}
		for _, c := range t.nodes[id].Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root(), 0)
}

func orderAttrs(kind Kind, owner string, attrs map[string]string) ([]Attr, error) {
	for k := range attrs {
		if !IsAllowedAttr(kind, k) {
			return nil, &faults.InvariantError{
				ID:     owner,
				Reason: fmt.Sprintf("element <%s> is not permitted as part of a %s", k, kind),
			}
		}
	}
	var out []Attr
	for _, k := range AllowedAttrs(kind) {
		if v, ok := attrs[k]; ok {
			out = append(out, Attr{Key: k, Value: v})
		}
	}
	return out, nil
}
