package release

import (
	"fmt"

	"github.com/strapi/strapi-sub004/internal/domain/content"
)

// SchemaLookup resolves content-type schemas by uid.
type SchemaLookup interface {
	ContentType(uid string) (*content.ContentType, error)
}

// TreeEntry pairs an action with its target entry. Entry may be nil when the
// document could not be loaded; such an entry has no outgoing edges.
type TreeEntry struct {
	Action Action
	Entry  *content.Entry
}

// Node is one entry in the dependency forest. Children reference the node
// through a one-directional relation.
type Node struct {
	ContentType string     `json:"contentType"`
	ID          string     `json:"id"`
	DocumentID  string     `json:"documentId"`
	Type        ActionType `json:"type"`
	Locale      string     `json:"locale,omitempty"`
	Depth       int        `json:"depth"`
	Children    []*Node    `json:"children,omitempty"`
}

// Edge records that Child is nested under Parent through Attribute.
type Edge struct {
	Parent    int
	Child     int
	Attribute string
}

// BuildTree orders the entries of a release so that referenced entries appear
// above the entries referencing them.
//
// An entry is nested under another bundled entry when one of its
// one-directional relation attributes points at it. Bidirectional relations
// never nest. When several parents qualify, the first relation attribute in
// declaration order wins, and within a list the first bundled reference wins.
// Edges that would make an entry its own ancestor are dropped. Root and
// sibling order follow the input order.
func BuildTree(entries []TreeEntry, schemas SchemaLookup) ([]*Node, error) {
	edges, err := CollectEdges(entries, schemas)
	if err != nil {
		return nil, err
	}

	children := make([][]int, len(entries))
	hasParent := make([]bool, len(entries))
	for _, edge := range edges {
		children[edge.Parent] = append(children[edge.Parent], edge.Child)
		hasParent[edge.Child] = true
	}

	var build func(idx, depth int) *Node
	build = func(idx, depth int) *Node {
		action := entries[idx].Action
		node := &Node{
			ContentType: action.ContentType,
			ID:          action.ID,
			DocumentID:  action.EntryDocumentID,
			Type:        action.Type,
			Locale:      action.Locale,
			Depth:       depth,
		}
		for _, child := range children[idx] {
			node.Children = append(node.Children, build(child, depth+1))
		}
		return node
	}

	roots := make([]*Node, 0, len(entries))
	for idx := range entries {
		if hasParent[idx] {
			continue
		}
		roots = append(roots, build(idx, 0))
	}
	return roots, nil
}

// CollectEdges computes the realised nesting edges, at most one per child.
// Unknown content types are a precondition failure.
func CollectEdges(entries []TreeEntry, schemas SchemaLookup) ([]Edge, error) {
	index := make(map[string][]int, len(entries))
	for idx, entry := range entries {
		key := documentKey(entry.Action.ContentType, entry.Action.EntryDocumentID)
		index[key] = append(index[key], idx)
	}

	parent := make([]int, len(entries))
	for idx := range parent {
		parent[idx] = -1
	}

	edges := make([]Edge, 0)
	for idx, entry := range entries {
		schema, err := schemas.ContentType(entry.Action.ContentType)
		if err != nil {
			return nil, NewError(ErrCodeInternal, "content type metadata unavailable", err, map[string]interface{}{
				"content_type": entry.Action.ContentType,
				"action_id":    entry.Action.ID,
			})
		}
		if schema == nil {
			return nil, NewError(ErrCodeInternal, "content type metadata unavailable", nil, map[string]interface{}{
				"content_type": entry.Action.ContentType,
				"action_id":    entry.Action.ID,
			})
		}
		if entry.Entry == nil {
			continue
		}

		edge, ok := firstEdge(idx, entries, schema, index, parent)
		if !ok {
			continue
		}
		parent[idx] = edge.Parent
		edges = append(edges, edge)
	}
	return edges, nil
}

func firstEdge(idx int, entries []TreeEntry, schema *content.ContentType, index map[string][]int, parent []int) (Edge, bool) {
	entry := entries[idx]
	for _, rel := range schema.Relations() {
		if rel.IsBidirectional {
			continue
		}
		for _, ref := range content.RelationRefs(entry.Entry.Data[rel.Attribute]) {
			target := resolveTarget(index[documentKey(rel.Target, ref)], entries, entry.Action.Locale)
			if target < 0 || target == idx {
				continue
			}
			if isAncestor(idx, target, parent) {
				continue
			}
			return Edge{Parent: target, Child: idx, Attribute: rel.Attribute}, true
		}
	}
	return Edge{}, false
}

// resolveTarget prefers the candidate in the referrer's locale, falling back
// to the first bundled candidate.
func resolveTarget(candidates []int, entries []TreeEntry, locale string) int {
	if len(candidates) == 0 {
		return -1
	}
	for _, candidate := range candidates {
		if entries[candidate].Action.Locale == locale {
			return candidate
		}
	}
	return candidates[0]
}

// isAncestor reports whether node is reachable walking up from start.
func isAncestor(node, start int, parent []int) bool {
	for cur := start; cur >= 0; cur = parent[cur] {
		if cur == node {
			return true
		}
	}
	return false
}

func documentKey(contentType, documentID string) string {
	return fmt.Sprintf("%s|%s", contentType, documentID)
}

// Walk visits every node depth-first in presentation order.
func Walk(nodes []*Node, visit func(*Node)) {
	for _, node := range nodes {
		visit(node)
		Walk(node.Children, visit)
	}
}
