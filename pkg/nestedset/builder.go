package nestedset

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Tree is the children-by-parent adjacency of a forest. Every bucket is
// already in sibling order.
type Tree struct {
	roots    []Child
	children map[int64][]Child
	size     int
	orphans  []int64
}

// Roots returns the root bucket.
func (t *Tree) Roots() []Child {
	return t.roots
}

// Children returns the bucket of parentID, or the root bucket when parentID is nil.
func (t *Tree) Children(parentID *int64) []Child {
	if parentID == nil {
		return t.roots
	}
	return t.children[*parentID]
}

// Len is the number of nodes in the tree.
func (t *Tree) Len() int {
	return t.size
}

// Orphans lists, in input order, the nodes that were moved to the root level
// because their parent id did not resolve.
func (t *Tree) Orphans() []int64 {
	return t.orphans
}

// BuildTree groups nodes by parent. Ids must be unique. A parent id that
// matches no node either moves the node to the root bucket with a warning,
// or fails with a *ConfigurationError when opts.Strict is set.
func BuildTree(nodes []Node, opts Options) (*Tree, error) {
	known := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		if _, dup := known[n.ID]; dup {
			return nil, &DuplicateIDError{ID: n.ID}
		}
		known[n.ID] = struct{}{}
	}

	t := &Tree{
		children: make(map[int64][]Child, len(nodes)),
		size:     len(nodes),
	}
	for _, n := range nodes {
		c := Child{ID: n.ID, Name: n.Name}
		if n.ParentID == nil {
			t.roots = append(t.roots, c)
			continue
		}
		if _, ok := known[*n.ParentID]; !ok {
			if opts.Strict {
				return nil, &ConfigurationError{
					NodeID: n.ID,
					Parent: strconv.FormatInt(*n.ParentID, 10),
					Err:    ErrOrphanParent,
				}
			}
			opts.logger().WithFields(logrus.Fields{
				"node_id":   n.ID,
				"node_name": n.Name,
				"parent_id": *n.ParentID,
			}).Warn("unknown parent id, placing node at root level")
			t.orphans = append(t.orphans, n.ID)
			t.roots = append(t.roots, c)
			continue
		}
		t.children[*n.ParentID] = append(t.children[*n.ParentID], c)
	}

	SortSiblings(t.roots)
	for id := range t.children {
		SortSiblings(t.children[id])
	}
	return t, nil
}
