package nestedset

import (
	"fmt"
	"sort"
)

// Verify checks that res is a valid nested-set encoding of nodes: every node
// has an interval, children sit strictly inside their parent, siblings and
// roots do not overlap, and each interval is exactly wide enough for its
// descendants. Parents that do not resolve count as roots, as in BuildTree.
func Verify(nodes []Node, res Result) error {
	byID := make(map[int64]Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; dup {
			return &DuplicateIDError{ID: n.ID}
		}
		byID[n.ID] = n
	}

	parentOf := func(n Node) (int64, bool) {
		if n.ParentID == nil {
			return 0, false
		}
		if _, ok := byID[*n.ParentID]; !ok {
			return 0, false
		}
		return *n.ParentID, true
	}

	for _, n := range nodes {
		iv, ok := res[n.ID]
		if !ok {
			return &InvariantError{Law: LawCoverage, NodeID: n.ID, Detail: "no interval"}
		}
		if iv.Rgt <= iv.Lft || (iv.Rgt-iv.Lft)%2 == 0 {
			return &InvariantError{Law: LawCoverage, NodeID: n.ID, Detail: fmt.Sprintf("malformed interval [%d,%d]", iv.Lft, iv.Rgt)}
		}
	}

	var roots []int64
	siblings := make(map[int64][]int64)
	for _, n := range nodes {
		p, ok := parentOf(n)
		if !ok {
			roots = append(roots, n.ID)
			continue
		}
		if !res[p].Contains(res[n.ID]) {
			return &InvariantError{
				Law:    LawContainment,
				NodeID: n.ID,
				Detail: fmt.Sprintf("[%d,%d] not inside parent %d [%d,%d]", res[n.ID].Lft, res[n.ID].Rgt, p, res[p].Lft, res[p].Rgt),
			}
		}
		siblings[p] = append(siblings[p], n.ID)
	}

	if id, ok := firstOverlap(roots, res); ok {
		return &InvariantError{Law: LawRootDisjoint, NodeID: id, Detail: "overlaps another root"}
	}
	for _, ids := range siblings {
		if id, ok := firstOverlap(ids, res); ok {
			return &InvariantError{Law: LawDisjoint, NodeID: id, Detail: "overlaps a sibling"}
		}
	}

	// Children have larger lft than their parent, so walking by descending
	// lft finishes every subtree before its root.
	order := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		order = append(order, n.ID)
	}
	sort.Slice(order, func(i, j int) bool { return res[order[i]].Lft > res[order[j]].Lft })
	size := make(map[int64]int, len(nodes))
	for _, id := range order {
		size[id]++
		if p, ok := parentOf(byID[id]); ok {
			size[p] += size[id]
		}
	}
	for _, id := range order {
		if got, want := res[id].Descendants(), size[id]-1; got != want {
			return &InvariantError{Law: LawDescendants, NodeID: id, Detail: fmt.Sprintf("interval holds %d descendants, tree has %d", got, want)}
		}
	}
	return nil
}

func firstOverlap(ids []int64, res Result) (int64, bool) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return res[sorted[i]].Lft < res[sorted[j]].Lft })
	for i := 1; i < len(sorted); i++ {
		if res[sorted[i-1]].Rgt >= res[sorted[i]].Lft {
			return sorted[i], true
		}
	}
	return 0, false
}
