// Package nestedset assigns nested-set (lft/rgt) intervals to forests of named nodes.
//
// Siblings are visited in name order, so the same forest always produces the
// same intervals regardless of the order ids were generated in. The package
// keeps no state between calls and is safe for concurrent use.
package nestedset

import "sort"

// Node is one entry of a hierarchy (a taxon, a menu item, a department).
// ParentID == nil marks a root.
type Node struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// Interval is the lft/rgt pair computed for a node.
type Interval struct {
	Lft int `json:"lft"`
	Rgt int `json:"rgt"`
}

// Descendants is the number of nodes below this one.
func (i Interval) Descendants() int {
	return (i.Rgt - i.Lft - 1) / 2
}

// Contains reports whether o lies strictly inside i.
func (i Interval) Contains(o Interval) bool {
	return i.Lft < o.Lft && o.Rgt < i.Rgt
}

// Overlaps reports whether the closed ranges of i and o share any value.
func (i Interval) Overlaps(o Interval) bool {
	return i.Lft <= o.Rgt && o.Lft <= i.Rgt
}

// Result maps node ids to their intervals.
type Result map[int64]Interval

// IDsByLft returns the ids of r ordered by lft, i.e. in pre-order.
func (r Result) IDsByLft() []int64 {
	ids := make([]int64, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r[ids[i]].Lft < r[ids[j]].Lft })
	return ids
}

// Max returns the largest rgt in r, or 0 for an empty result.
func (r Result) Max() int {
	m := 0
	for _, iv := range r {
		if iv.Rgt > m {
			m = iv.Rgt
		}
	}
	return m
}

// ParentRef returns a pointer to id, for building Node literals.
func ParentRef(id int64) *int64 {
	return &id
}
