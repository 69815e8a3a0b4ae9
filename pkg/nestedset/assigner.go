package nestedset

import "sort"

type frame struct {
	id   int64
	kids []Child
	next int
}

// Assign walks t depth-first, giving each node lft on entry and rgt once all
// of its children are done. Counting starts at start; the returned cursor is
// the value after the last rgt.
//
// The walk keeps its own stack, so depth is bounded by memory rather than by
// the goroutine stack. Nodes that cannot be reached from a root sit on a
// parent cycle (or below one) and produce a *CyclicHierarchyError.
func Assign(t *Tree, start int) (Result, int, error) {
	res := make(Result, t.size)
	cursor := start
	stack := make([]frame, 0, 16)

	for _, root := range t.roots {
		res[root.ID] = Interval{Lft: cursor}
		cursor++
		stack = append(stack, frame{id: root.ID, kids: t.children[root.ID]})

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.kids) {
				c := top.kids[top.next]
				top.next++
				res[c.ID] = Interval{Lft: cursor}
				cursor++
				stack = append(stack, frame{id: c.ID, kids: t.children[c.ID]})
				continue
			}
			iv := res[top.id]
			iv.Rgt = cursor
			res[top.id] = iv
			cursor++
			stack = stack[:len(stack)-1]
		}
	}

	if len(res) != t.size {
		return nil, cursor, &CyclicHierarchyError{IDs: unreached(t, res)}
	}
	return res, cursor, nil
}

func unreached(t *Tree, res Result) []int64 {
	var ids []int64
	for _, kids := range t.children {
		for _, c := range kids {
			if _, ok := res[c.ID]; !ok {
				ids = append(ids, c.ID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
