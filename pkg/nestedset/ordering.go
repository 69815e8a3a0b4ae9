package nestedset

import "sort"

// Child is a sibling descriptor in a Tree bucket.
type Child struct {
	ID   int64
	Name string
}

// SortSiblings orders siblings by name (byte-wise, case-sensitive). Equal
// names keep their input order.
func SortSiblings(siblings []Child) {
	sort.SliceStable(siblings, func(i, j int) bool {
		return siblings[i].Name < siblings[j].Name
	})
}
