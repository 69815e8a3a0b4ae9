package nestedset

// Indexed is a forest together with its computed intervals.
type Indexed struct {
	Tree      *Tree
	Intervals Result
	// Next is the counter value after the last rgt of this forest.
	Next int
}

// Index builds the tree for nodes and assigns intervals, starting at
// opts.Start (1 by default). An empty input yields an empty result.
func Index(nodes []Node, opts Options) (Result, error) {
	ix, err := Build(nodes, opts)
	if err != nil {
		return nil, err
	}
	return ix.Intervals, nil
}

// Build is Index that also hands back the tree, for callers that need
// depths or the orphan list.
func Build(nodes []Node, opts Options) (*Indexed, error) {
	t, err := BuildTree(nodes, opts)
	if err != nil {
		return nil, err
	}
	res, next, err := Assign(t, opts.start())
	if err != nil {
		return nil, err
	}
	return &Indexed{Tree: t, Intervals: res, Next: next}, nil
}

// IndexForests indexes each forest separately. With shared == false every
// forest starts again at opts.Start, so ranges of different forests overlap;
// that is fine as long as each forest lives in its own table or scope. With
// shared == true the counter carries over and all ranges are disjoint.
func IndexForests(forests [][]Node, opts Options, shared bool) ([]*Indexed, error) {
	out := make([]*Indexed, 0, len(forests))
	next := opts.start()
	for _, nodes := range forests {
		o := opts
		if shared {
			o.Start = next
		}
		ix, err := Build(nodes, o)
		if err != nil {
			return nil, err
		}
		next = ix.Next
		out = append(out, ix)
	}
	return out, nil
}

// Depths returns the depth of every reachable node, roots being 0.
func (t *Tree) Depths() map[int64]int {
	depths := make(map[int64]int, t.size)
	queue := make([]int64, 0, len(t.roots))
	for _, r := range t.roots {
		depths[r.ID] = 0
		queue = append(queue, r.ID)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range t.children[id] {
			if _, seen := depths[c.ID]; seen {
				continue
			}
			depths[c.ID] = depths[id] + 1
			queue = append(queue, c.ID)
		}
	}
	return depths
}
