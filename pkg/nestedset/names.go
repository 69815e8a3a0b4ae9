package nestedset

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"
)

// NamedNode refers to its parent by name, the way generated taxon lists do.
type NamedNode struct {
	ID         int64
	Name       string
	ParentName *string
}

// ResolveParentNames turns name references into id references. A name
// resolves to the first node carrying it, in input order. Names that match
// nothing follow the orphan policy of opts: a warning (with the closest known
// name, when there is one) and a root-level node, or a *ConfigurationError.
func ResolveParentNames(nodes []NamedNode, opts Options) ([]Node, error) {
	byName := make(map[string]int64, len(nodes))
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := byName[n.Name]; ok {
			continue
		}
		byName[n.Name] = n.ID
		names = append(names, n.Name)
	}

	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		node := Node{ID: n.ID, Name: n.Name}
		if n.ParentName != nil {
			if pid, ok := byName[*n.ParentName]; ok {
				node.ParentID = ParentRef(pid)
			} else {
				if opts.Strict {
					return nil, &ConfigurationError{NodeID: n.ID, Parent: *n.ParentName, Err: ErrOrphanParent}
				}
				fields := logrus.Fields{
					"node_id":     n.ID,
					"node_name":   n.Name,
					"parent_name": *n.ParentName,
				}
				if guess := ClosestName(*n.ParentName, names); guess != "" {
					fields["did_you_mean"] = guess
				}
				opts.logger().WithFields(fields).Warn("unknown parent name, placing node at root level")
			}
		}
		out = append(out, node)
	}
	return out, nil
}

// ClosestName suggests the known name most likely meant by name: a fuzzy
// subsequence match first (abbreviations), then the smallest edit distance
// within a third of the name's length. It returns "" when nothing is close.
func ClosestName(name string, known []string) string {
	if ranks := fuzzy.RankFindFold(name, known); len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", len(name)/3+1
	for _, k := range known {
		d := fuzzy.LevenshteinDistance(name, k)
		if d < bestDist || (d == bestDist && best != "" && k < best) {
			best, bestDist = k, d
		}
	}
	return best
}
