// Package nodeio reads flat node lists from files and writes index results.
package nodeio

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

var validate = validator.New()

// Record is one row of an input file. A parent is given either by id or, as
// the catalog generators do, by name; ParentID wins when both are set.
type Record struct {
	ID         int64   `json:"id" yaml:"id" validate:"gt=0"`
	Name       string  `json:"name" yaml:"name" validate:"required"`
	ParentID   *int64  `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	ParentName *string `json:"parent_name,omitempty" yaml:"parent_name,omitempty" validate:"omitempty,min=1"`
	// Forest groups records that are indexed together (a taxonomy, a menu).
	Forest string `json:"forest,omitempty" yaml:"forest,omitempty"`
}

type Records []Record

// Validate checks every record and reports the first bad one by position.
func (rs Records) Validate() error {
	for i := range rs {
		if err := validate.Struct(&rs[i]); err != nil {
			return fmt.Errorf("record %d (id=%d): %w", i+1, rs[i].ID, err)
		}
	}
	return nil
}

// Forest is a named slice of records.
type Forest struct {
	Name    string
	Records Records
}

// Forests groups records by Forest, in the order each forest first appears.
func (rs Records) Forests() []Forest {
	idx := make(map[string]int)
	var out []Forest
	for _, r := range rs {
		i, ok := idx[r.Forest]
		if !ok {
			i = len(out)
			idx[r.Forest] = i
			out = append(out, Forest{Name: r.Forest})
		}
		out[i].Records = append(out[i].Records, r)
	}
	return out
}

// Nodes converts records to indexer input. Parent names are only resolved
// for records without a parent id.
func (rs Records) Nodes(opts nestedset.Options) ([]nestedset.Node, error) {
	named := make([]nestedset.NamedNode, len(rs))
	for i, r := range rs {
		named[i] = nestedset.NamedNode{ID: r.ID, Name: r.Name}
		if r.ParentID == nil {
			named[i].ParentName = r.ParentName
		}
	}
	nodes, err := nestedset.ResolveParentNames(named, opts)
	if err != nil {
		return nil, err
	}
	for i, r := range rs {
		if r.ParentID != nil {
			nodes[i].ParentID = nestedset.ParentRef(*r.ParentID)
		}
	}
	return nodes, nil
}

// NameOrphans lists the ids whose parent_name matched no record and were
// placed at the root level. nodes must be the output of rs.Nodes.
func (rs Records) NameOrphans(nodes []nestedset.Node) []int64 {
	var ids []int64
	for i, r := range rs {
		if r.ParentID == nil && r.ParentName != nil && nodes[i].ParentID == nil {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// Names maps ids to names.
func (rs Records) Names() map[int64]string {
	m := make(map[int64]string, len(rs))
	for _, r := range rs {
		m[r.ID] = r.Name
	}
	return m
}
