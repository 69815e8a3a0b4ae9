package nestedset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrOrphanParent is reported (in strict mode) for a parent reference that
// does not resolve to any node of the batch.
var ErrOrphanParent = errors.New("parent reference does not resolve to a known node")

// ConfigurationError is returned when the input forest is rejected by policy
// rather than being structurally impossible to index.
type ConfigurationError struct {
	NodeID int64
	Parent string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("node %d: parent %s: %v", e.NodeID, e.Parent, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CyclicHierarchyError lists the ids caught in (or hanging below) a parent cycle.
type CyclicHierarchyError struct {
	IDs []int64
}

func (e *CyclicHierarchyError) Error() string {
	parts := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return fmt.Sprintf("cyclic parent references among node ids [%s]", strings.Join(parts, ", "))
}

// DuplicateIDError is returned when two input nodes share an id.
type DuplicateIDError struct {
	ID int64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate node id %d", e.ID)
}

// InvariantError names the nested-set law an indexed forest violates.
type InvariantError struct {
	Law    string
	NodeID int64
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s violated at node %d: %s", e.Law, e.NodeID, e.Detail)
}

const (
	LawCoverage     = "coverage"
	LawContainment  = "containment"
	LawDisjoint     = "sibling_disjointness"
	LawDescendants  = "descendant_count"
	LawRootDisjoint = "root_disjointness"
)

// ErrorCode returns a stable snake_case code for errors produced by this
// package, or "" for anything else.
func ErrorCode(err error) string {
	var dup *DuplicateIDError
	var cyc *CyclicHierarchyError
	var inv *InvariantError
	switch {
	case errors.As(err, &dup):
		return "duplicate_id"
	case errors.As(err, &cyc):
		return "cyclic_hierarchy"
	case errors.Is(err, ErrOrphanParent):
		return "orphan_parent"
	case errors.As(err, &inv):
		return inv.Law
	default:
		return ""
	}
}
