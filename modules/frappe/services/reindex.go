package services

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/metrics"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

// StoredTree is a Frappe tree doctype as loaded from MariaDB. Rows are keyed
// by their string name; IDs are assigned by sorted name for the indexer.
type StoredTree struct {
	Nodes     []nestedset.NamedNode
	Names     map[int64]string
	Intervals nestedset.Result
}

type Repository interface {
	Tree(ctx context.Context) (StoredTree, error)
	SaveIntervals(ctx context.Context, res nestedset.Result, names map[int64]string) error
}

type Summary struct {
	Table   string   `json:"table"`
	Nodes   int      `json:"nodes"`
	MaxRgt  int      `json:"max_rgt"`
	Changed int      `json:"changed"`
	Orphans []string `json:"orphans,omitempty"`
	Applied bool     `json:"applied"`
	OK      *bool    `json:"ok,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Reindex rebuilds lft/rgt of one tree doctype. Parents are resolved by name
// under the orphan policy of opts; nothing is written unless apply is set.
func Reindex(ctx context.Context, table string, repo Repository, opts nestedset.Options, apply bool) (Summary, error) {
	if opts.Logger == nil {
		opts.Logger = composables.UseLogger(ctx)
	}
	opts.Logger = opts.Logger.WithField("table", table)
	out := Summary{Table: table}

	stored, err := repo.Tree(ctx)
	if err != nil {
		return out, gerrors.Wrapf(err, "load %s", table)
	}

	start := time.Now()
	nodes, err := nestedset.ResolveParentNames(stored.Nodes, opts)
	if err != nil {
		metrics.RecordIndexRun(nestedset.ErrorCode(err), 0, 0, time.Since(start))
		return out, gerrors.Wrapf(err, "resolve parents of %s", table)
	}
	ix, err := nestedset.Build(nodes, opts)
	if err != nil {
		metrics.RecordIndexRun(nestedset.ErrorCode(err), 0, 0, time.Since(start))
		return out, gerrors.Wrapf(err, "index %s", table)
	}
	if err := nestedset.Verify(nodes, ix.Intervals); err != nil {
		metrics.RecordIndexRun(nestedset.ErrorCode(err), 0, 0, time.Since(start))
		return out, gerrors.Wrapf(err, "verify %s", table)
	}

	orphans := 0
	for i, n := range stored.Nodes {
		if n.ParentName != nil && nodes[i].ParentID == nil {
			out.Orphans = append(out.Orphans, n.Name)
			orphans++
		}
	}
	metrics.RecordIndexRun("ok", len(ix.Intervals), orphans, time.Since(start))

	out.Nodes = len(ix.Intervals)
	out.MaxRgt = ix.Intervals.Max()
	for id, iv := range ix.Intervals {
		if stored.Intervals[id] != iv {
			out.Changed++
		}
	}

	if apply {
		if err := repo.SaveIntervals(ctx, ix.Intervals, stored.Names); err != nil {
			return out, gerrors.Wrapf(err, "save %s", table)
		}
		out.Applied = true
	}
	opts.Logger.WithFields(logrus.Fields{
		"nodes":   out.Nodes,
		"changed": out.Changed,
		"applied": out.Applied,
	}).Info("tree reindexed")
	return out, nil
}

// Verify checks the stored lft/rgt of one tree doctype.
func Verify(ctx context.Context, table string, repo Repository) (Summary, error) {
	out := Summary{Table: table}
	stored, err := repo.Tree(ctx)
	if err != nil {
		return out, gerrors.Wrapf(err, "load %s", table)
	}
	nodes, err := nestedset.ResolveParentNames(stored.Nodes, nestedset.Options{Logger: composables.UseLogger(ctx)})
	if err != nil {
		return out, err
	}
	out.Nodes = len(nodes)
	ok := true
	if err := nestedset.Verify(nodes, stored.Intervals); err != nil {
		ok = false
		out.Error = err.Error()
	}
	out.OK = &ok
	return out, nil
}
