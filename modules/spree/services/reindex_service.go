package services

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/metrics"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

// StoredForest is one taxonomy or menu as it currently sits in the database.
type StoredForest struct {
	ID        int64
	Nodes     []nestedset.Node
	Intervals nestedset.Result
}

type Repository interface {
	ForestIDs(ctx context.Context) ([]int64, error)
	Forest(ctx context.Context, forestID int64) (StoredForest, error)
	SaveIntervals(ctx context.Context, res nestedset.Result, depths map[int64]int) error
}

type ReindexOptions struct {
	Index nestedset.Options
	// SharedCounter numbers all forests of the run in one sequence.
	SharedCounter bool
	// Apply writes the new intervals; otherwise the run only reports.
	Apply bool
}

type ForestSummary struct {
	ForestID int64   `json:"forest_id"`
	Nodes    int     `json:"nodes"`
	MaxRgt   int     `json:"max_rgt"`
	Changed  int     `json:"changed"`
	Orphans  []int64 `json:"orphans,omitempty"`
	Applied  bool    `json:"applied"`
}

type VerifySummary struct {
	ForestID int64  `json:"forest_id"`
	Nodes    int    `json:"nodes"`
	OK       bool   `json:"ok"`
	Law      string `json:"law,omitempty"`
	NodeID   int64  `json:"node_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ReindexService struct {
	repo Repository
}

func NewReindexService(repo Repository) *ReindexService {
	return &ReindexService{repo: repo}
}

// Reindex recomputes lft/rgt/depth for the given forests, or for every forest
// when forestIDs is empty. With opts.Apply all writes share one transaction.
func (s *ReindexService) Reindex(ctx context.Context, forestIDs []int64, opts ReindexOptions) ([]ForestSummary, error) {
	if opts.Index.Logger == nil {
		opts.Index.Logger = composables.UseLogger(ctx)
	}

	var out []ForestSummary
	run := func(ctx context.Context) error {
		ids, err := s.resolveIDs(ctx, forestIDs)
		if err != nil {
			return err
		}
		out = make([]ForestSummary, 0, len(ids))
		next := 0
		for _, id := range ids {
			o := opts
			if opts.SharedCounter && next > 0 {
				o.Index.Start = next
			}
			summary, n, err := s.reindexOne(ctx, id, o)
			if err != nil {
				return err
			}
			next = n
			out = append(out, summary)
		}
		return nil
	}

	if !opts.Apply {
		if err := run(ctx); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := composables.InTx(ctx, run); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReindexService) reindexOne(ctx context.Context, forestID int64, opts ReindexOptions) (ForestSummary, int, error) {
	logger := opts.Index.Logger.WithField("forest_id", forestID)
	opts.Index.Logger = logger

	stored, err := s.repo.Forest(ctx, forestID)
	if err != nil {
		return ForestSummary{}, 0, gerrors.Wrapf(err, "load forest %d", forestID)
	}

	start := time.Now()
	ix, err := nestedset.Build(stored.Nodes, opts.Index)
	if err != nil {
		metrics.RecordIndexRun(resultLabel(err), 0, 0, time.Since(start))
		return ForestSummary{}, 0, gerrors.Wrapf(err, "index forest %d", forestID)
	}
	if err := nestedset.Verify(stored.Nodes, ix.Intervals); err != nil {
		metrics.RecordIndexRun(resultLabel(err), 0, 0, time.Since(start))
		return ForestSummary{}, 0, gerrors.Wrapf(err, "verify forest %d", forestID)
	}
	metrics.RecordIndexRun("ok", len(ix.Intervals), len(ix.Tree.Orphans()), time.Since(start))

	summary := ForestSummary{
		ForestID: forestID,
		Nodes:    len(ix.Intervals),
		MaxRgt:   ix.Intervals.Max(),
		Orphans:  ix.Tree.Orphans(),
	}
	for id, iv := range ix.Intervals {
		if stored.Intervals[id] != iv {
			summary.Changed++
		}
	}

	if opts.Apply {
		names := make(map[int64]string, len(stored.Nodes))
		for _, n := range stored.Nodes {
			names[n.ID] = n.Name
		}
		for _, id := range ix.Intervals.IDsByLft() {
			iv := ix.Intervals[id]
			logger.Debugf("%s (ID:%d): lft=%d, rgt=%d", names[id], id, iv.Lft, iv.Rgt)
		}
		if err := s.repo.SaveIntervals(ctx, ix.Intervals, ix.Tree.Depths()); err != nil {
			return ForestSummary{}, 0, gerrors.Wrapf(err, "save forest %d", forestID)
		}
		summary.Applied = true
	}

	logger.WithFields(logrus.Fields{
		"nodes":   summary.Nodes,
		"changed": summary.Changed,
		"applied": summary.Applied,
	}).Info("forest reindexed")
	return summary, ix.Next, nil
}

// Verify checks the stored intervals of each forest without changing them.
func (s *ReindexService) Verify(ctx context.Context, forestIDs []int64) ([]VerifySummary, error) {
	ids, err := s.resolveIDs(ctx, forestIDs)
	if err != nil {
		return nil, err
	}
	out := make([]VerifySummary, 0, len(ids))
	for _, id := range ids {
		stored, err := s.repo.Forest(ctx, id)
		if err != nil {
			return nil, gerrors.Wrapf(err, "load forest %d", id)
		}
		vs := VerifySummary{ForestID: id, Nodes: len(stored.Nodes), OK: true}
		if err := nestedset.Verify(stored.Nodes, stored.Intervals); err != nil {
			vs.OK = false
			vs.Error = err.Error()
			var inv *nestedset.InvariantError
			if errors.As(err, &inv) {
				vs.Law = inv.Law
				vs.NodeID = inv.NodeID
			}
		}
		out = append(out, vs)
	}
	return out, nil
}

func (s *ReindexService) resolveIDs(ctx context.Context, forestIDs []int64) ([]int64, error) {
	if len(forestIDs) > 0 {
		return forestIDs, nil
	}
	ids, err := s.repo.ForestIDs(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "list forests")
	}
	return ids, nil
}

func resultLabel(err error) string {
	if code := nestedset.ErrorCode(err); code != "" {
		return code
	}
	return "error"
}
