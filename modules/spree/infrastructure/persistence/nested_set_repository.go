package persistence

import (
	"context"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/demoseed/treeseed/modules/spree/services"
	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

// NestedSetRepository reads and writes the lft/rgt/depth columns of one Spree
// nested-set table. Rows are grouped into forests by scopeColumn.
type NestedSetRepository struct {
	table       string
	scopeColumn string
}

// NewTaxonRepository works on spree_taxons, one forest per taxonomy.
func NewTaxonRepository() *NestedSetRepository {
	return &NestedSetRepository{table: "spree_taxons", scopeColumn: "taxonomy_id"}
}

// NewMenuItemRepository works on spree_menu_items, one forest per menu.
func NewMenuItemRepository() *NestedSetRepository {
	return &NestedSetRepository{table: "spree_menu_items", scopeColumn: "menu_id"}
}

func (r *NestedSetRepository) Table() string {
	return r.table
}

func (r *NestedSetRepository) ForestIDs(ctx context.Context) ([]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s",
		r.scopeColumn, r.table, r.scopeColumn, r.scopeColumn,
	))
	if err != nil {
		return nil, gerrors.Wrapf(err, "query %s", r.table)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, gerrors.Wrapf(err, "scan %s", r.table)
	}
	return ids, nil
}

type nestedSetRow struct {
	ID       int64
	Name     string
	ParentID *int64
	Lft      *int
	Rgt      *int
}

func (r *NestedSetRepository) Forest(ctx context.Context, forestID int64) (services.StoredForest, error) {
	out := services.StoredForest{ID: forestID}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return out, err
	}
	rows, err := tx.Query(ctx, fmt.Sprintf(
		"SELECT id, name, parent_id, lft, rgt FROM %s WHERE %s = $1 ORDER BY id",
		r.table, r.scopeColumn,
	), forestID)
	if err != nil {
		return out, gerrors.Wrapf(err, "query %s", r.table)
	}
	defer rows.Close()

	out.Intervals = make(nestedset.Result)
	for rows.Next() {
		var row nestedSetRow
		if err := rows.Scan(&row.ID, &row.Name, &row.ParentID, &row.Lft, &row.Rgt); err != nil {
			return out, gerrors.Wrapf(err, "scan %s", r.table)
		}
		out.Nodes = append(out.Nodes, nestedset.Node{ID: row.ID, Name: row.Name, ParentID: row.ParentID})
		if row.Lft != nil && row.Rgt != nil {
			out.Intervals[row.ID] = nestedset.Interval{Lft: *row.Lft, Rgt: *row.Rgt}
		}
	}
	if err := rows.Err(); err != nil {
		return out, gerrors.Wrapf(err, "read %s", r.table)
	}
	return out, nil
}

// SaveIntervals writes res and depths in one batch. Every update must hit a
// row; a missing id means the table changed underneath the run.
func (r *NestedSetRepository) SaveIntervals(ctx context.Context, res nestedset.Result, depths map[int64]int) error {
	if len(res) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	ids := res.IDsByLft()
	sql := fmt.Sprintf("UPDATE %s SET lft = $1, rgt = $2, depth = $3, updated_at = now() WHERE id = $4", r.table)
	batch := &pgx.Batch{}
	for _, id := range ids {
		iv := res[id]
		batch.Queue(sql, iv.Lft, iv.Rgt, depths[id], id)
	}

	br := tx.SendBatch(ctx, batch)
	for _, id := range ids {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return gerrors.Wrapf(err, "update %s id=%d", r.table, id)
		}
		if tag.RowsAffected() == 0 {
			_ = br.Close()
			return fmt.Errorf("update %s id=%d: %w", r.table, id, ErrRowMissing)
		}
	}
	return br.Close()
}

var ErrRowMissing = gerrors.New("row not found")
