package persistence

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type fakeBatchResults struct {
	tags []pgconn.CommandTag
	pos  int
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	if b.pos >= len(b.tags) {
		return pgconn.CommandTag{}, fmt.Errorf("no more results")
	}
	b.pos++
	return b.tags[b.pos-1], nil
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, fmt.Errorf("not supported") }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (b *fakeBatchResults) Close() error             { return nil }

type fakeTx struct {
	queries []string
	args    [][]any
	rows    *fakeRows
	batch   *pgx.Batch
	missing map[int64]bool
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("UPDATE 0"), nil
}

func (f *fakeTx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	return f.rows, nil
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return nil }

func (f *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	res := &fakeBatchResults{}
	for _, q := range b.QueuedQueries {
		id := q.Arguments[3].(int64)
		if f.missing[id] {
			res.tags = append(res.tags, pgconn.NewCommandTag("UPDATE 0"))
		} else {
			res.tags = append(res.tags, pgconn.NewCommandTag("UPDATE 1"))
		}
	}
	return res
}

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func TestNestedSetRepository_ForestIDs(t *testing.T) {
	tx := &fakeTx{rows: &fakeRows{data: [][]any{{int64(1)}, {int64(2)}}}}
	ctx := composables.WithTx(context.Background(), tx)

	ids, err := NewMenuItemRepository().ForestIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids)
	require.Contains(t, tx.queries[0], "SELECT DISTINCT menu_id FROM spree_menu_items")
}

func TestNestedSetRepository_Forest(t *testing.T) {
	tx := &fakeTx{rows: &fakeRows{data: [][]any{
		{int64(1), "Categories", nil, ptrInt(1), ptrInt(4)},
		{int64(2), "Women", ptrInt64(1), ptrInt(2), ptrInt(3)},
		{int64(3), "Men", ptrInt64(1), nil, nil},
	}}}
	ctx := composables.WithTx(context.Background(), tx)

	forest, err := NewTaxonRepository().Forest(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), forest.ID)
	require.Equal(t, []nestedset.Node{
		{ID: 1, Name: "Categories"},
		{ID: 2, Name: "Women", ParentID: ptrInt64(1)},
		{ID: 3, Name: "Men", ParentID: ptrInt64(1)},
	}, forest.Nodes)
	require.Equal(t, nestedset.Result{1: {Lft: 1, Rgt: 4}, 2: {Lft: 2, Rgt: 3}}, forest.Intervals)

	require.True(t, strings.HasPrefix(tx.queries[0], "SELECT id, name, parent_id, lft, rgt FROM spree_taxons WHERE taxonomy_id = $1"))
	require.Equal(t, []any{int64(7)}, tx.args[0])
}

func TestNestedSetRepository_SaveIntervals(t *testing.T) {
	res := nestedset.Result{1: {Lft: 1, Rgt: 4}, 2: {Lft: 2, Rgt: 3}}
	depths := map[int64]int{1: 0, 2: 1}

	t.Run("queues one update per node in lft order", func(t *testing.T) {
		tx := &fakeTx{}
		ctx := composables.WithTx(context.Background(), tx)
		require.NoError(t, NewTaxonRepository().SaveIntervals(ctx, res, depths))

		require.Equal(t, 2, tx.batch.Len())
		first := tx.batch.QueuedQueries[0]
		require.Contains(t, first.SQL, "UPDATE spree_taxons SET lft = $1, rgt = $2, depth = $3")
		require.Equal(t, []any{1, 4, 0, int64(1)}, first.Arguments)
		require.Equal(t, []any{2, 3, 1, int64(2)}, tx.batch.QueuedQueries[1].Arguments)
	})

	t.Run("missing row fails", func(t *testing.T) {
		tx := &fakeTx{missing: map[int64]bool{2: true}}
		ctx := composables.WithTx(context.Background(), tx)
		err := NewTaxonRepository().SaveIntervals(ctx, res, depths)
		require.ErrorIs(t, err, ErrRowMissing)
		require.ErrorContains(t, err, "id=2")
	})

	t.Run("empty result is a no-op", func(t *testing.T) {
		require.NoError(t, NewTaxonRepository().SaveIntervals(context.Background(), nestedset.Result{}, nil))
	})

	t.Run("no transaction or pool", func(t *testing.T) {
		err := NewTaxonRepository().SaveIntervals(context.Background(), res, depths)
		require.ErrorIs(t, err, composables.ErrNoPool)
	})
}
