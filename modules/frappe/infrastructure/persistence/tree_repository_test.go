package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

func newMockRepo(t *testing.T, doctype string) (*TreeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewTreeRepository(sqlx.NewDb(db, "mysql"), doctype)
	require.NoError(t, err)
	return repo, mock
}

func TestNewTreeRepository(t *testing.T) {
	repo, err := NewTreeRepository(nil, "Item Group")
	require.NoError(t, err)
	require.Equal(t, "tabItem Group", repo.Table)
	require.Equal(t, "parent_item_group", repo.ParentColumn)

	_, err = NewTreeRepository(nil, "Dept`; DROP TABLE x")
	require.Error(t, err)
	_, err = NewTreeRepository(nil, " ")
	require.Error(t, err)
}

func TestTreeRepository_Tree(t *testing.T) {
	repo, mock := newMockRepo(t, "Department")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, `parent_department` AS parent, lft, rgt FROM `tabDepartment`")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "parent", "lft", "rgt"}).
			AddRow("Sales", "All Departments", 4, 5).
			AddRow("All Departments", nil, 1, 6).
			AddRow("Accounts", "All Departments", 2, 3).
			AddRow("New", "", 0, 0))

	tree, err := repo.Tree(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, map[int64]string{1: "Accounts", 2: "All Departments", 3: "New", 4: "Sales"}, tree.Names)
	require.Equal(t, "All Departments", *tree.Nodes[0].ParentName)
	require.Nil(t, tree.Nodes[1].ParentName)
	require.Nil(t, tree.Nodes[2].ParentName)
	require.Equal(t, nestedset.Result{
		1: {Lft: 2, Rgt: 3},
		2: {Lft: 1, Rgt: 6},
		4: {Lft: 4, Rgt: 5},
	}, tree.Intervals)
}

func TestTreeRepository_SaveIntervals(t *testing.T) {
	res := nestedset.Result{1: {Lft: 2, Rgt: 3}, 2: {Lft: 1, Rgt: 4}}
	names := map[int64]string{1: "Accounts", 2: "All Departments"}
	update := regexp.QuoteMeta("UPDATE `tabDepartment` SET lft = ?, rgt = ? WHERE name = ?")

	t.Run("commits", func(t *testing.T) {
		repo, mock := newMockRepo(t, "Department")
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(1, 4, "All Departments").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(update).WithArgs(2, 3, "Accounts").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.SaveIntervals(context.Background(), res, names))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when a row is missing", func(t *testing.T) {
		repo, mock := newMockRepo(t, "Department")
		mock.ExpectBegin()
		mock.ExpectExec(update).WithArgs(1, 4, "All Departments").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveIntervals(context.Background(), res, names)
		require.ErrorIs(t, err, ErrRowMissing)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on unknown id", func(t *testing.T) {
		repo, mock := newMockRepo(t, "Department")
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := repo.SaveIntervals(context.Background(), nestedset.Result{9: {Lft: 1, Rgt: 2}}, names)
		require.ErrorContains(t, err, "no row name for id 9")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConnect_RejectsBadDSN(t *testing.T) {
	_, err := Connect(context.Background(), "not a dsn")
	require.ErrorContains(t, err, "parse mariadb dsn")
}
