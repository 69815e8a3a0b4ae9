package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	gerrors "github.com/go-faster/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/demoseed/treeseed/modules/frappe/services"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

var ErrRowMissing = gerrors.New("row not found")

// Connect opens a MariaDB handle for a go-sql-driver/mysql DSN.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse mariadb dsn")
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, gerrors.Wrap(err, "mariadb connector")
	}
	db := sqlx.NewDb(sql.OpenDB(connector), "mysql")
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, gerrors.Wrapf(err, "connect mariadb %s/%s", cfg.Addr, cfg.DBName)
	}
	return db, nil
}

// TreeRepository reads and writes a Frappe tree doctype table such as
// `tabDepartment`, whose rows point at their parent by name.
type TreeRepository struct {
	DB           *sqlx.DB
	Table        string
	ParentColumn string
}

// NewTreeRepository derives the table and parent column from a doctype name,
// e.g. "Item Group" -> `tabItem Group`.parent_item_group.
func NewTreeRepository(db *sqlx.DB, doctype string) (*TreeRepository, error) {
	doctype = strings.TrimSpace(doctype)
	if doctype == "" || strings.ContainsAny(doctype, "`;") {
		return nil, fmt.Errorf("invalid doctype %q", doctype)
	}
	return &TreeRepository{
		DB:           db,
		Table:        "tab" + doctype,
		ParentColumn: "parent_" + strings.ReplaceAll(strings.ToLower(doctype), " ", "_"),
	}, nil
}

type treeRow struct {
	Name   string         `db:"name"`
	Parent sql.NullString `db:"parent"`
	Lft    sql.NullInt64  `db:"lft"`
	Rgt    sql.NullInt64  `db:"rgt"`
}

func (r *TreeRepository) Tree(ctx context.Context) (services.StoredTree, error) {
	var rows []treeRow
	q := fmt.Sprintf("SELECT name, `%s` AS parent, lft, rgt FROM `%s`", r.ParentColumn, r.Table)
	if err := r.DB.SelectContext(ctx, &rows, q); err != nil {
		return services.StoredTree{}, gerrors.Wrapf(err, "select %s", r.Table)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	out := services.StoredTree{
		Nodes:     make([]nestedset.NamedNode, 0, len(rows)),
		Names:     make(map[int64]string, len(rows)),
		Intervals: make(nestedset.Result, len(rows)),
	}
	for i, row := range rows {
		id := int64(i + 1)
		n := nestedset.NamedNode{ID: id, Name: row.Name}
		if row.Parent.Valid && row.Parent.String != "" {
			parent := row.Parent.String
			n.ParentName = &parent
		}
		out.Nodes = append(out.Nodes, n)
		out.Names[id] = row.Name
		if row.Lft.Valid && row.Rgt.Valid && row.Lft.Int64 > 0 {
			out.Intervals[id] = nestedset.Interval{Lft: int(row.Lft.Int64), Rgt: int(row.Rgt.Int64)}
		}
	}
	return out, nil
}

// SaveIntervals updates every row in one transaction, in lft order.
func (r *TreeRepository) SaveIntervals(ctx context.Context, res nestedset.Result, names map[int64]string) (err error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return gerrors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	q := fmt.Sprintf("UPDATE `%s` SET lft = ?, rgt = ? WHERE name = ?", r.Table)
	for _, id := range res.IDsByLft() {
		iv := res[id]
		name, ok := names[id]
		if !ok {
			return fmt.Errorf("no row name for id %d", id)
		}
		result, execErr := tx.ExecContext(ctx, q, iv.Lft, iv.Rgt, name)
		if execErr != nil {
			return gerrors.Wrapf(execErr, "update %s %q", r.Table, name)
		}
		n, execErr := result.RowsAffected()
		if execErr != nil {
			return gerrors.Wrapf(execErr, "update %s %q", r.Table, name)
		}
		if n == 0 {
			return fmt.Errorf("update %s %q: %w", r.Table, name, ErrRowMissing)
		}
	}
	return tx.Commit()
}
