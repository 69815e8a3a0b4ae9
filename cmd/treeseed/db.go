package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	frappepersistence "github.com/demoseed/treeseed/modules/frappe/infrastructure/persistence"
	spreepersistence "github.com/demoseed/treeseed/modules/spree/infrastructure/persistence"
	"github.com/demoseed/treeseed/pkg/configuration"
)

func normalizeTarget(raw string, conf *configuration.Configuration) (string, error) {
	target := strings.ToLower(strings.TrimSpace(raw))
	if target == "" {
		target = conf.NestedSet.Target
	}
	for _, t := range configuration.Targets {
		if t == target {
			return target, nil
		}
	}
	return "", withCode(exitUsage, fmt.Errorf("invalid --target %q (expected %s)", raw, strings.Join(configuration.Targets, "|")))
}

func spreeRepository(target string) *spreepersistence.NestedSetRepository {
	if target == "spree-menus" {
		return spreepersistence.NewMenuItemRepository()
	}
	return spreepersistence.NewTaxonRepository()
}

func openPool(ctx context.Context, conf *configuration.Configuration) (*pgxpool.Pool, error) {
	dsn := strings.TrimSpace(conf.Database.Opts)
	if dsn == "" {
		return nil, withCode(exitDB, fmt.Errorf("missing database dsn"))
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("connect postgres: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("ping postgres: %w", err))
	}
	return pool, nil
}

func openMariaDB(ctx context.Context, conf *configuration.Configuration) (*sqlx.DB, error) {
	db, err := frappepersistence.Connect(ctx, conf.MariaDB.Opts)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return db, nil
}
