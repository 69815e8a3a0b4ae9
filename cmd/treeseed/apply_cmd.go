package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	frappepersistence "github.com/demoseed/treeseed/modules/frappe/infrastructure/persistence"
	frappeservices "github.com/demoseed/treeseed/modules/frappe/services"
	spreeservices "github.com/demoseed/treeseed/modules/spree/services"
	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/configuration"
	"github.com/demoseed/treeseed/pkg/nestedset"
)

func newApplyCmd() *cobra.Command {
	var (
		target        string
		forestIDs     []int64
		doctype       string
		apply         bool
		strict        bool
		sharedCounter bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Recompute lft/rgt in a Spree or Frappe database (dry-run unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			target, err := normalizeTarget(target, conf)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("strict") {
				strict = conf.NestedSet.Strict
			}
			if !cmd.Flags().Changed("shared-counter") {
				sharedCounter = conf.NestedSet.SharedCounter
			}

			runID := newRunID()
			logger := conf.Logger().WithFields(logrus.Fields{"run_id": runID, "target": target})
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = composables.WithLogger(ctx, logger)
			opts := nestedset.Options{Strict: strict, Logger: logger}

			summary := map[string]any{
				"run_id": runID,
				"target": target,
				"apply":  apply,
				"strict": strict,
			}

			if target == "frappe" {
				db, err := openMariaDB(ctx, conf)
				if err != nil {
					return err
				}
				defer db.Close()
				repo, err := frappepersistence.NewTreeRepository(db, doctype)
				if err != nil {
					return withCode(exitUsage, err)
				}
				out, err := frappeservices.Reindex(ctx, repo.Table, repo, opts, apply)
				if err != nil {
					return withCode(dbCode(err, apply), err)
				}
				summary["trees"] = []frappeservices.Summary{out}
				return writeJSONLine(cmd.OutOrStdout(), summary)
			}

			pool, err := openPool(ctx, conf)
			if err != nil {
				return err
			}
			defer pool.Close()
			ctx = composables.WithPool(ctx, pool)

			svc := spreeservices.NewReindexService(spreeRepository(target))
			out, err := svc.Reindex(ctx, forestIDs, spreeservices.ReindexOptions{
				Index:         opts,
				SharedCounter: sharedCounter,
				Apply:         apply,
			})
			if err != nil {
				return withCode(dbCode(err, apply), fmt.Errorf("reindex %s: %w", target, err))
			}
			summary["shared_counter"] = sharedCounter
			summary["forests"] = out
			return writeJSONLine(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "spree-taxons|spree-menus|frappe (default from NESTED_SET_TARGET)")
	cmd.Flags().Int64SliceVar(&forestIDs, "forest", nil, "taxonomy or menu id to reindex (repeatable; default all)")
	cmd.Flags().StringVar(&doctype, "doctype", "Department", "Frappe tree doctype (frappe target only)")
	cmd.Flags().BoolVar(&apply, "apply", false, "write the new intervals (default dry-run)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on parent references that do not resolve")
	cmd.Flags().BoolVar(&sharedCounter, "shared-counter", false, "number all forests in one sequence")
	return cmd
}
