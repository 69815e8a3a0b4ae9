package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	frappepersistence "github.com/demoseed/treeseed/modules/frappe/infrastructure/persistence"
	frappeservices "github.com/demoseed/treeseed/modules/frappe/services"
	spreeservices "github.com/demoseed/treeseed/modules/spree/services"
	"github.com/demoseed/treeseed/pkg/composables"
	"github.com/demoseed/treeseed/pkg/configuration"
)

func newVerifyCmd() *cobra.Command {
	var (
		target    string
		forestIDs []int64
		doctype   string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check stored lft/rgt against the nested-set laws",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			target, err := normalizeTarget(target, conf)
			if err != nil {
				return err
			}
			ctx := composables.WithLogger(context.Background(), conf.Logger().WithField("target", target))
			summary := map[string]any{"run_id": newRunID(), "target": target}

			bad := 0
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
				out, err := frappeservices.Verify(ctx, repo.Table, repo)
				if err != nil {
					return withCode(dbCode(err, false), err)
				}
				if !*out.OK {
					bad++
				}
				summary["trees"] = []frappeservices.Summary{out}
			} else {
				pool, err := openPool(ctx, conf)
				if err != nil {
					return err
				}
				defer pool.Close()
				ctx = composables.WithPool(ctx, pool)

				out, err := spreeservices.NewReindexService(spreeRepository(target)).Verify(ctx, forestIDs)
				if err != nil {
					return withCode(exitDB, err)
				}
				for _, vs := range out {
					if !vs.OK {
						bad++
					}
				}
				summary["forests"] = out
			}

			summary["ok"] = bad == 0
			if err := writeJSONLine(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if bad > 0 {
				return withCode(exitValidation, fmt.Errorf("%d stored tree(s) violate nested-set invariants", bad))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "spree-taxons|spree-menus|frappe (default from NESTED_SET_TARGET)")
	cmd.Flags().Int64SliceVar(&forestIDs, "forest", nil, "taxonomy or menu id to check (repeatable; default all)")
	cmd.Flags().StringVar(&doctype, "doctype", "Department", "Frappe tree doctype (frappe target only)")
	return cmd
}
