package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/demoseed/treeseed/pkg/nodeio"
)

func newDatasetCmd() *cobra.Command {
	var (
		profile string
		scale   string
		forests int
		seed    int64
		output  string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Generate a deterministic synthetic catalog for demos and benchmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseScale(scale)
			if err != nil {
				return withCode(exitUsage, err)
			}
			profile = strings.ToLower(strings.TrimSpace(profile))
			if profile == "" {
				profile = "balanced"
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
				if format == "yml" {
					format = "yaml"
				}
			}

			records, err := buildDataset(profile, count, forests, seed)
			if err != nil {
				return withCode(exitUsage, err)
			}

			f, err := createOutput(output)
			if err != nil {
				return err
			}
			if err := nodeio.WriteRecords(f, records, format); err != nil {
				_ = f.Close()
				return withCode(exitUsage, fmt.Errorf("write %s: %w", output, err))
			}
			if err := f.Close(); err != nil {
				return withCode(exitUsage, fmt.Errorf("close %s: %w", output, err))
			}

			datasetID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("treeseed:%s:%d:%d:%d", profile, count, forests, seed)))
			return writeJSONLine(cmd.OutOrStdout(), map[string]any{
				"dataset_id": datasetID.String(),
				"profile":    profile,
				"scale":      count,
				"forests":    forests,
				"seed":       seed,
				"nodes":      len(records),
				"output":     output,
				"format":     format,
			})
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "balanced", "dataset profile (balanced|wide|deep)")
	cmd.Flags().StringVar(&scale, "scale", "1k", "nodes per forest (e.g. 500, 1k)")
	cmd.Flags().IntVar(&forests, "forests", 1, "number of forests (taxonomies)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&output, "output", "", "output file")
	cmd.Flags().StringVar(&format, "format", "", "json|csv|yaml (default from --output extension)")
	return cmd
}
