package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/demoseed/treeseed/pkg/configuration"
	"github.com/demoseed/treeseed/pkg/metrics"
	"github.com/demoseed/treeseed/pkg/nestedset"
	"github.com/demoseed/treeseed/pkg/nodeio"
)

type indexSummary struct {
	RunID         string `json:"run_id"`
	Input         string `json:"input"`
	Output        string `json:"output,omitempty"`
	Forests       int    `json:"forests"`
	Nodes         int    `json:"nodes"`
	Orphans       int    `json:"orphans"`
	MaxRgt        int    `json:"max_rgt"`
	Strict        bool   `json:"strict"`
	SharedCounter bool   `json:"shared_counter"`
	DurationMS    int64  `json:"duration_ms"`
}

func newIndexCmd() *cobra.Command {
	var (
		input         string
		output        string
		strict        bool
		sharedCounter bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Compute lft/rgt for every forest in an input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				return withCode(exitUsage, fmt.Errorf("--input is required"))
			}
			conf := configuration.Use()
			if !cmd.Flags().Changed("strict") {
				strict = conf.NestedSet.Strict
			}
			if !cmd.Flags().Changed("shared-counter") {
				sharedCounter = conf.NestedSet.SharedCounter
			}
			logger := conf.Logger().WithField("input", input)

			records, err := nodeio.Load(input)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return withCode(exitUsage, err)
				}
				return withCode(exitValidation, err)
			}

			start := time.Now()
			doc, summary, err := indexRecords(records, nestedset.Options{Strict: strict, Logger: logger}, sharedCounter)
			elapsed := time.Since(start)
			if err != nil {
				metrics.RecordIndexRun(nestedset.ErrorCode(err), 0, 0, elapsed)
				return withCode(exitValidation, err)
			}
			metrics.RecordIndexRun("ok", summary.Nodes, summary.Orphans, elapsed)

			if output != "" {
				f, err := createOutput(output)
				if err != nil {
					return err
				}
				if err := nodeio.WriteResult(f, doc); err != nil {
					_ = f.Close()
					return withCode(exitUsage, fmt.Errorf("write %s: %w", output, err))
				}
				if err := f.Close(); err != nil {
					return withCode(exitUsage, fmt.Errorf("close %s: %w", output, err))
				}
			}

			summary.RunID = newRunID()
			summary.Input = input
			summary.Output = output
			summary.Strict = strict
			summary.SharedCounter = sharedCounter
			summary.DurationMS = elapsed.Milliseconds()
			logger.WithFields(logrus.Fields{
				"forests": summary.Forests,
				"nodes":   summary.Nodes,
				"orphans": summary.Orphans,
			}).Info("index complete")
			return writeJSONLine(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "input file (.json, .yaml, .csv, .xlsx)")
	cmd.Flags().StringVar(&output, "output", "", "result file (JSON); omit to only print the summary")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on parent references that do not resolve (default from NESTED_SET_STRICT)")
	cmd.Flags().BoolVar(&sharedCounter, "shared-counter", false, "number all forests in one sequence (default from NESTED_SET_SHARED_COUNTER)")
	return cmd
}

// indexRecords indexes every forest of records and checks each result
// before handing it back.
func indexRecords(records nodeio.Records, opts nestedset.Options, shared bool) (nodeio.ResultDocument, indexSummary, error) {
	var (
		doc     nodeio.ResultDocument
		summary indexSummary
	)
	forests := records.Forests()
	nodeSets := make([][]nestedset.Node, 0, len(forests))
	for _, f := range forests {
		o := opts
		if f.Name != "" {
			o = opts.WithField("forest", f.Name)
		}
		nodes, err := f.Records.Nodes(o)
		if err != nil {
			return doc, summary, fmt.Errorf("forest %q: %w", f.Name, err)
		}
		nodeSets = append(nodeSets, nodes)
		summary.Orphans += len(f.Records.NameOrphans(nodes))
	}

	indexed, err := nestedset.IndexForests(nodeSets, opts, shared)
	if err != nil {
		return doc, summary, err
	}
	for i, ix := range indexed {
		if err := nestedset.Verify(nodeSets[i], ix.Intervals); err != nil {
			return doc, summary, fmt.Errorf("forest %q: %w", forests[i].Name, err)
		}
		doc.Append(forests[i].Name, forests[i].Records.Names(), ix)
		summary.Nodes += len(ix.Intervals)
		summary.Orphans += len(ix.Tree.Orphans())
		if m := ix.Intervals.Max(); m > summary.MaxRgt {
			summary.MaxRgt = m
		}
	}
	summary.Forests = len(forests)
	return doc, summary, nil
}
