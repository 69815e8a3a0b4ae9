package main

import (
	"errors"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

type benchReport struct {
	Scenario   string  `json:"scenario"`
	Profile    string  `json:"profile"`
	Scale      int     `json:"scale"`
	Nodes      int     `json:"nodes"`
	P50Ms      float64 `json:"p50_ms"`
	P95Ms      float64 `json:"p95_ms"`
	P99Ms      float64 `json:"p99_ms"`
	Count      int     `json:"count"`
	StartedAt  string  `json:"started_at"`
	FinishedAt string  `json:"finished_at"`
	GitRev     string  `json:"git_rev,omitempty"`
}

func newBenchCmd() *cobra.Command {
	var (
		profile    string
		scale      string
		seed       int64
		iterations int
		warmup     int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the indexer on a synthetic forest and emit a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := parseScale(scale)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if iterations <= 0 {
				return withCode(exitUsage, errors.New("iterations must be positive"))
			}
			if warmup < 0 {
				return withCode(exitUsage, errors.New("warmup must be non-negative"))
			}
			profile = strings.ToLower(strings.TrimSpace(profile))

			records, err := buildDataset(profile, count, 1, seed)
			if err != nil {
				return withCode(exitUsage, err)
			}
			nodes, err := records.Nodes(nestedset.Options{})
			if err != nil {
				return withCode(exitValidation, err)
			}

			startedAt := time.Now().UTC()
			samples, err := measureIndex(nodes, warmup, iterations)
			if err != nil {
				return withCode(exitValidation, err)
			}
			p50, p95, p99 := percentiles(samples)

			return writeJSONLine(cmd.OutOrStdout(), benchReport{
				Scenario:   "nested_set_index",
				Profile:    profile,
				Scale:      count,
				Nodes:      len(nodes),
				P50Ms:      p50,
				P95Ms:      p95,
				P99Ms:      p99,
				Count:      len(samples),
				StartedAt:  startedAt.Format(time.RFC3339Nano),
				FinishedAt: time.Now().UTC().Format(time.RFC3339Nano),
				GitRev:     detectGitRevision(),
			})
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "balanced", "dataset profile (balanced|wide|deep)")
	cmd.Flags().StringVar(&scale, "scale", "10k", "nodes in the forest")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().IntVar(&iterations, "iterations", 20, "measured runs")
	cmd.Flags().IntVar(&warmup, "warmup", 2, "unmeasured runs before measuring")
	return cmd
}

func measureIndex(nodes []nestedset.Node, warmup, iterations int) ([]float64, error) {
	for i := 0; i < warmup; i++ {
		if _, err := nestedset.Index(nodes, nestedset.Options{}); err != nil {
			return nil, err
		}
	}
	samples := make([]float64, 0, iterations)
	for i := 0; i < iterations; i++ {
		start := time.Now()
		if _, err := nestedset.Index(nodes, nestedset.Options{}); err != nil {
			return nil, err
		}
		samples = append(samples, float64(time.Since(start).Microseconds())/1000)
	}
	return samples, nil
}

func percentileMillis(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func percentiles(samples []float64) (float64, float64, float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)
	return percentileMillis(cp, 0.50), percentileMillis(cp, 0.95), percentileMillis(cp, 0.99)
}

func detectGitRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}

