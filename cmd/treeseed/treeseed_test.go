package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/demoseed/treeseed/pkg/nestedset"
	"github.com/demoseed/treeseed/pkg/nodeio"
)

func runCLI(t *testing.T, args ...string) (map[string]any, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()

	var summary map[string]any
	if out.Len() > 0 {
		require.NoError(t, json.Unmarshal(out.Bytes(), &summary), out.String())
	}
	return summary, err
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const catalogJSON = `{"taxons":[
	{"id":1,"name":"Categories","forest":"categories"},
	{"id":2,"name":"Women","parent_name":"Categories","forest":"categories"},
	{"id":3,"name":"Men","parent_name":"Categories","forest":"categories"},
	{"id":4,"name":"Dresses","parent_id":2,"forest":"categories"},
	{"id":5,"name":"Brands","forest":"brands"},
	{"id":6,"name":"Acme","parent_id":5,"forest":"brands"}
]}`

func TestIndexCmd_WritesResult(t *testing.T) {
	input := writeInput(t, "taxons.json", catalogJSON)
	output := filepath.Join(t.TempDir(), "out", "result.json")

	summary, err := runCLI(t, "index", "--input", input, "--output", output)
	require.NoError(t, err)
	require.EqualValues(t, 2, summary["forests"])
	require.EqualValues(t, 6, summary["nodes"])
	require.EqualValues(t, 8, summary["max_rgt"])
	require.NotEmpty(t, summary["run_id"])

	doc, err := nodeio.ReadResult(output)
	require.NoError(t, err)
	require.Equal(t, []nodeio.ResultNode{
		{ID: 1, Name: "Categories", Forest: "categories", Lft: 1, Rgt: 8, Depth: 0},
		{ID: 3, Name: "Men", Forest: "categories", Lft: 2, Rgt: 3, Depth: 1},
		{ID: 2, Name: "Women", Forest: "categories", Lft: 4, Rgt: 7, Depth: 1},
		{ID: 4, Name: "Dresses", Forest: "categories", Lft: 5, Rgt: 6, Depth: 2},
		{ID: 5, Name: "Brands", Forest: "brands", Lft: 1, Rgt: 4, Depth: 0},
		{ID: 6, Name: "Acme", Forest: "brands", Lft: 2, Rgt: 3, Depth: 1},
	}, doc.Nodes)
}

func TestIndexCmd_SharedCounter(t *testing.T) {
	input := writeInput(t, "taxons.json", catalogJSON)
	summary, err := runCLI(t, "index", "--input", input, "--shared-counter")
	require.NoError(t, err)
	require.EqualValues(t, 12, summary["max_rgt"])
	require.Equal(t, true, summary["shared_counter"])
}

func TestIndexCmd_ExitCodes(t *testing.T) {
	orphan := writeInput(t, "orphan.json", `[{"id":1,"name":"A"},{"id":2,"name":"B","parent_id":9}]`)
	cycle := writeInput(t, "cycle.json", `[{"id":1,"name":"A","parent_id":2},{"id":2,"name":"B","parent_id":1}]`)
	invalid := writeInput(t, "invalid.json", `[{"id":1,"name":""}]`)

	cases := []struct {
		name string
		args []string
		code int
	}{
		{"missing input flag", []string{"index"}, exitUsage},
		{"missing file", []string{"index", "--input", filepath.Join(t.TempDir(), "nope.json")}, exitUsage},
		{"invalid record", []string{"index", "--input", invalid}, exitValidation},
		{"strict orphan", []string{"index", "--input", orphan, "--strict"}, exitValidation},
		{"cycle", []string{"index", "--input", cycle}, exitValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.args...)
			require.Error(t, err)
			require.Equal(t, tc.code, exitCode(err))
		})
	}

	summary, err := runCLI(t, "index", "--input", orphan)
	require.NoError(t, err)
	require.EqualValues(t, 1, summary["orphans"])
}

func TestDatasetCmd_DeterministicAndIndexable(t *testing.T) {
	dir := t.TempDir()
	for _, profile := range []string{"balanced", "wide", "deep"} {
		t.Run(profile, func(t *testing.T) {
			a := filepath.Join(dir, profile+"-a.csv")
			b := filepath.Join(dir, profile+"-b.csv")
			summary, err := runCLI(t, "dataset", "--profile", profile, "--scale", "120", "--forests", "2", "--seed", "7", "--output", a)
			require.NoError(t, err)
			require.EqualValues(t, 240, summary["nodes"])
			require.Equal(t, "csv", summary["format"])
			_, err = runCLI(t, "dataset", "--profile", profile, "--scale", "120", "--forests", "2", "--seed", "7", "--output", b)
			require.NoError(t, err)

			ab, err := os.ReadFile(a)
			require.NoError(t, err)
			bb, err := os.ReadFile(b)
			require.NoError(t, err)
			require.Equal(t, ab, bb)

			records, err := nodeio.Load(a)
			require.NoError(t, err)
			doc, summary2, err := indexRecords(records, nestedset.Options{Strict: true}, false)
			require.NoError(t, err)
			require.Equal(t, 240, summary2.Nodes)
			require.Equal(t, 240, summary2.MaxRgt)
			require.Len(t, doc.Nodes, 240)
		})
	}

	_, err := runCLI(t, "dataset", "--profile", "spiral", "--output", filepath.Join(dir, "x.json"))
	require.Equal(t, exitUsage, exitCode(err))
	_, err = runCLI(t, "dataset", "--profile", "deep")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestBuildDataset_Shapes(t *testing.T) {
	depthOf := func(rs nodeio.Records) int {
		nodes, err := rs.Nodes(nestedset.Options{})
		require.NoError(t, err)
		ix, err := nestedset.Build(nodes, nestedset.Options{})
		require.NoError(t, err)
		max := 0
		for _, d := range ix.Tree.Depths() {
			if d > max {
				max = d
			}
		}
		return max
	}

	deep, err := buildDataset("deep", 50, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 49, depthOf(deep))
	require.Equal(t, "Categories", deep[0].Name)

	wide, err := buildDataset("wide", 100, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, depthOf(wide))

	single, err := buildDataset("balanced", 1, 6, 1)
	require.NoError(t, err)
	require.Len(t, single, 6)
	require.Equal(t, "Categories 2", single[5].Name)
	require.Equal(t, int64(6), single[5].ID)
}

func TestDiffCmd(t *testing.T) {
	input := writeInput(t, "taxons.json", catalogJSON)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	_, err := runCLI(t, "index", "--input", input, "--output", first)
	require.NoError(t, err)
	_, err = runCLI(t, "index", "--input", input, "--output", second)
	require.NoError(t, err)

	summary, err := runCLI(t, "diff", first, second)
	require.NoError(t, err)
	require.Equal(t, true, summary["equal"])

	shared := filepath.Join(dir, "shared.json")
	_, err = runCLI(t, "index", "--input", input, "--output", shared, "--shared-counter")
	require.NoError(t, err)

	summary, err = runCLI(t, "diff", first, shared)
	require.Error(t, err)
	require.Equal(t, exitValidation, exitCode(err))
	require.Equal(t, false, summary["equal"])

	paths := map[string]bool{}
	for _, op := range summary["patch"].([]any) {
		paths[op.(map[string]any)["path"].(string)] = true
	}
	require.True(t, paths["/brands/5/lft"])
	require.False(t, paths["/categories/1/lft"])

	_, err = runCLI(t, "diff", first, filepath.Join(dir, "missing.json"))
	require.Equal(t, exitUsage, exitCode(err))
}

func TestExitCodes(t *testing.T) {
	require.Equal(t, exitOK, exitCode(nil))
	require.Equal(t, 1, exitCode(errors.New("plain")))
	require.Nil(t, withCode(exitDB, nil))

	wrapped := withCode(exitDBWrite, errors.New("boom"))
	require.Equal(t, exitDBWrite, exitCode(wrapped))
	require.EqualError(t, wrapped, "boom")

	require.Equal(t, exitValidation, dbCode(&nestedset.DuplicateIDError{ID: 1}, true))
	require.Equal(t, exitDBWrite, dbCode(errors.New("conn reset"), true))
	require.Equal(t, exitDB, dbCode(errors.New("conn reset"), false))
}

func TestParseScale(t *testing.T) {
	n, err := parseScale("1k")
	require.NoError(t, err)
	require.Equal(t, 1000, n)
	n, err = parseScale(" 250 ")
	require.NoError(t, err)
	require.Equal(t, 250, n)
	for _, bad := range []string{"", "0", "-3", "ten"} {
		_, err := parseScale(bad)
		require.Error(t, err, bad)
	}
}

func TestBenchCmd(t *testing.T) {
	summary, err := runCLI(t, "bench", "--profile", "deep", "--scale", "200", "--iterations", "3", "--warmup", "0")
	require.NoError(t, err)
	require.EqualValues(t, 200, summary["nodes"])
	require.EqualValues(t, 3, summary["count"])
	require.Equal(t, "nested_set_index", summary["scenario"])

	_, err = runCLI(t, "bench", "--iterations", "0")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestPercentiles(t *testing.T) {
	p50, p95, p99 := percentiles([]float64{5, 1, 4, 2, 3})
	require.Equal(t, 3.0, p50)
	require.Equal(t, 4.0, p95)
	require.Equal(t, 4.0, p99)

	p50, _, _ = percentiles(nil)
	require.Zero(t, p50)
}

func TestIndexRecords_ZeroOptionsWithForestNames(t *testing.T) {
	doc, summary, err := indexRecords(nodeio.Records{{ID: 1, Name: "A", Forest: "f"}}, nestedset.Options{}, false)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Forests)
	require.Equal(t, []nodeio.ResultNode{{ID: 1, Name: "A", Forest: "f", Lft: 1, Rgt: 2}}, doc.Nodes)
}

func TestIndexCmd_CountsUnresolvedParentNames(t *testing.T) {
	input := writeInput(t, "taxons.json", `{"taxons":[
		{"id":1,"name":"Categories","forest":"categories"},
		{"id":2,"name":"Women","parent_name":"Categoriez","forest":"categories"},
		{"id":3,"name":"Men","parent_name":"Categories","forest":"categories"}
	]}`)

	summary, err := runCLI(t, "index", "--input", input)
	require.NoError(t, err)
	require.EqualValues(t, 3, summary["nodes"])
	require.EqualValues(t, 1, summary["orphans"])

	_, err = runCLI(t, "index", "--input", input, "--strict")
	require.Equal(t, exitValidation, exitCode(err))
}
