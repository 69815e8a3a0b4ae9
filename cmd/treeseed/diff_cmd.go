package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wI2L/jsondiff"

	"github.com/demoseed/treeseed/pkg/nodeio"
)

type diffEntry struct {
	Name  string `json:"name"`
	Lft   int    `json:"lft"`
	Rgt   int    `json:"rgt"`
	Depth int    `json:"depth"`
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two index results as a JSON patch (exit 2 when they differ)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := diffResults(args[0], args[1])
			if err != nil {
				return err
			}
			if patch == nil {
				patch = jsondiff.Patch{}
			}
			if err := writeJSONLine(cmd.OutOrStdout(), map[string]any{
				"old":        args[0],
				"new":        args[1],
				"equal":      len(patch) == 0,
				"operations": len(patch),
				"patch":      patch,
			}); err != nil {
				return err
			}
			if len(patch) > 0 {
				return withCode(exitValidation, fmt.Errorf("results differ in %d place(s)", len(patch)))
			}
			return nil
		},
	}
	return cmd
}

func diffResults(oldPath, newPath string) (jsondiff.Patch, error) {
	oldJSON, err := keyedResult(oldPath)
	if err != nil {
		return nil, err
	}
	newJSON, err := keyedResult(newPath)
	if err != nil {
		return nil, err
	}
	patch, err := jsondiff.CompareJSON(oldJSON, newJSON)
	if err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("compare: %w", err))
	}
	return patch, nil
}

// keyedResult re-keys a result file by forest and id, so a patch names the
// node that moved instead of shifting array positions.
func keyedResult(path string) ([]byte, error) {
	doc, err := nodeio.ReadResult(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, withCode(exitUsage, err)
		}
		return nil, withCode(exitValidation, err)
	}
	keyed := make(map[string]map[string]diffEntry)
	for _, n := range doc.Nodes {
		forest := keyed[n.Forest]
		if forest == nil {
			forest = make(map[string]diffEntry)
			keyed[n.Forest] = forest
		}
		forest[strconv.FormatInt(n.ID, 10)] = diffEntry{Name: n.Name, Lft: n.Lft, Rgt: n.Rgt, Depth: n.Depth}
	}
	b, err := json.Marshal(keyed)
	if err != nil {
		return nil, withCode(exitValidation, err)
	}
	return b, nil
}
