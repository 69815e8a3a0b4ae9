package nodeio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/demoseed/treeseed/pkg/nestedset"
)

// ResultNode is one line of an index result file.
type ResultNode struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Forest string `json:"forest,omitempty"`
	Lft    int    `json:"lft"`
	Rgt    int    `json:"rgt"`
	Depth  int    `json:"depth"`
}

// ResultDocument is the stable on-disk form of an index run: forests in
// input order, nodes of each forest by lft.
type ResultDocument struct {
	Nodes []ResultNode `json:"nodes"`
}

// Append adds one indexed forest to the document.
func (d *ResultDocument) Append(forest string, names map[int64]string, ix *nestedset.Indexed) {
	depths := ix.Tree.Depths()
	for _, id := range ix.Intervals.IDsByLft() {
		iv := ix.Intervals[id]
		d.Nodes = append(d.Nodes, ResultNode{
			ID:     id,
			Name:   names[id],
			Forest: forest,
			Lft:    iv.Lft,
			Rgt:    iv.Rgt,
			Depth:  depths[id],
		})
	}
}

func WriteResult(w io.Writer, doc ResultDocument) error {
	if doc.Nodes == nil {
		doc.Nodes = []ResultNode{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func ReadResult(path string) (ResultDocument, error) {
	var doc ResultDocument
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}
