package nodeio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"
)

var Formats = []string{"json", "csv", "yaml"}

// WriteRecords writes rs in a format Load reads back.
func WriteRecords(w io.Writer, rs Records, format string) error {
	switch format {
	case "json":
		if rs == nil {
			rs = Records{}
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]Records{"nodes": rs})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]Records{"nodes": rs}); err != nil {
			return err
		}
		return enc.Close()
	case "csv":
		return writeCSV(w, rs)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func writeCSV(w io.Writer, rs Records) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(allowedColumns); err != nil {
		return err
	}
	for _, r := range rs {
		row := []string{strconv.FormatInt(r.ID, 10), r.Name, "", "", r.Forest}
		if r.ParentID != nil {
			row[2] = strconv.FormatInt(*r.ParentID, 10)
		}
		if r.ParentName != nil {
			row[3] = *r.ParentName
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
