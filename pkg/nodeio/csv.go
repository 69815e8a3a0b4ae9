package nodeio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	colID         = "id"
	colName       = "name"
	colParentID   = "parent_id"
	colParentName = "parent_name"
	colForest     = "forest"
)

var (
	requiredColumns = []string{colID, colName}
	allowedColumns  = []string{colID, colName, colParentID, colParentName, colForest}
)

func loadCSV(path string) (Records, error) {
	r, closeFn, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if err := requireHeader(header, requiredColumns, allowedColumns); err != nil {
		return nil, err
	}
	idx := headerIndex(header)

	var rs Records
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := parseRow(idx, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rs = append(rs, rec)
	}
	return rs, nil
}

func openCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := stripUTF8BOM(bufio.NewReader(f))

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	return r, f.Close, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	return normalizeHeader(h)
}

func normalizeHeader(h []string) ([]string, error) {
	for i := range h {
		h[i] = strings.ToLower(strings.TrimSpace(h[i]))
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return h, nil
}

func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

func requireHeader(header []string, required []string, allowed []string) error {
	hset := make(map[string]struct{}, len(header))
	for _, h := range header {
		hset[h] = struct{}{}
	}
	for _, req := range required {
		if _, ok := hset[req]; !ok {
			return fmt.Errorf("missing required header column: %s", req)
		}
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	for _, h := range header {
		if _, ok := allowedSet[h]; !ok {
			return fmt.Errorf("unexpected header column: %s", h)
		}
	}
	return nil
}

// parseRow reads one data row. Short rows (spreadsheets drop trailing empty
// cells) read as empty values.
func parseRow(idx map[string]int, row []string) (Record, error) {
	cell := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec Record
	id, err := strconv.ParseInt(cell(colID), 10, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid id %q", cell(colID))
	}
	rec.ID = id
	rec.Name = cell(colName)
	rec.Forest = cell(colForest)

	if v := cell(colParentID); v != "" {
		pid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("invalid parent_id %q", v)
		}
		rec.ParentID = &pid
	}
	if v := cell(colParentName); v != "" {
		rec.ParentName = &v
	}
	return rec, nil
}
