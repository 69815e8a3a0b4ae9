package nodeio

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// loadXLSX reads the first sheet with the same columns as the CSV format.
func loadXLSX(path string) (Records, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header")
	}

	header, err := normalizeHeader(rows[0])
	if err != nil {
		return nil, err
	}
	if err := requireHeader(header, requiredColumns, allowedColumns); err != nil {
		return nil, err
	}
	idx := headerIndex(header)

	rs := make(Records, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		rec, err := parseRow(idx, row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", sheets[0], i+2, err)
		}
		rs = append(rs, rec)
	}
	return rs, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
