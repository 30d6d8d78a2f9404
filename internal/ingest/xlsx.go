package ingest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// loadXLSX parses the first sheet of an Excel workbook into a Table.
// Additional sheets are ignored; forensic tool exports put data on sheet one.
func loadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q in %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet %q in %s", sheets[0], path)
	}

	header := rows[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{
		Source:  sourceName(path),
		Path:    path,
		Columns: columns,
	}
	for _, rec := range rows[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = "" // GetRows drops trailing empty cells
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
