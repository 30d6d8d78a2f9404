package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// candidateDelimiters are tried in priority order; ties during detection
// resolve to the earliest entry.
var candidateDelimiters = []rune{',', '\t', '|', ';'}

// loadDelimited parses a CSV or delimited text file. For .csv the delimiter
// is still sniffed; plenty of "CSV" exports from forensic tools are actually
// tab or semicolon separated.
func loadDelimited(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = stripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty file: %s", path)
	}

	delim := detectDelimiter(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1 // forensic exports routinely have ragged rows

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records in %s", path)
	}

	header := records[0]
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	table := &Table{
		Source:  sourceName(path),
		Path:    path,
		Columns: columns,
	}
	for _, rec := range records[1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// detectDelimiter scores each candidate over the first few non-empty lines.
// A delimiter qualifies when it appears on every sampled line with a
// consistent count; the highest consistent count wins, candidate order
// breaking ties.
func detectDelimiter(data []byte) rune {
	lines := sampleLines(data, 10)
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestCount := 0
	for _, delim := range candidateDelimiters {
		count := strings.Count(lines[0], string(delim))
		if count == 0 {
			continue
		}
		consistent := true
		for _, line := range lines[1:] {
			// Quoted fields can shift counts by a little; require the
			// delimiter to at least appear on every line.
			if strings.Count(line, string(delim)) == 0 {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best = delim
			bestCount = count
		}
	}
	return best
}

// sampleLines returns up to n non-empty lines from data.
func sampleLines(data []byte, n int) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// stripBOM removes a UTF-8 byte order mark if present. Windows tooling loves
// to prepend one, which would otherwise corrupt the first column name.
func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}
