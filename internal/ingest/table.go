// Package ingest discovers forensic export files under a directory tree and
// parses them into uniform tables.
package ingest

import (
	"fmt"
	"strings"
)

// Row is one parsed record, keyed by column name.
type Row map[string]string

// Table is the uniform tabular structure every supported format parses into.
type Table struct {
	// Source is the file name without extension, used to label findings.
	Source string
	// Path is the full path the table was loaded from.
	Path string
	// Columns preserves the original column order from the file header.
	Columns []string
	// Rows holds one Row per data line.
	Rows []Row
}

// Skipped records a file that could not be parsed. Ingestion continues past
// these; they are surfaced in logs and the report.
type Skipped struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

const (
	previewMaxCols    = 10
	previewCellMaxLen = 80
)

// Preview renders up to maxRows rows as pipe-delimited text for LLM prompts.
// Wide tables are cut at ten columns and long cells truncated so a single
// pathological export cannot blow up the prompt.
func (t *Table) Preview(maxRows int) string {
	cols := t.Columns
	clipped := false
	if len(cols) > previewMaxCols {
		cols = cols[:previewMaxCols]
		clipped = true
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))
	if clipped {
		fmt.Fprintf(&b, " | ... (%d more columns)", len(t.Columns)-previewMaxCols)
	}
	b.WriteString("\n")

	for i, row := range t.Rows {
		if i >= maxRows {
			fmt.Fprintf(&b, "... (%d more rows)\n", len(t.Rows)-maxRows)
			break
		}
		cells := make([]string, len(cols))
		for j, col := range cols {
			cells[j] = truncateCell(row[col])
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	return b.String()
}

func truncateCell(s string) string {
	if len(s) <= previewCellMaxLen {
		return s
	}
	return s[:previewCellMaxLen] + "..."
}
