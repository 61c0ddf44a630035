// Package tabular detects and loads heterogeneous tabular exports
// (delimited text, spreadsheets, pre-structured records) into a single
// generic table shape consumed by the schema normalizer.
package tabular

import "strings"

// Table is a generic tabular structure: ordered column names and rows
// of string cells. It is transient; rows exist only between loading
// and normalization.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column, or -1.
// Comparison is exact; column names are whitespace-trimmed on load.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns the value at (row, col), or "" when the row is ragged
// and does not reach that column.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return ""
	}
	r := t.Rows[row]
	if col >= len(r) {
		return ""
	}
	return r[col]
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// hasUsableColumn reports whether at least one column name is
// non-empty. This is the minimum-viable-columns gate that rejects
// garbled parses: a strategy that "succeeds" on the wrong format tends
// to produce one blank mega-column.
func (t *Table) hasUsableColumn() bool {
	for _, c := range t.Columns {
		if strings.TrimSpace(c) != "" {
			return true
		}
	}
	return false
}
