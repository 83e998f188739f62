// Package dataset holds raw tabular data as it arrives from a source: a
// header and rows of string cells, before any cleaning or typing.
package dataset

import (
	"strings"

	"github.com/sakif/social-analytics/internal/apperror"
)

// Table is a named raw table. Cells are kept as text; a cell is missing
// when IsMissing reports so. Tables are treated as values: operations that
// change data return a new Table.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// New builds a Table, copying header and rows so the caller's slices can be
// reused. Short rows are padded with empty (missing) cells.
func New(name string, header []string, rows [][]string) *Table {
	h := make([]string, len(header))
	for i, col := range header {
		h[i] = strings.TrimSpace(col)
	}
	t := &Table{Name: name, Header: h, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		t.Append(row)
	}
	return t
}

// Append adds a copy of row, padded or truncated to the header width.
func (t *Table) Append(row []string) {
	r := make([]string, len(t.Header))
	copy(r, row)
	t.Rows = append(t.Rows, r)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of a column, or a SchemaError naming it.
func (t *Table) Column(name string) (int, error) {
	for i, col := range t.Header {
		if col == name {
			return i, nil
		}
	}
	return -1, apperror.SchemaError(t.Name, name)
}

// Require resolves every named column, failing on the first absent one.
func (t *Table) Require(names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		idx[name] = i
	}
	return idx, nil
}

// Cell returns the trimmed cell text and whether it holds a value.
func (t *Table) Cell(row, col int) (string, bool) {
	v := strings.TrimSpace(t.Rows[row][col])
	if IsMissing(v) {
		return "", false
	}
	return v, true
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return New(t.Name, t.Header, t.Rows)
}

// missingMarkers are the textual spellings of "no value" accepted in exports.
var missingMarkers = map[string]struct{}{
	"":     {},
	"NaN":  {},
	"nan":  {},
	"NA":   {},
	"N/A":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

// IsMissing reports whether trimmed cell text denotes a missing value.
func IsMissing(v string) bool {
	_, ok := missingMarkers[strings.TrimSpace(v)]
	return ok
}
