package model

// Table is a raw tabular source loaded from CSV. Column names are already
// normalized (lower-cased, trimmed, spaces to underscores) by the loader.
type Table struct {
	Name    string
	Path    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of a column, -1 when absent.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Cell returns the value at row/column index, "" when the row is ragged.
func (t *Table) Cell(row int, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// ResolveAlias renames the first present alias to the canonical column name
// and reports whether any alias matched. Aliases are tried in priority
// order, so a preferred spelling wins over later fallbacks.
func (t *Table) ResolveAlias(canonical string, aliases []string) bool {
	for _, a := range aliases {
		if i := t.Index(a); i >= 0 {
			t.Columns[i] = canonical
			return true
		}
	}
	return false
}
