package table

import (
	"context"
	"fmt"
	"strings"
)

// InputMode selects how written cells are interpreted by the store.
type InputMode string

const (
	// Raw stores values literally; "=1+1" stays text.
	Raw InputMode = "RAW"
	// UserEntered parses values as if typed into the UI, so formulas evaluate.
	UserEntered InputMode = "USER_ENTERED"
)

// Store is the full set of operations a table backend provides. Consumers
// declare the subset they need.
type Store interface {
	SubTables(ctx context.Context, tableID string) ([]string, error)
	Header(ctx context.Context, tableID, subTable string) ([]string, error)
	Records(ctx context.Context, tableID, subTable string) ([]Record, error)
	EnsureSubTable(ctx context.Context, tableID, subTable string, rows, cols int) (bool, error)
	ClearRange(ctx context.Context, tableID, subTable, rng string) error
	WriteRange(ctx context.Context, tableID, subTable, start string, values [][]any, mode InputMode) error
	TryReadCell(ctx context.Context, tableID, subTable, cell string) (string, bool)
}

// A1 qualifies a range with its sheet name, quoting the name so spaces and
// apostrophes survive.
func A1(subTable, rng string) string {
	quoted := "'" + strings.ReplaceAll(subTable, "'", "''") + "'"
	if rng == "" {
		return quoted
	}
	return quoted + "!" + rng
}

// ColumnName converts a 1-based column number to its letter form (1 -> A, 27 -> AA).
func ColumnName(n int) string {
	var name []byte
	for n > 0 {
		n--
		name = append([]byte{byte('A' + n%26)}, name...)
		n /= 26
	}
	return string(name)
}

// ColumnNumber converts a column letter form back to its 1-based number.
func ColumnNumber(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	n := 0
	for _, c := range strings.ToUpper(name) {
		if c < 'A' || c > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		n = n*26 + int(c-'A'+1)
	}
	return n, nil
}

// ParseColumnSpan parses a whole-column range such as "A:F" into 1-based
// first and last column numbers.
func ParseColumnSpan(rng string) (int, int, error) {
	from, to, ok := strings.Cut(rng, ":")
	if !ok {
		return 0, 0, fmt.Errorf("range %q is not a column span", rng)
	}
	first, err := ColumnNumber(from)
	if err != nil {
		return 0, 0, err
	}
	last, err := ColumnNumber(to)
	if err != nil {
		return 0, 0, err
	}
	if last < first {
		first, last = last, first
	}
	return first, last, nil
}

// ParseCell splits an A1 cell reference such as "G2" into 1-based column and row.
func ParseCell(cell string) (int, int, error) {
	i := strings.IndexFunc(cell, func(r rune) bool { return r >= '0' && r <= '9' })
	if i <= 0 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", cell)
	}
	col, err := ColumnNumber(cell[:i])
	if err != nil {
		return 0, 0, err
	}
	var row int
	if _, err := fmt.Sscanf(cell[i:], "%d", &row); err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", cell)
	}
	return col, row, nil
}
