// Package table holds the row model shared by every table store backend.
package table

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is one data row keyed by header name. Column order follows the
// header row of the sheet it came from.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord builds a Record from parallel column and value slices. Missing
// values are stored as "".
func NewRecord(columns []string, values []any) Record {
	r := Record{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for i, col := range columns {
		if _, dup := r.values[col]; dup {
			continue
		}
		var v any = ""
		if i < len(values) && values[i] != nil {
			v = values[i]
		}
		r.columns = append(r.columns, col)
		r.values[col] = v
	}
	return r
}

// R is shorthand for building a Record from alternating column/value pairs.
func R(pairs ...any) Record {
	cols := make([]string, 0, len(pairs)/2)
	vals := make([]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		cols = append(cols, fmt.Sprint(pairs[i]))
		vals = append(vals, pairs[i+1])
	}
	return NewRecord(cols, vals)
}

// Columns returns the record's column names in header order.
func (r Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Get returns the raw value for column and whether the column exists.
func (r Record) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Value returns the raw value for column, or "" if the column is absent.
func (r Record) Value(column string) any {
	if v, ok := r.values[column]; ok {
		return v
	}
	return ""
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.columns)
}

// RecordsFromRows turns a header row followed by data rows into Records.
// Short rows are padded with "", cells beyond the header are dropped, and
// rows at the tail of the sheet whose cells are all empty are ignored.
func RecordsFromRows(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	data := trimBlankTail(rows[1:])
	records := make([]Record, 0, len(data))
	for _, row := range data {
		values := make([]any, len(header))
		for i := range header {
			if i < len(row) {
				values[i] = ParseScalar(row[i])
			} else {
				values[i] = ""
			}
		}
		records = append(records, NewRecord(header, values))
	}
	return records
}

// ParseScalar converts a displayed cell into its scalar: integers become
// int64, other numbers float64, everything else stays a string.
func ParseScalar(s string) any {
	if s == "" {
		return ""
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return i
	}
	if stderrors.Is(err, strconv.ErrRange) {
		// Integers beyond int64 stay exact as text.
		return s
	}
	// Hex and p-exponent floats, NaN and Inf are text in a sheet.
	if strings.ContainsAny(s, "nNxXpP") {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// StringRows renders an API value grid as strings.
func StringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rows[i][j] = fmt.Sprintf("%v", cell)
			}
		}
	}
	return rows
}

func trimBlankTail(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isBlank(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
