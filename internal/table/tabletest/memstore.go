// Package tabletest provides an in-memory table.Store for tests.
package tabletest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sheets_join/internal/errors"
	"sheets_join/internal/table"
)

// Call records one mutating operation against the store.
type Call struct {
	Op       string
	TableID  string
	SubTable string
	Range    string
	Mode     table.InputMode
	Rows     int
}

type sheet struct {
	cells [][]string
	order int
}

// MemStore keeps every sheet as a grid of strings. Formula cells hold their
// formula text, which is what TryReadCell returns for them.
type MemStore struct {
	mu     sync.Mutex
	tables map[string]map[string]*sheet
	calls  []Call

	// Fail, when set, is consulted before every mutating call; a non-nil
	// return value aborts the call with that error.
	Fail func(c Call) error
}

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{tables: make(map[string]map[string]*sheet)}
}

// AddTable registers an empty table.
func (m *MemStore) AddTable(tableID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[tableID]; !ok {
		m.tables[tableID] = make(map[string]*sheet)
	}
}

// Put replaces the contents of a sheet, creating the table and sheet if needed.
func (m *MemStore) Put(tableID, subTable string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		t = make(map[string]*sheet)
		m.tables[tableID] = t
	}
	grid := make([][]string, len(rows))
	for i, r := range rows {
		grid[i] = append([]string(nil), r...)
	}
	if s, ok := t[subTable]; ok {
		s.cells = grid
		return
	}
	t[subTable] = &sheet{cells: grid, order: len(t)}
}

// Rows returns a copy of a sheet's grid with trailing empty cells trimmed.
func (m *MemStore) Rows(tableID, subTable string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.tables[tableID][subTable]
	if s == nil {
		return nil
	}
	out := make([][]string, 0, len(s.cells))
	for _, r := range s.cells {
		end := len(r)
		for end > 0 && r[end-1] == "" {
			end--
		}
		out = append(out, append([]string(nil), r[:end]...))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

// Cell returns the raw content of a single cell.
func (m *MemStore) Cell(tableID, subTable, cell string) string {
	v, _ := m.TryReadCell(context.Background(), tableID, subTable, cell)
	return v
}

// Calls returns the mutating operations performed so far.
func (m *MemStore) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// ResetCalls forgets recorded calls.
func (m *MemStore) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *MemStore) lookup(op, tableID, subTable string) (*sheet, error) {
	t, ok := m.tables[tableID]
	if !ok {
		return nil, &errors.TableError{Kind: errors.KindSourceUnavailable, Op: op, TableID: tableID}
	}
	s, ok := t[subTable]
	if !ok {
		return nil, &errors.TableError{
			Kind:      errors.KindSubTableNotFound,
			Op:        op,
			TableID:   tableID,
			SubTable:  subTable,
			Available: m.names(t),
		}
	}
	return s, nil
}

func (m *MemStore) names(t map[string]*sheet) []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return t[names[i]].order < t[names[j]].order })
	return names
}

func (m *MemStore) record(c Call) error {
	m.calls = append(m.calls, c)
	if m.Fail != nil {
		return m.Fail(c)
	}
	return nil
}

// SubTables implements table.Store.
func (m *MemStore) SubTables(_ context.Context, tableID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return nil, &errors.TableError{Kind: errors.KindSourceUnavailable, Op: "list sub-tables", TableID: tableID}
	}
	return m.names(t), nil
}

// Header implements table.Store.
func (m *MemStore) Header(_ context.Context, tableID, subTable string) ([]string, error) {
	m.mu.Lock()
	s, err := m.lookup("read header", tableID, subTable)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	rows := m.Rows(tableID, subTable)
	if len(rows) == 0 || s == nil {
		return nil, nil
	}
	return rows[0], nil
}

// Records implements table.Store.
func (m *MemStore) Records(_ context.Context, tableID, subTable string) ([]table.Record, error) {
	m.mu.Lock()
	_, err := m.lookup("read records", tableID, subTable)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return table.RecordsFromRows(m.Rows(tableID, subTable)), nil
}

// EnsureSubTable implements table.Store.
func (m *MemStore) EnsureSubTable(_ context.Context, tableID, subTable string, rows, cols int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[tableID]
	if !ok {
		return false, &errors.TableError{Kind: errors.KindSourceUnavailable, Op: "ensure sub-table", TableID: tableID}
	}
	if _, ok := t[subTable]; ok {
		return false, nil
	}
	if err := m.record(Call{Op: "create", TableID: tableID, SubTable: subTable, Rows: rows}); err != nil {
		return false, err
	}
	t[subTable] = &sheet{order: len(t)}
	return true, nil
}

// ClearRange implements table.Store for whole-column spans such as "A:F".
func (m *MemStore) ClearRange(_ context.Context, tableID, subTable, rng string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup("clear range", tableID, subTable)
	if err != nil {
		return err
	}
	first, last, err := table.ParseColumnSpan(rng)
	if err != nil {
		return err
	}
	if err := m.record(Call{Op: "clear", TableID: tableID, SubTable: subTable, Range: rng}); err != nil {
		return err
	}
	for _, row := range s.cells {
		for c := first - 1; c < last && c < len(row); c++ {
			row[c] = ""
		}
	}
	return nil
}

// WriteRange implements table.Store.
func (m *MemStore) WriteRange(_ context.Context, tableID, subTable, start string, values [][]any, mode table.InputMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup("write range", tableID, subTable)
	if err != nil {
		return err
	}
	col, row, err := table.ParseCell(start)
	if err != nil {
		return err
	}
	if err := m.record(Call{Op: "write", TableID: tableID, SubTable: subTable, Range: start, Mode: mode, Rows: len(values)}); err != nil {
		return err
	}
	for i, vals := range values {
		r := row - 1 + i
		for len(s.cells) <= r {
			s.cells = append(s.cells, nil)
		}
		for j, v := range vals {
			c := col - 1 + j
			for len(s.cells[r]) <= c {
				s.cells[r] = append(s.cells[r], "")
			}
			text := ""
			if v != nil {
				text = fmt.Sprint(v)
			}
			s.cells[r][c] = text
		}
	}
	return nil
}

// TryReadCell implements table.Store.
func (m *MemStore) TryReadCell(_ context.Context, tableID, subTable, cell string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup("read cell", tableID, subTable)
	if err != nil {
		return "", false
	}
	col, row, err := table.ParseCell(cell)
	if err != nil {
		return "", false
	}
	if row > len(s.cells) || col > len(s.cells[row-1]) {
		return "", false
	}
	v := s.cells[row-1][col-1]
	return v, v != ""
}

var _ table.Store = (*MemStore)(nil)
