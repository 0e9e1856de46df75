// Package xlsx implements the table store contract on local Excel workbooks.
// The table id is the workbook path and a sub-table is a worksheet.
package xlsx

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"sheets_join/internal/errors"
	"sheets_join/internal/table"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Store opens the workbook for every call and saves after each mutation, so
// it holds no state between operations.
type Store struct{}

// NewStore returns a workbook-backed store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) open(op, path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		kind := errors.KindRemoteAPI
		if stderrors.Is(err, fs.ErrNotExist) {
			kind = errors.KindSourceUnavailable
		} else if stderrors.Is(err, fs.ErrPermission) {
			kind = errors.KindAccessDenied
		}
		return nil, &errors.TableError{Kind: kind, Op: op, TableID: path, Err: err}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	return f, nil
}

func (s *Store) openSheet(op, path, sheet string) (*excelize.File, error) {
	f, err := s.open(op, path)
	if err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		available := f.GetSheetList()
		_ = f.Close()
		return nil, &errors.TableError{
			Kind:      errors.KindSubTableNotFound,
			Op:        op,
			TableID:   path,
			SubTable:  sheet,
			Available: available,
		}
	}
	return f, nil
}

func (s *Store) save(op, path, sheet string, f *excelize.File) error {
	if err := f.Save(); err != nil {
		kind := errors.KindRemoteAPI
		if stderrors.Is(err, fs.ErrPermission) {
			kind = errors.KindAccessDenied
		}
		return &errors.TableError{Kind: kind, Op: op, TableID: path, SubTable: sheet, Err: err}
	}
	return nil
}

// SubTables lists worksheet names in workbook order.
func (s *Store) SubTables(_ context.Context, path string) ([]string, error) {
	f, err := s.open("list sub-tables", path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Header returns the first row of a worksheet.
func (s *Store) Header(ctx context.Context, path, sheet string) ([]string, error) {
	rows, err := s.rows("read header", path, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Records reads every row of a worksheet, using the first row as header.
func (s *Store) Records(_ context.Context, path, sheet string) ([]table.Record, error) {
	rows, err := s.rows("read records", path, sheet)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("workbook", path).Str("sheet", sheet).Int("rows", len(rows)).Msg("Read worksheet")
	return table.RecordsFromRows(rows), nil
}

func (s *Store) rows(op, path, sheet string) ([][]string, error) {
	f, err := s.openSheet(op, path, sheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
	}
	return rows, nil
}

// EnsureSubTable adds the worksheet when it is missing. Workbooks have no
// fixed grid, so rows and cols are ignored.
func (s *Store) EnsureSubTable(_ context.Context, path, sheet string, _, _ int) (bool, error) {
	const op = "create sub-table"
	f, err := s.open(op, path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(sheet); err == nil && idx != -1 {
		return false, nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return false, &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
	}
	if err := s.save(op, path, sheet, f); err != nil {
		return false, err
	}
	return true, nil
}

// ClearRange empties every cell of a whole-column span such as "A:F".
func (s *Store) ClearRange(_ context.Context, path, sheet, rng string) error {
	const op = "clear range"
	first, last, err := table.ParseColumnSpan(rng)
	if err != nil {
		return &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
	}

	f, err := s.openSheet(op, path, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
	}
	for r := range rows {
		for c := first; c <= last; c++ {
			cell, _ := excelize.CoordinatesToCellName(c, r+1)
			if err := f.SetCellValue(sheet, cell, nil); err != nil {
				return &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
			}
		}
	}
	return s.save(op, path, sheet, f)
}

// WriteRange writes values starting at start. In UserEntered mode strings
// beginning with "=" are stored as formulas.
func (s *Store) WriteRange(_ context.Context, path, sheet, start string, values [][]any, mode table.InputMode) error {
	const op = "update range"
	col, row, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
	}

	f, err := s.openSheet(op, path, sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, vals := range values {
		for j, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(col+j, row+i)
			if err := setCell(f, sheet, cell, v, mode); err != nil {
				return &errors.TableError{Kind: errors.KindRemoteAPI, Op: op, TableID: path, SubTable: sheet, Err: err}
			}
		}
	}
	return s.save(op, path, sheet, f)
}

func setCell(f *excelize.File, sheet, cell string, v any, mode table.InputMode) error {
	if str, ok := v.(string); ok && mode == table.UserEntered && strings.HasPrefix(str, "=") {
		return f.SetCellFormula(sheet, cell, strings.TrimPrefix(str, "="))
	}
	return f.SetCellValue(sheet, cell, v)
}

// TryReadCell returns the formula (with its leading "=") for formula cells
// and the displayed value otherwise. Failures read as absent.
func (s *Store) TryReadCell(_ context.Context, path, sheet, cell string) (string, bool) {
	f, err := s.openSheet("read cell", path, sheet)
	if err != nil {
		return "", false
	}
	defer f.Close()

	if formula, err := f.GetCellFormula(sheet, cell); err == nil && formula != "" {
		return "=" + formula, true
	}
	v, err := f.GetCellValue(sheet, cell)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

var _ table.Store = (*Store)(nil)
