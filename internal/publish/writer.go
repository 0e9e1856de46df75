// Package publish writes joined rows into the target sheet. Columns A-F are
// owned by this package and fully replaced on every run; column G belongs to
// whoever consumes the sheet and is only seeded once.
package publish

import (
	"context"
	"strings"

	"sheets_join/internal/errors"
	"sheets_join/internal/join"
	"sheets_join/internal/table"

	"github.com/rs/zerolog"
)

const (
	ManagedRange = "A:F"
	HeaderCell   = "G1"
	FormulaCell  = "G2"

	DateIntHeader  = "date_int"
	DateIntFormula = "=ARRAYFORMULA(IF(LEN(B2:B)=0,,INT(B2:B)))"

	DefaultRows = 1000
	DefaultCols = 10
)

// Store is the subset of table.Store the writer needs.
type Store interface {
	EnsureSubTable(ctx context.Context, tableID, subTable string, rows, cols int) (bool, error)
	ClearRange(ctx context.Context, tableID, subTable, rng string) error
	WriteRange(ctx context.Context, tableID, subTable, start string, values [][]any, mode table.InputMode) error
	TryReadCell(ctx context.Context, tableID, subTable, cell string) (string, bool)
}

// Options tune the writer.
type Options struct {
	// ReseedNonFormula lets the writer replace a plain value in G2 with the
	// formula. By default anything already in G2 is left alone.
	ReseedNonFormula bool
}

// Result summarizes one Publish call.
type Result struct {
	Created       bool
	Skipped       bool
	RowsWritten   int
	HeaderSeeded  bool
	FormulaSeeded bool
}

// Writer publishes joined rows into a target sheet.
type Writer struct {
	store Store
	opts  Options
}

// NewWriter returns a Writer backed by store.
func NewWriter(store Store, opts Options) *Writer {
	return &Writer{store: store, opts: opts}
}

// Publish replaces columns A-F of subTable with the header and rows, then
// seeds the G1 label and G2 formula if they are missing. An empty rows slice
// leaves the target untouched. Any store failure aborts with a WriteFailure.
func (w *Writer) Publish(ctx context.Context, tableID, subTable string, rows []join.JoinedRow) (Result, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("table_id", tableID).
		Str("sub_table", subTable).
		Logger()
	var res Result

	created, err := w.store.EnsureSubTable(ctx, tableID, subTable, DefaultRows, DefaultCols)
	if err != nil {
		return res, errors.NewWriteFailure("ensure sub-table", tableID, subTable, err)
	}
	res.Created = created
	if created {
		logger.Info().Int("rows", DefaultRows).Int("cols", DefaultCols).Msg("Created target sheet")
	}

	if len(rows) == 0 {
		logger.Warn().Msg("No rows to write; leaving target sheet untouched")
		res.Skipped = true
		return res, nil
	}

	logger.Debug().Str("range", ManagedRange).Msg("Clearing managed columns")
	if err := w.store.ClearRange(ctx, tableID, subTable, ManagedRange); err != nil {
		return res, errors.NewWriteFailure("clear "+ManagedRange, tableID, subTable, err)
	}

	values := make([][]any, 0, len(rows)+1)
	header := make([]any, len(join.Header))
	for i, h := range join.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range rows {
		values = append(values, r.Values())
	}

	logger.Info().Int("rows", len(rows)).Msg("Writing rows in one batch")
	if err := w.store.WriteRange(ctx, tableID, subTable, "A1", values, table.Raw); err != nil {
		return res, errors.NewWriteFailure("write rows", tableID, subTable, err)
	}
	res.RowsWritten = len(rows)

	if v, ok := w.store.TryReadCell(ctx, tableID, subTable, HeaderCell); !ok || strings.TrimSpace(v) == "" {
		if err := w.store.WriteRange(ctx, tableID, subTable, HeaderCell, [][]any{{DateIntHeader}}, table.Raw); err != nil {
			return res, errors.NewWriteFailure("seed "+HeaderCell, tableID, subTable, err)
		}
		res.HeaderSeeded = true
		logger.Info().Str("cell", HeaderCell).Msg("Seeded date_int header")
	}

	seed, existing := w.needsFormula(ctx, tableID, subTable)
	if seed {
		if err := w.store.WriteRange(ctx, tableID, subTable, FormulaCell, [][]any{{DateIntFormula}}, table.UserEntered); err != nil {
			return res, errors.NewWriteFailure("seed "+FormulaCell, tableID, subTable, err)
		}
		res.FormulaSeeded = true
		logger.Info().Str("cell", FormulaCell).Msg("Seeded date_int formula")
	} else if !IsFormula(existing) {
		logger.Warn().Str("cell", FormulaCell).Str("value", existing).Msg("Cell holds a plain value; not seeding formula")
	}

	logger.Info().Int("rows", res.RowsWritten).Msg("Target sheet updated (columns A-F)")
	return res, nil
}

func (w *Writer) needsFormula(ctx context.Context, tableID, subTable string) (bool, string) {
	v, ok := w.store.TryReadCell(ctx, tableID, subTable, FormulaCell)
	if !ok || strings.TrimSpace(v) == "" {
		return true, ""
	}
	if IsFormula(v) {
		return false, v
	}
	return w.opts.ReseedNonFormula, v
}

// IsFormula reports whether a cell's content is a formula.
func IsFormula(v string) bool {
	return strings.HasPrefix(v, "=")
}
