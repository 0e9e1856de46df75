package publish_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"sheets_join/internal/errors"
	"sheets_join/internal/join"
	"sheets_join/internal/publish"
	"sheets_join/internal/table"
	"sheets_join/internal/table/tabletest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const targetID = "target"

func sampleRows() []join.JoinedRow {
	return []join.JoinedRow{
		{ID: "u1", Date: "2024-01-01", Brand: "X", CourseType: "video", Title: "Intro", Vertical: "video"},
		{ID: "u9", Date: "2024-01-02", Brand: "Y", CourseType: "live", Title: "", Vertical: "live"},
	}
}

func TestPublish_CreatesSheetAndSeedsColumnG(t *testing.T) {
	store := tabletest.NewMemStore()
	store.AddTable(targetID)

	res, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)

	assert.True(t, res.Created)
	assert.True(t, res.HeaderSeeded)
	assert.True(t, res.FormulaSeeded)
	assert.Equal(t, 2, res.RowsWritten)

	assert.Equal(t, [][]string{
		{"id", "date", "brand", "course_type", "title", "vertical", publish.DateIntHeader},
		{"u1", "2024-01-01", "X", "video", "Intro", "video", publish.DateIntFormula},
		{"u9", "2024-01-02", "Y", "live", "", "live"},
	}, store.Rows(targetID, "Sheet2"))
}

func TestPublish_ClearsStaleRowsButKeepsColumnG(t *testing.T) {
	store := tabletest.NewMemStore()
	store.Put(targetID, "Sheet2", [][]string{
		{"id", "date", "brand", "course_type", "title", "vertical", "my label", "notes"},
		{"old1", "d", "b", "c", "t", "v", "=MY(FORMULA)", "keep"},
		{"old2", "d", "b", "c", "t", "v", "", "keep"},
		{"old3", "d", "b", "c", "t", "v", "", "keep"},
	})

	rows := sampleRows()[:1]
	res, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), targetID, "Sheet2", rows)
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.False(t, res.HeaderSeeded)
	assert.False(t, res.FormulaSeeded)
	assert.Equal(t, [][]string{
		{"id", "date", "brand", "course_type", "title", "vertical", "my label", "notes"},
		{"u1", "2024-01-01", "X", "video", "Intro", "video", "=MY(FORMULA)", "keep"},
		{"", "", "", "", "", "", "", "keep"},
		{"", "", "", "", "", "", "", "keep"},
	}, store.Rows(targetID, "Sheet2"))
}

func TestPublish_LeavesNonFormulaValueInG2(t *testing.T) {
	store := tabletest.NewMemStore()
	store.Put(targetID, "Sheet2", [][]string{
		{"id", "date", "brand", "course_type", "title", "vertical", "date_int"},
		{"x", "x", "x", "x", "x", "x", "manual"},
	})

	res, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)

	assert.False(t, res.FormulaSeeded)
	assert.Equal(t, "manual", store.Cell(targetID, "Sheet2", "G2"))
	assert.Equal(t, "u9", store.Cell(targetID, "Sheet2", "A3"))
}

func TestPublish_ReseedNonFormulaOptIn(t *testing.T) {
	store := tabletest.NewMemStore()
	store.Put(targetID, "Sheet2", [][]string{
		{"", "", "", "", "", "", "date_int"},
		{"", "", "", "", "", "", "45292"},
	})

	res, err := publish.NewWriter(store, publish.Options{ReseedNonFormula: true}).
		Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)

	assert.True(t, res.FormulaSeeded)
	assert.Equal(t, publish.DateIntFormula, store.Cell(targetID, "Sheet2", "G2"))
}

func TestPublish_EmptyRowsTouchNothing(t *testing.T) {
	store := tabletest.NewMemStore()
	existing := [][]string{
		{"id", "date", "brand", "course_type", "title", "vertical"},
		{"u1", "2024-01-01", "X", "video", "Intro", "video"},
	}
	store.Put(targetID, "Sheet2", existing)

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	res, err := publish.NewWriter(store, publish.Options{}).Publish(ctx, targetID, "Sheet2", nil)
	require.NoError(t, err)

	assert.True(t, res.Skipped)
	assert.Empty(t, store.Calls())
	assert.Equal(t, existing, store.Rows(targetID, "Sheet2"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestPublish_IsIdempotent(t *testing.T) {
	store := tabletest.NewMemStore()
	store.AddTable(targetID)
	w := publish.NewWriter(store, publish.Options{})

	_, err := w.Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)
	first := store.Rows(targetID, "Sheet2")
	store.ResetCalls()

	res, err := w.Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)

	assert.Equal(t, first, store.Rows(targetID, "Sheet2"))
	assert.False(t, res.HeaderSeeded)
	assert.False(t, res.FormulaSeeded)
	for _, c := range store.Calls() {
		assert.NotEqual(t, publish.FormulaCell, c.Range, "formula cell rewritten")
	}
}

func TestPublish_SingleBulkWrite(t *testing.T) {
	store := tabletest.NewMemStore()
	store.Put(targetID, "Sheet2", [][]string{{"", "", "", "", "", "", "date_int"}, {"", "", "", "", "", "", "=X()"}})

	_, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.NoError(t, err)

	calls := store.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "clear", calls[0].Op)
	assert.Equal(t, publish.ManagedRange, calls[0].Range)
	assert.Equal(t, "write", calls[1].Op)
	assert.Equal(t, "A1", calls[1].Range)
	assert.Equal(t, table.Raw, calls[1].Mode)
	assert.Equal(t, 3, calls[1].Rows)
}

func TestPublish_StoreFailureIsWriteFailure(t *testing.T) {
	store := tabletest.NewMemStore()
	store.AddTable(targetID)
	denied := &errors.TableError{Kind: errors.KindAccessDenied, TableID: targetID}
	store.Fail = func(c tabletest.Call) error {
		if c.Op == "write" {
			return denied
		}
		return nil
	}

	_, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), targetID, "Sheet2", sampleRows())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrWriteFailure))
	assert.True(t, stderrors.Is(err, errors.ErrAccessDenied))
}

func TestPublish_MissingTable(t *testing.T) {
	store := tabletest.NewMemStore()

	_, err := publish.NewWriter(store, publish.Options{}).Publish(context.Background(), "nope", "Sheet2", sampleRows())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrSourceUnavailable))
}

func TestIsFormula(t *testing.T) {
	assert.True(t, publish.IsFormula("=A1"))
	assert.False(t, publish.IsFormula("45292"))
	assert.False(t, publish.IsFormula(""))
}
