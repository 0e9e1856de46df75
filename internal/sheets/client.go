package sheets

import (
	"context"
	"fmt"

	"sheets_join/internal/errors"
	"sheets_join/internal/table"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client talks to the Google Sheets API. A table id is a spreadsheet id and
// a sub-table is a worksheet title.
type Client struct {
	service  *sheets.Service
	identity string
}

// NewClient authenticates with service-account credentials.
func NewClient(ctx context.Context, creds *Credentials) (*Client, error) {
	gc, err := google.CredentialsFromJSONWithParams(ctx, creds.JSON, google.CredentialsParams{
		Scopes: []string{sheets.SpreadsheetsScope},
	})
	if err != nil {
		return nil, errors.NewCredentialError("parse credentials", err)
	}

	log.Debug().Str("identity", creds.Identity).Str("source", creds.Source).Msg("Creating sheets service")
	return NewClientWithOptions(ctx, creds.Identity, option.WithCredentials(gc))
}

// NewClientWithOptions builds a Client from raw client options. identity is
// only used in AccessDenied remediation messages.
func NewClientWithOptions(ctx context.Context, identity string, opts ...option.ClientOption) (*Client, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewCredentialError("create sheets service", fmt.Errorf("failed to create sheets service: %w", err))
	}

	return &Client{
		service:  service,
		identity: identity,
	}, nil
}

// Identity returns the service account e-mail the client acts as.
func (c *Client) Identity() string {
	return c.identity
}

// SubTables lists worksheet titles in spreadsheet order.
func (c *Client) SubTables(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := c.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.classify("list sub-tables", spreadsheetID, "", err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

// Header returns the first row of a worksheet.
func (c *Client) Header(ctx context.Context, spreadsheetID, sheetName string) ([]string, error) {
	if err := c.requireSheet(ctx, "read header", spreadsheetID, sheetName); err != nil {
		return nil, err
	}
	values, err := c.readValues(ctx, "read header", spreadsheetID, sheetName, table.A1(sheetName, "1:1"))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values[0], nil
}

// Records reads every row of a worksheet, using the first row as header.
func (c *Client) Records(ctx context.Context, spreadsheetID, sheetName string) ([]table.Record, error) {
	if err := c.requireSheet(ctx, "read records", spreadsheetID, sheetName); err != nil {
		return nil, err
	}
	values, err := c.readValues(ctx, "read records", spreadsheetID, sheetName, table.A1(sheetName, ""))
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("sheet", sheetName).
		Int("rows", len(values)).
		Msg("Retrieved sheet values")
	return table.RecordsFromRows(values), nil
}

// EnsureSubTable creates the worksheet if it is missing and reports whether
// it did so.
func (c *Client) EnsureSubTable(ctx context.Context, spreadsheetID, sheetName string, rows, cols int) (bool, error) {
	titles, err := c.SubTables(ctx, spreadsheetID)
	if err != nil {
		return false, err
	}
	for _, t := range titles {
		if t == sheetName {
			return false, nil
		}
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: sheetName,
					GridProperties: &sheets.GridProperties{
						RowCount:    int64(rows),
						ColumnCount: int64(cols),
					},
				},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, c.classify("create sub-table", spreadsheetID, sheetName, err)
	}
	return true, nil
}

// ClearRange clears values (not formatting) in rng, e.g. "A:F".
func (c *Client) ClearRange(ctx context.Context, spreadsheetID, sheetName, rng string) error {
	_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, table.A1(sheetName, rng), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return c.classify("clear range", spreadsheetID, sheetName, err)
	}
	return nil
}

// WriteRange writes values starting at the cell start in a single request.
func (c *Client) WriteRange(ctx context.Context, spreadsheetID, sheetName, start string, values [][]any, mode table.InputMode) error {
	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := c.service.Spreadsheets.Values.Update(spreadsheetID, table.A1(sheetName, start), valueRange).
		ValueInputOption(string(mode)).
		Context(ctx).
		Do()
	if err != nil {
		return c.classify("update range", spreadsheetID, sheetName, err)
	}

	return nil
}

// TryReadCell returns a cell's content with formulas rendered as their
// source text. Any failure, including an empty cell, reads as absent.
func (c *Client) TryReadCell(ctx context.Context, spreadsheetID, sheetName, cell string) (string, bool) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, table.A1(sheetName, cell)).
		ValueRenderOption("FORMULA").
		Context(ctx).
		Do()
	if err != nil {
		log.Debug().Err(err).Str("cell", cell).Msg("Cell read failed; treating as absent")
		return "", false
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 || resp.Values[0][0] == nil {
		return "", false
	}
	v := fmt.Sprintf("%v", resp.Values[0][0])
	return v, v != ""
}

func (c *Client) readValues(ctx context.Context, op, spreadsheetID, sheetName, rng string) ([][]string, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, c.classify(op, spreadsheetID, sheetName, err)
	}
	return table.StringRows(resp.Values), nil
}

func (c *Client) requireSheet(ctx context.Context, op, spreadsheetID, sheetName string) error {
	titles, err := c.SubTables(ctx, spreadsheetID)
	if err != nil {
		return err
	}
	for _, t := range titles {
		if t == sheetName {
			return nil
		}
	}
	return &errors.TableError{
		Kind:      errors.KindSubTableNotFound,
		Op:        op,
		TableID:   spreadsheetID,
		SubTable:  sheetName,
		Available: titles,
	}
}

var _ table.Store = (*Client)(nil)
