package sheets

import (
	stderrors "errors"
	"net/http"
	"strings"

	"sheets_join/internal/errors"

	"google.golang.org/api/googleapi"
)

// classify maps a Sheets API failure onto the error taxonomy.
func (c *Client) classify(op, spreadsheetID, sheetName string, err error) error {
	te := &errors.TableError{
		Kind:     errors.KindRemoteAPI,
		Op:       op,
		TableID:  spreadsheetID,
		SubTable: sheetName,
		Identity: c.identity,
		Err:      err,
	}

	var apiErr *googleapi.Error
	if !stderrors.As(err, &apiErr) {
		return te
	}

	switch {
	case apiErr.Code == http.StatusNotFound:
		te.Kind = errors.KindSourceUnavailable
	case apiErr.Code == http.StatusForbidden && !isQuota(apiErr):
		te.Kind = errors.KindAccessDenied
	case apiErr.Code == http.StatusUnauthorized:
		te.Kind = errors.KindCredential
	case apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range"):
		te.Kind = errors.KindSubTableNotFound
	}
	return te
}

func isQuota(e *googleapi.Error) bool {
	for _, item := range e.Errors {
		if strings.Contains(strings.ToLower(item.Reason), "ratelimit") || strings.Contains(item.Reason, "quota") {
			return true
		}
	}
	return false
}
