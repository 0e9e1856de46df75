// Package errors defines the failure taxonomy for table reads and publishes.
// Every store operation returns a *TableError tagged with a Kind so callers
// can branch with errors.Is against the sentinels below.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Is and As re-export the standard library helpers so callers only need one import.
var (
	Is = errors.Is
	As = errors.As
)

// Sentinel errors, one per Kind.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSubTableNotFound  = errors.New("sub-table not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrCredential        = errors.New("credential error")
	ErrRemoteAPI         = errors.New("remote API error")
	ErrWriteFailure      = errors.New("write failure")
)

// Kind classifies a TableError.
type Kind int

const (
	KindUnknown Kind = iota
	KindSourceUnavailable
	KindSubTableNotFound
	KindAccessDenied
	KindCredential
	KindRemoteAPI
	KindWriteFailure
)

func (k Kind) String() string {
	switch k {
	case KindSourceUnavailable:
		return "SourceUnavailable"
	case KindSubTableNotFound:
		return "SubTableNotFound"
	case KindAccessDenied:
		return "AccessDenied"
	case KindCredential:
		return "CredentialError"
	case KindRemoteAPI:
		return "RemoteAPIError"
	case KindWriteFailure:
		return "WriteFailure"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindSourceUnavailable:
		return ErrSourceUnavailable
	case KindSubTableNotFound:
		return ErrSubTableNotFound
	case KindAccessDenied:
		return ErrAccessDenied
	case KindCredential:
		return ErrCredential
	case KindRemoteAPI:
		return ErrRemoteAPI
	case KindWriteFailure:
		return ErrWriteFailure
	default:
		return nil
	}
}

// TableError carries enough context for an operator to diagnose a failed
// table operation without rerunning it.
type TableError struct {
	Kind     Kind
	Op       string
	TableID  string
	SubTable string
	// Available lists the sub-tables that do exist, for KindSubTableNotFound.
	Available []string
	// Identity is the service account the store authenticated as.
	Identity string
	Err      error
}

// Error implements the error interface.
func (e *TableError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}

	switch e.Kind {
	case KindSourceUnavailable:
		fmt.Fprintf(&sb, "table %q not found; check the table id", e.TableID)
	case KindSubTableNotFound:
		fmt.Fprintf(&sb, "sub-table %q not found in table %q; available: [%s]",
			e.SubTable, e.TableID, strings.Join(quoteAll(e.Available), ", "))
	case KindAccessDenied:
		fmt.Fprintf(&sb, "no permission on table %q; %s", e.TableID, strings.Join(e.Remediation(), "; "))
	case KindCredential:
		sb.WriteString("invalid or missing credentials")
	case KindWriteFailure:
		fmt.Fprintf(&sb, "writing to %q in table %q failed", e.SubTable, e.TableID)
	default:
		fmt.Fprintf(&sb, "%s on table %q", e.Kind, e.TableID)
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap implements errors.Unwrap.
func (e *TableError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel belonging to the error's Kind.
func (e *TableError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Remediation returns the steps that resolve an AccessDenied error.
func (e *TableError) Remediation() []string {
	if e.Kind != KindAccessDenied {
		return nil
	}
	who := e.Identity
	if who == "" {
		who = "the service account e-mail (client_email in the credentials)"
	}
	steps := []string{
		"open the spreadsheet in a browser and click Share",
		fmt.Sprintf("add %s", who),
		"grant the Editor role and send",
	}
	if e.TableID != "" {
		steps = append(steps, "https://docs.google.com/spreadsheets/d/"+e.TableID)
	}
	return steps
}

// KindOf returns the Kind of the first TableError in err's chain.
func KindOf(err error) Kind {
	var te *TableError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// Retryable reports whether err is worth another attempt. Only transport
// or quota failures qualify; the rest need an operator.
func Retryable(err error) bool {
	return KindOf(err) == KindRemoteAPI
}

// NewCredentialError wraps a credential failure.
func NewCredentialError(op string, err error) *TableError {
	return &TableError{Kind: KindCredential, Op: op, Err: err}
}

// NewWriteFailure wraps any error raised during the publish sequence.
func NewWriteFailure(op, tableID, subTable string, err error) *TableError {
	return &TableError{Kind: KindWriteFailure, Op: op, TableID: tableID, SubTable: subTable, Err: err}
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%q", n)
	}
	return out
}
