// Package inspect reports the sub-tables and header rows of the configured
// tables, flagging the columns a run depends on.
package inspect

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

// PreviewColumns caps how many header cells are shown per sub-table.
const PreviewColumns = 10

// Source is the read side of a table store.
type Source interface {
	SubTables(ctx context.Context, tableID string) ([]string, error)
	Header(ctx context.Context, tableID, subTable string) ([]string, error)
}

// Target is one table to inspect.
type Target struct {
	Label    string
	TableID  string
	Expected []string
}

type SheetReport struct {
	Name    string   `yaml:"name"`
	Columns int      `yaml:"columns"`
	Header  []string `yaml:"header,omitempty"`
	Found   []string `yaml:"found,omitempty"`
	Missing []string `yaml:"missing,omitempty"`
	Error   string   `yaml:"error,omitempty"`
}

type TableReport struct {
	Label   string        `yaml:"label"`
	TableID string        `yaml:"table_id"`
	Error   string        `yaml:"error,omitempty"`
	Sheets  []SheetReport `yaml:"sheets,omitempty"`
}

type Report struct {
	Tables []TableReport `yaml:"tables"`
}

// Run inspects every target. Failures are recorded in the report rather
// than returned, so one unreadable sheet does not hide the others.
func Run(ctx context.Context, src Source, targets ...Target) Report {
	logger := zerolog.Ctx(ctx)
	var report Report
	for _, t := range targets {
		tr := TableReport{Label: t.Label, TableID: t.TableID}
		names, err := src.SubTables(ctx, t.TableID)
		if err != nil {
			logger.Warn().Err(err).Str("table_id", t.TableID).Msg("Cannot list sub-tables")
			tr.Error = err.Error()
			report.Tables = append(report.Tables, tr)
			continue
		}
		for _, name := range names {
			tr.Sheets = append(tr.Sheets, inspectSheet(ctx, src, t, name))
		}
		report.Tables = append(report.Tables, tr)
	}
	return report
}

func inspectSheet(ctx context.Context, src Source, t Target, name string) SheetReport {
	sr := SheetReport{Name: name}
	header, err := src.Header(ctx, t.TableID, name)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("sub_table", name).Msg("Cannot read header")
		sr.Error = err.Error()
		return sr
	}
	sr.Columns = len(header)
	sr.Header = header
	if len(header) > PreviewColumns {
		sr.Header = header[:PreviewColumns]
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	for _, col := range t.Expected {
		if present[col] {
			sr.Found = append(sr.Found, col)
		} else {
			sr.Missing = append(sr.Missing, col)
		}
	}
	return sr
}

// Complete reports whether some sub-table of every target carries all of
// that target's expected columns.
func (r Report) Complete() bool {
	for _, t := range r.Tables {
		ok := false
		for _, s := range t.Sheets {
			if s.Error == "" && len(s.Missing) == 0 {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// YAML renders the report as a YAML document.
func (r Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteText renders the report for a terminal.
func (r Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	for i, t := range r.Tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s table %s\n", t.Label, t.TableID)
		if t.Error != "" {
			fmt.Fprintf(&sb, "  error: %s\n", t.Error)
			continue
		}
		fmt.Fprintf(&sb, "  %d sub-table(s)\n", len(t.Sheets))
		for _, s := range t.Sheets {
			fmt.Fprintf(&sb, "  - %s\n", s.Name)
			if s.Error != "" {
				fmt.Fprintf(&sb, "      error: %s\n", s.Error)
				continue
			}
			if s.Columns == 0 {
				sb.WriteString("      (empty)\n")
				continue
			}
			fmt.Fprintf(&sb, "      header: %s", strings.Join(s.Header, ", "))
			if s.Columns > len(s.Header) {
				fmt.Fprintf(&sb, " ... (%d columns)", s.Columns)
			}
			sb.WriteString("\n")
			for _, col := range s.Found {
				fmt.Fprintf(&sb, "      ✓ %s\n", col)
			}
			for _, col := range s.Missing {
				fmt.Fprintf(&sb, "      ✗ %s\n", col)
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
