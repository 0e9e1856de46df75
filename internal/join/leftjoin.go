package join

import (
	"sheets_join/internal/table"

	"github.com/rs/zerolog/log"
)

// Source columns of the secondary table that feed the output.
const (
	ReceivedAtColumn = "received_at"
	BrandColumn      = "brand"
	CourseTypeColumn = "meinnow_course_type"
)

// Header is the fixed output header, in column order A-F.
var Header = []string{"id", "date", "brand", "course_type", "title", "vertical"}

// JoinedRow is one output row. Pass-through fields keep the scalar type
// they were read with so numbers are written back as numbers.
type JoinedRow struct {
	ID         any
	Date       any
	Brand      any
	CourseType any
	Title      string
	// Vertical repeats CourseType; downstream consumers read both columns.
	Vertical any
}

// Values returns the row in Header order.
func (r JoinedRow) Values() []any {
	return []any{r.ID, r.Date, r.Brand, r.CourseType, r.Title, r.Vertical}
}

// LeftJoin emits exactly one JoinedRow per secondary record, in input order.
// Rows whose key has no index entry get an empty title.
func LeftJoin(secondary []table.Record, idx *LookupIndex, keyColumn string) []JoinedRow {
	rows := make([]JoinedRow, 0, len(secondary))
	matched := 0
	for _, rec := range secondary {
		raw := rec.Value(keyColumn)
		title := idx.Lookup(CanonicalKey(raw))
		if title != "" {
			matched++
		}

		courseType := rec.Value(CourseTypeColumn)
		rows = append(rows, JoinedRow{
			ID:         raw,
			Date:       rec.Value(ReceivedAtColumn),
			Brand:      rec.Value(BrandColumn),
			CourseType: courseType,
			Title:      title,
			Vertical:   courseType,
		})
	}

	log.Debug().
		Int("rows", len(rows)).
		Int("matched", matched).
		Int("unmatched", len(rows)-matched).
		Msg("Left join complete")
	return rows
}
