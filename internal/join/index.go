// Package join builds the key-to-title lookup from the primary table and
// left-joins the secondary table against it.
package join

import (
	"fmt"
	"math"
	"strconv"

	"sheets_join/internal/table"

	"github.com/rs/zerolog/log"
)

// LookupIndex maps a canonical key to a single enrichment value.
type LookupIndex struct {
	values map[string]string
}

// BuildIndex indexes records by keyColumn. Rows whose key is missing or
// empty are skipped; when two rows share a key the later one wins.
func BuildIndex(records []table.Record, keyColumn, valueColumn string) *LookupIndex {
	idx := &LookupIndex{values: make(map[string]string, len(records))}
	skipped := 0
	for _, rec := range records {
		raw, ok := rec.Get(keyColumn)
		key := CanonicalKey(raw)
		if !ok || key == "" {
			skipped++
			continue
		}
		idx.values[key] = CanonicalKey(rec.Value(valueColumn))
	}

	log.Debug().
		Int("records", len(records)).
		Int("keys", len(idx.values)).
		Int("skipped", skipped).
		Str("key_column", keyColumn).
		Str("value_column", valueColumn).
		Msg("Built lookup index")
	return idx
}

// Lookup returns the value stored for key, or "" if there is none.
func (idx *LookupIndex) Lookup(key string) string {
	if idx == nil {
		return ""
	}
	return idx.values[key]
}

// Len returns the number of distinct keys.
func (idx *LookupIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.values)
}

// CanonicalKey renders a cell value as the string used for key comparison,
// so the number 123 and the text "123" compare equal.
func CanonicalKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
