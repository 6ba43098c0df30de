package keywords

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Intent is the inferred purpose behind a search query.
type Intent string

// Intent values recognized by the pipeline.
const (
	IntentInformational Intent = "informational"
	IntentTransactional Intent = "transactional"
	IntentCommercial    Intent = "commercial_investigation"
	IntentNavigational  Intent = "navigational"
	IntentUnspecified   Intent = "unspecified"
)

// ParseIntent normalizes a free-form intent label. Unknown or empty labels
// map to IntentUnspecified rather than failing.
func ParseIntent(s string) Intent {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "informational":
		return IntentInformational
	case "transactional":
		return IntentTransactional
	case "commercial_investigation", "commercial":
		return IntentCommercial
	case "navigational":
		return IntentNavigational
	default:
		return IntentUnspecified
	}
}

// Record is the canonical keyword candidate shape, validated once at the
// ingestion boundary and never re-validated downstream.
type Record struct {
	Query        string `json:"query" validate:"required"`
	Tab          string `json:"tab"`
	Intent       Intent `json:"intent"`
	Volume       int    `json:"volume" validate:"gte=0"`
	FrequentWord string `json:"frequent_word"`
	Selected     bool   `json:"selected"`
	DeleteFlag   bool   `json:"delete_flag"`
}

var validate = validator.New()

// Validate checks the record's required fields and ranges.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &ValidationError{Message: "invalid keyword record", Cause: err}
	}
	return nil
}

// Merge deduplicates incoming records into existing on Query, keeping the
// newest occurrence. Order is existing records first (updated in place),
// then unseen incoming records in their input order.
func Merge(existing, incoming []Record) []Record {
	index := make(map[string]int, len(existing))
	out := make([]Record, len(existing))
	copy(out, existing)
	for i, r := range out {
		index[r.Query] = i
	}

	for _, r := range incoming {
		if i, ok := index[r.Query]; ok {
			out[i] = r
			continue
		}
		index[r.Query] = len(out)
		out = append(out, r)
	}
	return out
}

// snapshotColumns is the stable column order for keyword datasets.
var snapshotColumns = []string{"query", "tab", "intent", "volume", "frequent_word", "selected", "delete_flag"}

// SnapshotColumns returns the stable column names used for keyword snapshots.
func SnapshotColumns() []string {
	return append([]string(nil), snapshotColumns...)
}

// ToRows converts records into snapshot rows matching SnapshotColumns.
func ToRows(records []Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Query,
			r.Tab,
			string(r.Intent),
			strconv.Itoa(r.Volume),
			r.FrequentWord,
			strconv.FormatBool(r.Selected),
			strconv.FormatBool(r.DeleteFlag),
		})
	}
	return rows
}

// FromRows converts snapshot rows back into records. Rows shorter than the
// column set or with an empty query are skipped.
func FromRows(columns []string, rows [][]string) []Record {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[strings.ToLower(strings.TrimSpace(c))] = i
	}

	cell := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	for _, row := range rows {
		query := strings.TrimSpace(cell(row, "query"))
		if query == "" {
			continue
		}
		volume, _ := strconv.Atoi(cell(row, "volume"))
		if volume < 0 {
			volume = 0
		}
		selected, _ := strconv.ParseBool(cell(row, "selected"))
		deleteFlag, _ := strconv.ParseBool(cell(row, "delete_flag"))
		records = append(records, Record{
			Query:        query,
			Tab:          cell(row, "tab"),
			Intent:       ParseIntent(cell(row, "intent")),
			Volume:       volume,
			FrequentWord: cell(row, "frequent_word"),
			Selected:     selected,
			DeleteFlag:   deleteFlag,
		})
	}
	return records
}
