package keywords

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// FileResult holds the outcome of ingesting one spreadsheet. A failed file
// carries its error; other files in the batch are unaffected.
type FileResult struct {
	File    string
	Records []Record
	Skipped int // rows dropped for a missing query
	Err     error
}

// headerAliases maps canonical column names to the header spellings we
// accept, matched case-insensitively.
var headerAliases = map[string][]string{
	"query":         {"query"},
	"tab":           {"tab", "source"},
	"intent":        {"intent"},
	"volume":        {"volume"},
	"frequent_word": {"frequent word", "frequent_word"},
}

// IngestFiles ingests a batch of spreadsheet files with per-file isolation:
// one malformed file never aborts processing of the others.
func IngestFiles(paths []string, logger *zap.Logger) []FileResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		records, skipped, err := IngestFile(path)
		if err != nil {
			logger.Warn("keyword file rejected", zap.String("file", path), zap.Error(err))
		} else if skipped > 0 {
			logger.Info("rows without query skipped", zap.String("file", path), zap.Int("skipped", skipped))
		}
		results = append(results, FileResult{File: path, Records: records, Skipped: skipped, Err: err})
	}
	return results
}

// IngestFile reads one tabular file (xlsx or csv) into keyword records.
// Returns the records, the count of rows dropped for a missing query, and
// an error when the file itself cannot be ingested.
func IngestFile(path string) ([]Record, int, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readExcelRows(path)
	case ".csv":
		rows, err = readCSVRows(path)
	default:
		return nil, 0, &ValidationError{File: path, Message: fmt.Sprintf("unsupported file format %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, 0, &ValidationError{File: path, Message: "failed to read file", Cause: err}
	}

	records, skipped, err := recordsFromRows(rows)
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			verr.File = path
		}
		return nil, 0, err
	}
	return records, skipped, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows, handled per cell below

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// recordsFromRows maps header+data rows to records. The header must carry
// a query column; other columns are optional and default to ""/0.
func recordsFromRows(rows [][]string) ([]Record, int, error) {
	if len(rows) == 0 {
		return nil, 0, nil
	}

	columns := resolveColumns(rows[0])
	if _, ok := columns["query"]; !ok {
		return nil, 0, &ValidationError{Message: "missing required column: query"}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	skipped := 0
	for _, row := range rows[1:] {
		query := cell(row, "query")
		if query == "" {
			skipped++
			continue
		}
		volume, _ := strconv.Atoi(cell(row, "volume"))
		if volume < 0 {
			volume = 0
		}
		records = append(records, Record{
			Query:        query,
			Tab:          cell(row, "tab"),
			Intent:       ParseIntent(cell(row, "intent")),
			Volume:       volume,
			FrequentWord: cell(row, "frequent_word"),
		})
	}
	return records, skipped, nil
}

// resolveColumns matches header cells to canonical names case-insensitively.
func resolveColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, h := range header {
		normalized := strings.ToLower(strings.TrimSpace(h))
		for canonical, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					if _, taken := columns[canonical]; !taken {
						columns[canonical] = i
					}
				}
			}
		}
	}
	return columns
}
