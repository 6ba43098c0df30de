// Package content turns keyword records into blog post drafts via a
// tool-calling language model loop.
package content

import (
	"strconv"
	"strings"

	"github.com/jblacklock/beast-blogger/internal/keywords"
)

// Status tracks a draft through the pipeline.
type Status string

// Draft lifecycle states.
const (
	StatusPending  Status = "pending"
	StatusQueued   Status = "queued"
	StatusUploaded Status = "uploaded"
)

const failedPrefix = "failed: "

// StatusFailed records a failure with its reason kept in the status value.
func StatusFailed(reason string) Status {
	return Status(failedPrefix + reason)
}

// IsFailed reports whether the status records a failure.
func (s Status) IsFailed() bool {
	return strings.HasPrefix(string(s), failedPrefix)
}

// FailureReason returns the reason captured by StatusFailed, or "".
func (s Status) FailureReason() string {
	if !s.IsFailed() {
		return ""
	}
	return strings.TrimPrefix(string(s), failedPrefix)
}

// PostDraft is a generated article plus the keyword metadata it came from.
type PostDraft struct {
	Keyword      string          `json:"keyword"`
	Title        string          `json:"title"`
	Excerpt      string          `json:"excerpt"`
	Content      string          `json:"content"`
	Image        string          `json:"image"`
	Intent       keywords.Intent `json:"intent"`
	Volume       int             `json:"volume"`
	FrequentWord string          `json:"frequent_word"`
	Tab          string          `json:"tab"`
	Status       Status          `json:"status"`
}

// snapshotColumns is the stable column order for draft datasets.
var snapshotColumns = []string{"keyword", "title", "excerpt", "content", "image", "intent", "volume", "frequent_word", "tab", "status"}

// SnapshotColumns returns the stable column names used for draft snapshots.
func SnapshotColumns() []string {
	return append([]string(nil), snapshotColumns...)
}

// ToRows converts drafts into snapshot rows matching SnapshotColumns.
func ToRows(drafts []PostDraft) [][]string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, []string{
			d.Keyword,
			d.Title,
			d.Excerpt,
			d.Content,
			d.Image,
			string(d.Intent),
			strconv.Itoa(d.Volume),
			d.FrequentWord,
			d.Tab,
			string(d.Status),
		})
	}
	return rows
}

// FromRows converts snapshot rows back into drafts. Rows without a keyword
// are skipped.
func FromRows(columns []string, rows [][]string) []PostDraft {
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

	var drafts []PostDraft
	for _, row := range rows {
		keyword := strings.TrimSpace(cell(row, "keyword"))
		if keyword == "" {
			continue
		}
		volume, _ := strconv.Atoi(cell(row, "volume"))
		drafts = append(drafts, PostDraft{
			Keyword:      keyword,
			Title:        cell(row, "title"),
			Excerpt:      cell(row, "excerpt"),
			Content:      cell(row, "content"),
			Image:        cell(row, "image"),
			Intent:       keywords.ParseIntent(cell(row, "intent")),
			Volume:       volume,
			FrequentWord: cell(row, "frequent_word"),
			Tab:          cell(row, "tab"),
			Status:       Status(cell(row, "status")),
		})
	}
	return drafts
}
