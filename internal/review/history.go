package review

import (
	"strings"
	"time"

	"insreview/internal"
)

type HistoryRow struct {
	ID          internal.RecordID
	Company     string
	Filename    string
	Policy      string
	UploadedAt  time.Time
	UploadDate  string
	Confidence  *float64
	Tier        Tier
	NeedsReview bool
}

// HistoryList is either a list of rows or, when there are none, a single
// placeholder line. Never both.
type HistoryList struct {
	Rows        []HistoryRow
	Placeholder string
	NeedsReview bool
}

func BuildHistory(entries []internal.HistoryEntry, needsReview bool) HistoryList {
	list := HistoryList{NeedsReview: needsReview}
	if len(entries) == 0 {
		list.Placeholder = NoRecordsText
		return list
	}

	list.Rows = make([]HistoryRow, 0, len(entries))
	for _, e := range entries {
		row := HistoryRow{
			ID:          e.ID,
			Company:     orDefault(e.InsuranceCompany, "Unknown"),
			Filename:    e.Filename,
			Policy:      orDefault(e.PolicyNumber, Placeholder),
			UploadDate:  e.UploadDate,
			Confidence:  e.ConfidenceScore,
			Tier:        ConfidenceTier(e.ConfidenceScore),
			NeedsReview: e.NeedsReview,
		}
		if ts, ok := e.UploadedAt(); ok {
			row.UploadedAt = ts
		}
		list.Rows = append(list.Rows, row)
	}
	return list
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
