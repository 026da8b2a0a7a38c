package internal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is an extraction result as returned by the backend. The client
// treats it as opaque and reads fields through the tolerant accessors below.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r.String(key)
	return ok
}

// String renders the value under key for display. Missing keys, nulls and
// blank strings report false.
func (r Record) String(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	switch t := r[key].(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		blob, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(blob), true
	}
}

func (r Record) Float(key string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	return toFloat(r[key])
}

func (r Record) Bool(key string) bool {
	if r == nil {
		return false
	}
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	default:
		return false
	}
}

func (r Record) Strings(key string) []string {
	if r == nil {
		return nil
	}
	arr, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func (r Record) ID() (RecordID, bool) {
	f, ok := r.Float("id")
	if !ok {
		return 0, false
	}
	return RecordID(f), true
}

type RecordID int64

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseRecordID(s string) (RecordID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return RecordID(n), nil
}

type HistoryEntry struct {
	ID               RecordID `json:"id"`
	Filename         string   `json:"filename"`
	InsuranceCompany string   `json:"insurance_company"`
	PolicyNumber     string   `json:"policy_number"`
	UploadDate       string   `json:"upload_date"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	NeedsReview      bool     `json:"needs_review"`
}

func (h HistoryEntry) UploadedAt() (time.Time, bool) {
	if strings.TrimSpace(h.UploadDate) == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05", time.RFC1123} {
		if t, err := time.Parse(layout, h.UploadDate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type UploadResult struct {
	Success          bool     `json:"success"`
	RecordID         RecordID `json:"record_id"`
	Company          string   `json:"company"`
	Data             Record   `json:"data"`
	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors"`
	ProcessingTime   *float64 `json:"processing_time"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	Error            string   `json:"error"`
}

type Stats struct {
	TotalRecords int `json:"total_records"`
	NeedsReview  int `json:"needs_review"`
}

type ExportFormat string

const (
	FormatExcel ExportFormat = "excel"
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
)

func ParseExportFormat(s string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case FormatExcel, "xlsx":
		return FormatExcel, true
	case FormatCSV:
		return FormatCSV, true
	case FormatJSON:
		return FormatJSON, true
	default:
		return "", false
	}
}

// Extension is the download file extension for the format.
func (f ExportFormat) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
