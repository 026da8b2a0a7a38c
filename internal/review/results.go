package review

import (
	"strconv"
	"strings"

	"insreview/internal"
)

const (
	Placeholder    = "N/A"
	SuccessMessage = "✓ Data extracted successfully"
	NoRecordsText  = "No records yet"
)

type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

func (t Tier) Class() string {
	return "confidence-" + string(t)
}

// ConfidenceTier buckets a 0-100 score. A missing score is low.
func ConfidenceTier(score *float64) Tier {
	switch {
	case score == nil:
		return TierLow
	case *score >= 80:
		return TierHigh
	case *score >= 50:
		return TierMedium
	default:
		return TierLow
	}
}

type fieldSpec struct {
	key    string
	label  string
	format func(internal.Record, string) (string, bool)
}

var resultFields = []fieldSpec{
	{key: "insurance_company", label: "Insurance Company"},
	{key: "policy_number", label: "Policy Number"},
	{key: "insurer_name", label: "Policyholder Name"},
	{key: "property_address", label: "Property Address"},
	{key: "insurer_address", label: "Insurer Address"},
	{key: "insurer_city_state", label: "City, State"},
	{key: "coverage_amount", label: "Coverage Amount"},
	{key: "liability_amount", label: "Liability Amount"},
	{key: "deductible", label: "Deductible"},
	{key: "insurance_amount", label: "Insurance Amount"},
	{key: "premium_amount", label: "Premium Amount"},
	{key: "date_prepared", label: "Date Prepared"},
	{key: "effective_date", label: "Effective Date"},
	{key: "expiration_date", label: "Expiration Date"},
	{key: "processing_time", label: "Processing Time", format: seconds},
	{key: "detected_company", label: "Detected Company"},
}

type Field struct {
	Key     string
	Label   string
	Value   string
	Missing bool
}

type ValidationLine struct {
	OK   bool
	Text string
}

// Results is what the results panel shows for the current record.
type Results struct {
	RecordID    internal.RecordID
	Company     string
	Fields      []Field
	Confidence  *float64
	Tier        Tier
	Valid       bool
	Validation  []ValidationLine
	NeedsReview bool
}

// BuildResults maps data onto the fixed field list. It never fails: any
// absent or blank value is shown as the placeholder.
func BuildResults(id internal.RecordID, company string, data internal.Record, valid bool, errs []string, confidence *float64) Results {
	res := Results{
		RecordID:    id,
		Company:     badge(company),
		Fields:      make([]Field, 0, len(resultFields)),
		Confidence:  confidence,
		Tier:        ConfidenceTier(confidence),
		Valid:       valid,
		NeedsReview: data.Bool("needs_review"),
	}

	for _, spec := range resultFields {
		format := spec.format
		if format == nil {
			format = internal.Record.String
		}
		value, ok := format(data, spec.key)
		if !ok {
			value = Placeholder
		}
		res.Fields = append(res.Fields, Field{Key: spec.key, Label: spec.label, Value: value, Missing: !ok})
	}

	if valid {
		res.Validation = []ValidationLine{{OK: true, Text: SuccessMessage}}
	} else {
		for _, e := range errs {
			res.Validation = append(res.Validation, ValidationLine{Text: "⚠ " + e})
		}
	}
	return res
}

// FromUpload builds results for a fresh upload response.
func FromUpload(res internal.UploadResult) Results {
	data := res.Data
	if data == nil {
		data = internal.Record{}
	}
	if !data.Has("processing_time") && res.ProcessingTime != nil {
		data = withValue(data, "processing_time", *res.ProcessingTime)
	}

	confidence := res.ConfidenceScore
	if c, ok := recordConfidence(data); ok {
		confidence = &c
	}

	errs := res.ValidationErrors
	if len(errs) == 0 {
		errs = data.Strings("validation_errors")
	}

	company := res.Company
	if company == "" {
		company = recordCompany(data)
	}
	return BuildResults(res.RecordID, company, data, res.IsValid, errs, confidence)
}

// FromRecord builds results for a stored record so that viewing it looks
// exactly like having just uploaded it.
func FromRecord(id internal.RecordID, rec internal.Record) Results {
	var confidence *float64
	if c, ok := recordConfidence(rec); ok {
		confidence = &c
	}

	errs := rec.Strings("validation_errors")
	if len(errs) == 0 {
		if msg, ok := rec.String("error_message"); ok {
			errs = []string{msg}
		}
	}

	return BuildResults(id, recordCompany(rec), rec, recordValid(rec), errs, confidence)
}

func recordValid(rec internal.Record) bool {
	if status, ok := rec.String("validation_status"); ok {
		return strings.EqualFold(status, "valid")
	}
	status, _ := rec.String("extraction_status")
	return status == "success"
}

func recordConfidence(rec internal.Record) (float64, bool) {
	if c, ok := rec.Float("confidence_score"); ok {
		return c, true
	}
	return rec.Float("confidence")
}

func recordCompany(rec internal.Record) string {
	if c, ok := rec.String("insurance_company"); ok {
		return c
	}
	c, _ := rec.String("detected_company")
	return c
}

func badge(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(strings.ReplaceAll(company, "_", " "))
}

func seconds(rec internal.Record, key string) (string, bool) {
	f, ok := rec.Float(key)
	if !ok {
		return rec.String(key)
	}
	return strconv.FormatFloat(f, 'f', 2, 64) + "s", true
}

func withValue(rec internal.Record, key string, value any) internal.Record {
	out := make(internal.Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	out[key] = value
	return out
}
