package internal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAccessorsTolerateMissingKeys(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 42,
		"policy_number": " HO-123 ",
		"insurer_name": "",
		"deductible": 500,
		"needs_review": true,
		"validation_errors": ["missing date", "", 7],
		"extra": {"a": 1}
	}`), &rec))

	s, ok := rec.String("policy_number")
	assert.True(t, ok)
	assert.Equal(t, "HO-123", s)

	_, ok = rec.String("insurer_name")
	assert.False(t, ok)
	_, ok = rec.String("does_not_exist")
	assert.False(t, ok)

	s, ok = rec.String("deductible")
	assert.True(t, ok)
	assert.Equal(t, "500", s)

	s, ok = rec.String("extra")
	assert.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, s)

	id, ok := rec.ID()
	assert.True(t, ok)
	assert.Equal(t, RecordID(42), id)

	assert.True(t, rec.Bool("needs_review"))
	assert.Equal(t, []string{"missing date"}, rec.Strings("validation_errors"))

	var empty Record
	_, ok = empty.Float("confidence_score")
	assert.False(t, ok)
	assert.Nil(t, empty.Strings("validation_errors"))
}

func TestParseExportFormat(t *testing.T) {
	cases := []struct {
		in   string
		want ExportFormat
		ext  string
		ok   bool
	}{
		{in: "excel", want: FormatExcel, ext: "xlsx", ok: true},
		{in: "XLSX", want: FormatExcel, ext: "xlsx", ok: true},
		{in: "csv", want: FormatCSV, ext: "csv", ok: true},
		{in: " json ", want: FormatJSON, ext: "json", ok: true},
		{in: "pdf", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseExportFormat(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
				assert.Equal(t, tc.ext, got.Extension())
			}
		})
	}
}

func TestHistoryEntryUploadedAt(t *testing.T) {
	h := HistoryEntry{UploadDate: "2025-03-04T10:11:12.123456"}
	ts, ok := h.UploadedAt()
	require.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	_, ok = HistoryEntry{}.UploadedAt()
	assert.False(t, ok)
}
