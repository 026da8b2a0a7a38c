package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insreview/internal"
	"insreview/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.Config{APIBaseURL: srv.URL + "/", APIToken: "secret"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestUploadSendsMultipartFileAndCompany(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "state_farm", r.FormValue("company"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "policy.pdf", hdr.Filename)
		assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
		blob, _ := io.ReadAll(f)
		assert.True(t, strings.HasPrefix(string(blob), "%PDF-"))

		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"record_id":         17,
			"company":           "state_farm",
			"data":              map[string]any{"policy_number": "SF-1"},
			"is_valid":          true,
			"validation_errors": []string{},
		})
	})

	res, err := client.Upload(context.Background(), Upload{Name: "/tmp/policy.pdf", Content: []byte("%PDF-1.4\n%test\n")}, "state_farm")
	require.NoError(t, err)
	assert.Equal(t, internal.RecordID(17), res.RecordID)
	assert.Equal(t, "state_farm", res.Company)
	assert.True(t, res.IsValid)
	v, _ := res.Data.String("policy_number")
	assert.Equal(t, "SF-1", v)
}

func TestUploadOmitsEmptyCompany(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["company"]
		assert.False(t, present)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "record_id": 1, "data": map[string]any{}})
	})

	_, err := client.Upload(context.Background(), Upload{Name: "a.png", Content: []byte("x")}, " ")
	require.NoError(t, err)
}

func TestUploadBackendErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		ctype   string
		message string
	}{
		{name: "error key", status: http.StatusBadRequest, body: `{"error":"Invalid file type"}`, ctype: "application/json", message: "Invalid file type"},
		{name: "detail key", status: http.StatusUnprocessableEntity, body: `{"detail":"Unknown company: acme"}`, ctype: "application/json", message: "Unknown company: acme"},
		{name: "detail list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"},{"msg":"bad"}]}`, ctype: "application/json", message: "field required; bad"},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"error":"extraction failed"}`, ctype: "application/json", message: "extraction failed"},
		{name: "html proxy page", status: http.StatusBadGateway, body: `<html><head><title>502 Bad Gateway</title></head><body><h1>502</h1></body></html>`, ctype: "text/html", message: "502 Bad Gateway"},
		{name: "empty body", status: http.StatusInternalServerError, body: ``, ctype: "text/plain", message: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.ctype)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Upload(context.Background(), Upload{Name: "a.pdf", Content: []byte("x")}, "")
			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestTransportErrorIsWrapped(t *testing.T) {
	client := NewClient(config.Config{APIBaseURL: "http://backend.test"})
	boom := errors.New("connection refused")
	client.httpClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})}

	_, err := client.Stats(context.Background())
	var tErr *TransportError
	require.True(t, errors.As(err, &tErr))
	assert.ErrorIs(t, err, boom)
}

func TestListRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/records", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("needs_review"))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"records": []map[string]any{
				{"id": 3, "filename": "a.pdf", "insurance_company": "allstate", "policy_number": nil, "upload_date": "2025-01-02T03:04:05", "confidence_score": 91.5, "needs_review": true},
			},
		})
	})

	records, err := client.ListRecords(context.Background(), 10, true)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, internal.RecordID(3), records[0].ID)
	assert.Equal(t, "", records[0].PolicyNumber)
	require.NotNil(t, records[0].ConfidenceScore)
	assert.InDelta(t, 91.5, *records[0].ConfidenceScore, 0.001)
	assert.True(t, records[0].NeedsReview)
}

func TestListRecordsEmptyAndNoFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, filtered := r.URL.Query()["needs_review"]
		assert.False(t, filtered)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "records": nil})
	})

	records, err := client.ListRecords(context.Background(), 10, false)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetRecordAndNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/records/5":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": map[string]any{"id": 5, "policy_number": "P5"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Record not found"})
		}
	})

	rec, err := client.GetRecord(context.Background(), 5)
	require.NoError(t, err)
	id, _ := rec.ID()
	assert.Equal(t, internal.RecordID(5), id)

	_, err = client.GetRecord(context.Background(), 6)
	assert.True(t, IsNotFound(err))
}

func TestDeleteRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/api/records/9" {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Record deleted successfully"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
	})

	assert.NoError(t, client.DeleteRecord(context.Background(), 9))
	assert.Error(t, client.DeleteRecord(context.Background(), 10))
}

func TestStatsAcceptsBareAndWrapped(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeJSON(w, http.StatusOK, map[string]any{"total_records": 12, "needs_review": 3})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "total_records": 4, "needs_review": 0})
	})

	stats, err := client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, internal.Stats{TotalRecords: 12, NeedsReview: 3}, stats)

	stats, err = client.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalRecords)
}

func TestCompanies(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/companies", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "companies": []string{"nationwide", "state_farm"}})
	})

	companies, err := client.Companies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"nationwide", "state_farm"}, companies)
}

func TestExportData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export/excel", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "P1", body["data"]["policy_number"])
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("PK\x03\x04binary"))
	})

	blob, err := client.ExportData(context.Background(), internal.FormatExcel, internal.Record{"policy_number": "P1"})
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04binary", string(blob))
}

func TestExportRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export", r.URL.Path)
		var body struct {
			Format    string  `json:"format"`
			RecordIDs []int64 `json:"record_ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "csv", body.Format)
		assert.Equal(t, []int64{1, 2}, body.RecordIDs)
		_, _ = w.Write([]byte("a,b\n"))
	})

	blob, err := client.ExportRecords(context.Background(), internal.FormatCSV, []internal.RecordID{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(blob))
}

func TestExportNotOK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid format"})
	})

	blob, err := client.ExportData(context.Background(), "pdf", internal.Record{"a": 1})
	assert.Nil(t, blob)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid format", apiErr.Message)
}

func TestNoTimeoutByDefault(t *testing.T) {
	assert.Zero(t, NewClient(config.Config{}).httpClient.Timeout)
	assert.NotZero(t, NewClient(config.Config{APITimeoutMs: 1500}).httpClient.Timeout)
}
