package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"insreview/internal"
	"insreview/internal/config"
	"insreview/internal/logger"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

// Upload is the file part of an upload request.
type Upload struct {
	Name    string
	Content []byte
}

type statusEnvelope struct {
	Success *bool `json:"success"`
}

type recordsResponse struct {
	Success bool                    `json:"success"`
	Records []internal.HistoryEntry `json:"records"`
}

type recordResponse struct {
	Success bool            `json:"success"`
	Record  internal.Record `json:"record"`
}

type companiesResponse struct {
	Success   bool     `json:"success"`
	Companies []string `json:"companies"`
}

type statsResponse struct {
	Success *bool `json:"success"`
	internal.Stats
}

func NewClient(cfg config.Config) *Client {
	httpClient := &http.Client{}
	if cfg.APITimeoutMs > 0 {
		httpClient.Timeout = time.Duration(cfg.APITimeoutMs) * time.Millisecond
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    NewRateLimiter(cfg.RateLimitRPS),
	}
}

func (c *Client) Upload(ctx context.Context, file Upload, company string) (internal.UploadResult, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(file.Name))))
	header.Set("Content-Type", mimetype.Detect(file.Content).String())
	part, err := mw.CreatePart(header)
	if err != nil {
		return internal.UploadResult{}, err
	}
	if _, err := part.Write(file.Content); err != nil {
		return internal.UploadResult{}, err
	}
	if strings.TrimSpace(company) != "" {
		if err := mw.WriteField("company", company); err != nil {
			return internal.UploadResult{}, err
		}
	}
	if err := mw.Close(); err != nil {
		return internal.UploadResult{}, err
	}

	resp, err := c.do(ctx, http.MethodPost, "api/upload", nil, body, mw.FormDataContentType())
	if err != nil {
		return internal.UploadResult{}, err
	}

	var out internal.UploadResult
	if err := resp.decode(&out); err != nil {
		return internal.UploadResult{}, err
	}
	if !out.Success {
		return internal.UploadResult{}, &Error{Status: resp.status, Message: out.Error}
	}
	return out, nil
}

func (c *Client) ListRecords(ctx context.Context, limit int, needsReview bool) ([]internal.HistoryEntry, error) {
	params := map[string]string{"limit": strconv.Itoa(limit)}
	if needsReview {
		params["needs_review"] = "true"
	}

	resp, err := c.do(ctx, http.MethodGet, "api/records", params, nil, "")
	if err != nil {
		return nil, err
	}

	var out recordsResponse
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &Error{Status: resp.status}
	}
	if out.Records == nil {
		out.Records = []internal.HistoryEntry{}
	}
	return out.Records, nil
}

func (c *Client) GetRecord(ctx context.Context, id internal.RecordID) (internal.Record, error) {
	resp, err := c.do(ctx, http.MethodGet, "api/records/"+id.String(), nil, nil, "")
	if err != nil {
		return nil, err
	}

	var out recordResponse
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	if !out.Success || out.Record == nil {
		return nil, &Error{Status: resp.status, Message: "record not found"}
	}
	return out.Record, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id internal.RecordID) error {
	resp, err := c.do(ctx, http.MethodDelete, "api/records/"+id.String(), nil, nil, "")
	if err != nil {
		return err
	}

	var out statusEnvelope
	if err := resp.decode(&out); err != nil {
		return err
	}
	if out.Success == nil || !*out.Success {
		return &Error{Status: resp.status}
	}
	return nil
}

func (c *Client) Stats(ctx context.Context) (internal.Stats, error) {
	resp, err := c.do(ctx, http.MethodGet, "api/stats", nil, nil, "")
	if err != nil {
		return internal.Stats{}, err
	}

	var out statsResponse
	if err := resp.decode(&out); err != nil {
		return internal.Stats{}, err
	}
	if out.Success != nil && !*out.Success {
		return internal.Stats{}, &Error{Status: resp.status}
	}
	return out.Stats, nil
}

func (c *Client) Companies(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, "api/companies", nil, nil, "")
	if err != nil {
		return nil, err
	}

	var out companiesResponse
	if err := resp.decode(&out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &Error{Status: resp.status}
	}
	return out.Companies, nil
}

// ExportData posts a single record's data and returns the exported file.
func (c *Client) ExportData(ctx context.Context, format internal.ExportFormat, data internal.Record) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return nil, err
	}
	return c.export(ctx, "api/export/"+url.PathEscape(string(format)), payload)
}

// ExportRecords asks the backend to export persisted records by id.
func (c *Client) ExportRecords(ctx context.Context, format internal.ExportFormat, ids []internal.RecordID) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"format": format, "record_ids": ids})
	if err != nil {
		return nil, err
	}
	return c.export(ctx, "api/export", payload)
}

func (c *Client) export(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.err()
	}
	return resp.body, nil
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) err() error {
	return &Error{Status: r.status, Message: errorMessage(r.body, r.contentType)}
}

// decode unmarshals a 2xx JSON body into out; any other status becomes an *Error.
func (r *response) decode(out any) error {
	if !r.ok() {
		return r.err()
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return &Error{Status: r.status, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, params map[string]string, body io.Reader, contentType string) (*response, error) {
	baseURL := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	if err := c.limiter.WaitTurn(ctx); err != nil {
		return nil, &TransportError{Op: method + " " + u.Path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := strings.TrimSpace(c.cfg.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logger.Get().With("request_id", requestID, "method", method, "path", u.Path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debugw("request failed", "error", err)
		return nil, &TransportError{Op: method + " " + u.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + u.Path, Err: err}
	}

	log.Debugw("request done", "status", resp.StatusCode, "bytes", len(blob), "latency", time.Since(start))
	return &response{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        blob,
	}, nil
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
