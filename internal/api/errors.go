package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Error is a failure reported by the backend: a non-2xx status or a
// 2xx body with success=false. Message is empty when the backend gave none.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: status=%d", e.Status)
	}
	return fmt.Sprintf("backend error: status=%d: %s", e.Status, e.Message)
}

// TransportError means the request never produced a response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const maxMessageLen = 200

// errorMessage pulls a human readable message out of an error body. JSON
// bodies use error, detail or message; HTML pages (proxy errors) use the
// title or the first heading.
func errorMessage(body []byte, contentType string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var payload map[string]any
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			for _, key := range []string{"error", "detail", "message"} {
				if msg := messageFrom(payload[key]); msg != "" {
					return truncate(msg, maxMessageLen)
				}
			}
			return ""
		}
	}

	if strings.Contains(contentType, "html") || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<!doctype html")) || bytes.HasPrefix(bytes.ToLower(trimmed), []byte("<html")) {
		return truncate(htmlMessage(trimmed), maxMessageLen)
	}

	return truncate(string(trimmed), maxMessageLen)
}

func messageFrom(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, key := range []string{"message", "msg", "detail"} {
			if msg := messageFrom(t[key]); msg != "" {
				return msg
			}
		}
	case []any:
		// FastAPI style validation detail: [{"msg": "..."}]
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if msg := messageFrom(item); msg != "" {
				parts = append(parts, msg)
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func htmlMessage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	for _, sel := range []string{"title", "h1", "body"} {
		text := strings.Join(strings.Fields(doc.Find(sel).First().Text()), " ")
		if text != "" {
			return text
		}
	}
	return ""
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
