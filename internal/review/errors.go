package review

import (
	"context"
	"errors"

	"insreview/internal/api"
)

var (
	ErrNoFile    = errors.New("no file selected")
	ErrNoData    = errors.New("no data to export")
	ErrCancelled = errors.New("cancelled")
	// ErrStale is returned when a newer request for the same panel finished
	// first and this response was dropped.
	ErrStale = errors.New("superseded by a newer request")
)

// describe turns an operation error into the message the user sees:
// transport failures get a prefixed generic message, backend failures use
// the server's message when it sent one.
func describe(err error, transportPrefix, fallback string) string {
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	var tErr *api.TransportError
	if errors.As(err, &tErr) {
		return transportPrefix + ": " + tErr.Err.Error()
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
