package ai

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrEmptyInput is returned when the user text is empty after trimming.
	ErrEmptyInput = errors.New("input is empty")
	// ErrMalformedResponse marks a successful call whose body has an unexpected shape.
	ErrMalformedResponse = errors.New("empty or unexpected response")
	// ErrContentFiltered marks a successful call whose content was withheld by a filter.
	ErrContentFiltered = errors.New("content withheld by safety filter")
)

// TransportError means no HTTP response was received.
type TransportError struct {
	Cause   error
	Timeout bool
	After   time.Duration
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out after %s", e.After.Round(time.Millisecond))
	}
	return fmt.Sprintf("network issue: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// APIError means the endpoint answered with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return "API Error: " + e.Message
}

// IsPayloadTooLarge reports whether the endpoint rejected the request size.
func (e *APIError) IsPayloadTooLarge() bool {
	return e.StatusCode == http.StatusRequestEntityTooLarge
}
