// Package mahak defines the port interface for the Mahak back-office ERP.
// The interface lives in the domain layer following the Ports & Adapters
// pattern; the concrete HTTP implementation is in
// internal/infrastructure/mahak.
package mahak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrNotConfigured   = errors.New("mahak: client not configured")
	ErrUnavailable     = errors.New("mahak: service temporarily unavailable")
	ErrRequestFailed   = errors.New("mahak: request failed")
	ErrInvalidResponse = errors.New("mahak: invalid response")
	ErrAuthFailed      = errors.New("mahak: authentication failed")
	ErrRateLimited     = errors.New("mahak: rate limited")
	ErrEntityNotFound  = errors.New("mahak: entity not found")
)

// RequestError is the classified failure returned by the Mahak client.
// Transient failures (network, timeout, 5xx, rate limiting) are worth
// retrying; permanent ones (rejected payload, auth, 4xx) are not and
// short-circuit the queue item to terminal FAILED.
type RequestError struct {
	Code      string
	Message   string
	Transient bool
	// RawResponse is the raw body from Mahak, kept for diagnostics
	RawResponse string
}

// Error implements the error interface
func (e *RequestError) Error() string {
	return fmt.Sprintf("mahak: request failed [%s]: %s", e.Code, e.Message)
}

// NewTransientError creates a retryable request error
func NewTransientError(code, message, rawResponse string) *RequestError {
	return &RequestError{Code: code, Message: message, Transient: true, RawResponse: rawResponse}
}

// NewPermanentError creates a non-retryable request error
func NewPermanentError(code, message, rawResponse string) *RequestError {
	return &RequestError{Code: code, Message: message, Transient: false, RawResponse: rawResponse}
}

// IsTransient reports whether err is a failure worth retrying. Errors that
// carry no classification are treated as transient so a driver bug never
// silently discards work.
func IsTransient(err error) bool {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Transient
	}
	return true
}

// ErrorCode extracts the Mahak error code from err, or "UNCLASSIFIED"
func ErrorCode(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Code != "" {
		return reqErr.Code
	}
	return "UNCLASSIFIED"
}

// RawResponse extracts the raw Mahak response from err, if any
func RawResponse(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.RawResponse
	}
	return ""
}

// ---------------------------------------------------------------------------
// Request/Response DTOs
// ---------------------------------------------------------------------------

// PushRequest asks Mahak to create or update one entity. When ExternalID is
// nil Mahak creates a new record and assigns an id; otherwise the existing
// record is updated in place.
type PushRequest struct {
	// EntityType is the Mahak-side entity kind (order, product, ...)
	EntityType string
	// ExternalID is the known Mahak id, nil for creation
	ExternalID *int64
	// Payload is the serialized entity snapshot
	Payload json.RawMessage
}

// PushResult is the outcome of a successful create/update call
type PushResult struct {
	// ExternalID is the Mahak id of the record (assigned on creation)
	ExternalID int64
	// ExternalCode is the human-readable Mahak code
	ExternalCode string
	// RowVersion is Mahak's optimistic-concurrency token after the write
	RowVersion int64
	// RawResponse is the raw body returned by Mahak
	RawResponse string
}

// FetchResult is the outcome of reading a remote entity
type FetchResult struct {
	Found      bool
	Payload    json.RawMessage
	RowVersion int64
}

// ---------------------------------------------------------------------------
// Client Port Interface
// ---------------------------------------------------------------------------

// Client is the abstract boundary to Mahak. Implementations must bound every
// call with a timeout; a timeout surfaces as a transient RequestError, never
// as a hang.
type Client interface {
	// CreateOrUpdate pushes one entity to Mahak
	CreateOrUpdate(ctx context.Context, req *PushRequest) (*PushResult, error)

	// Delete removes one entity on the Mahak side. Deleting a record that is
	// already gone is not an error.
	Delete(ctx context.Context, entityType string, externalID int64) (*PushResult, error)

	// Fetch reads one entity from Mahak by its external id
	Fetch(ctx context.Context, entityType string, externalID int64) (*FetchResult, error)
}
