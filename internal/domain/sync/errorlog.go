package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// ErrorSeverity tags the operational impact of a recorded failure.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// IsValid returns true if the severity is valid
func (s ErrorSeverity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	default:
		return false
	}
}

// String returns the string representation of ErrorSeverity
func (s ErrorSeverity) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// ErrorEntry Entity
// ---------------------------------------------------------------------------

// ErrorEntry is one deduplicated failure record. Repeated identical failures
// (same EntityType, EntityID and ErrorCode) reuse the unresolved row,
// incrementing OccurrenceCount, so the log stays actionable instead of
// filling with duplicates.
type ErrorEntry struct {
	ID           uuid.UUID
	ErrorType    string
	EntityType   EntityType
	EntityID     *uuid.UUID
	ErrorCode    string
	ErrorMessage string
	StackTrace   string
	RequestData  string
	ResponseData string
	Severity     ErrorSeverity

	IsResolved    bool
	ResolvedAt    *time.Time
	ResolvedBy    string
	ResolvedNotes string

	OccurrenceCount int
	LastOccurredAt  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewErrorEntry creates a first-occurrence error record
func NewErrorEntry(errorType string, entityType EntityType, entityID *uuid.UUID, errorCode, message string, severity ErrorSeverity) *ErrorEntry {
	if !severity.IsValid() {
		severity = SeverityMedium
	}
	now := time.Now()
	return &ErrorEntry{
		ID:              uuid.New(),
		ErrorType:       errorType,
		EntityType:      entityType,
		EntityID:        entityID,
		ErrorCode:       errorCode,
		ErrorMessage:    message,
		Severity:        severity,
		OccurrenceCount: 1,
		LastOccurredAt:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Recur records another occurrence of the same failure, refreshing the
// message and payloads so the row always shows the latest attempt.
func (e *ErrorEntry) Recur(message, requestData, responseData string) {
	now := time.Now()
	e.OccurrenceCount++
	e.ErrorMessage = message
	if requestData != "" {
		e.RequestData = requestData
	}
	if responseData != "" {
		e.ResponseData = responseData
	}
	e.LastOccurredAt = now
	e.UpdatedAt = now
}

// Resolve closes the entry. A resolved row is never reused; a later
// occurrence of the same failure opens a fresh row.
func (e *ErrorEntry) Resolve(resolvedBy, notes string) error {
	if e.IsResolved {
		return ErrAlreadyResolved
	}
	now := time.Now()
	e.IsResolved = true
	e.ResolvedAt = &now
	e.ResolvedBy = resolvedBy
	e.ResolvedNotes = notes
	e.UpdatedAt = now
	return nil
}

// ---------------------------------------------------------------------------
// ErrorLogRepository Port
// ---------------------------------------------------------------------------

// ErrorRecord carries the inputs for recording a failure occurrence
type ErrorRecord struct {
	ErrorType    string
	EntityType   EntityType
	EntityID     *uuid.UUID
	ErrorCode    string
	Message      string
	Severity     ErrorSeverity
	StackTrace   string
	RequestData  string
	ResponseData string
}

// ErrorLogFilter defines filter criteria for error log listings
type ErrorLogFilter struct {
	EntityType *EntityType
	Severity   *ErrorSeverity
	Resolved   *bool
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// ErrorLogRepository defines the persistence port for the error log
type ErrorLogRepository interface {
	// Record stores a failure occurrence. If an unresolved entry with the
	// same (EntityType, EntityID, ErrorCode) exists it is reused and its
	// occurrence count incremented; otherwise a new entry is created.
	Record(ctx context.Context, rec ErrorRecord) (*ErrorEntry, error)

	// FindByID retrieves an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ErrorEntry, error)

	// Resolve marks an entry resolved
	Resolve(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error

	// ResolveForEntity resolves all unresolved entries for an entity after a
	// subsequent successful sync. Returns rows resolved.
	ResolveForEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID, notes string) (int64, error)

	// FindAll lists entries for the operational surface
	FindAll(ctx context.Context, filter ErrorLogFilter) ([]*ErrorEntry, int64, error)

	// CountUnresolved returns the number of open entries per severity
	CountUnresolved(ctx context.Context) (map[ErrorSeverity]int64, error)
}
