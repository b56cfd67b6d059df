package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// SyncType identifies the direction of a synchronization run.
type SyncType string

const (
	SyncTypeOutgoing SyncType = "OUTGOING"
	SyncTypeIncoming SyncType = "INCOMING"
	SyncTypeFull     SyncType = "FULL"
)

// IsValid returns true if the sync type is valid
func (t SyncType) IsValid() bool {
	switch t {
	case SyncTypeOutgoing, SyncTypeIncoming, SyncTypeFull:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncType
func (t SyncType) String() string {
	return string(t)
}

// SyncStatus represents the outcome of a synchronization run.
type SyncStatus string

const (
	SyncStatusSuccess        SyncStatus = "SUCCESS"
	SyncStatusPartialFailure SyncStatus = "PARTIAL_FAILURE"
	SyncStatusFailure        SyncStatus = "FAILURE"
)

// IsValid returns true if the status is valid
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusPartialFailure, SyncStatusFailure:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRun Entity
// ---------------------------------------------------------------------------

// SyncRun is one append-only audit record of a synchronization attempt or
// batch. It is write-mostly: no business logic depends on reading it back.
type SyncRun struct {
	ID         uuid.UUID
	EntityType EntityType
	EntityID   *uuid.UUID
	SyncType   SyncType
	SyncStatus SyncStatus

	SyncStartedAt   time.Time
	SyncCompletedAt *time.Time
	DurationMs      int64

	RecordsProcessed  int
	RecordsSuccessful int
	RecordsFailed     int

	// SyncData is the request snapshot sent to Mahak
	SyncData string
	// MahakResponse is the raw response payload from Mahak
	MahakResponse string
	// MahakRowVersion is Mahak's optimistic-concurrency token observed during
	// this run; a later mismatch means the remote record changed since.
	MahakRowVersion int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeginRun opens a run record with the start timestamp set
func BeginRun(entityType EntityType, entityID *uuid.UUID, syncType SyncType) *SyncRun {
	now := time.Now()
	return &SyncRun{
		ID:            uuid.New(),
		EntityType:    entityType,
		EntityID:      entityID,
		SyncType:      syncType,
		SyncStartedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Complete closes the run, computing the duration from the start timestamp
func (r *SyncRun) Complete(status SyncStatus, processed, successful, failed int, syncData, mahakResponse string, mahakRowVersion int64) {
	now := time.Now()
	r.SyncStatus = status
	r.SyncCompletedAt = &now
	r.DurationMs = now.Sub(r.SyncStartedAt).Milliseconds()
	r.RecordsProcessed = processed
	r.RecordsSuccessful = successful
	r.RecordsFailed = failed
	r.SyncData = syncData
	r.MahakResponse = mahakResponse
	r.MahakRowVersion = mahakRowVersion
	r.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// SyncRunRepository Port
// ---------------------------------------------------------------------------

// SyncRunFilter defines filter criteria for run log listings. SortBy is
// validated against an allowlist at the repository layer.
type SyncRunFilter struct {
	EntityType *EntityType
	SyncType   *SyncType
	SyncStatus *SyncStatus
	Since      *time.Time
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// SyncRunRepository defines the persistence port for sync run logs
type SyncRunRepository interface {
	// Save appends a completed run record. Runs must have been opened via
	// BeginRun; a run without a start timestamp returns ErrRunNotStarted.
	Save(ctx context.Context, run *SyncRun) error

	// GetLogs lists run records for the operational surface
	GetLogs(ctx context.Context, filter SyncRunFilter) ([]*SyncRun, int64, error)
}
