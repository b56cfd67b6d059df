package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

// QueueType identifies the synchronization channel a queue item belongs to.
type QueueType string

const (
	QueueTypeOrder     QueueType = "ORDER"
	QueueTypeProduct   QueueType = "PRODUCT"
	QueueTypeCategory  QueueType = "CATEGORY"
	QueueTypeCustomer  QueueType = "CUSTOMER"
	QueueTypeInventory QueueType = "INVENTORY"
)

// IsValid returns true if the queue type is valid
func (t QueueType) IsValid() bool {
	switch t {
	case QueueTypeOrder, QueueTypeProduct, QueueTypeCategory,
		QueueTypeCustomer, QueueTypeInventory:
		return true
	default:
		return false
	}
}

// String returns the string representation of QueueType
func (t QueueType) String() string {
	return string(t)
}

// OperationType identifies what should happen to the entity on the remote side.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

// IsValid returns true if the operation type is valid
func (o OperationType) IsValid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	default:
		return false
	}
}

// String returns the string representation of OperationType
func (o OperationType) String() string {
	return string(o)
}

// EntityType identifies the kind of local commerce entity being synchronized.
type EntityType string

const (
	EntityTypeOrder    EntityType = "ORDER"
	EntityTypeProduct  EntityType = "PRODUCT"
	EntityTypeCategory EntityType = "CATEGORY"
	EntityTypeCustomer EntityType = "CUSTOMER"
)

// IsValid returns true if the entity type is valid
func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeOrder, EntityTypeProduct, EntityTypeCategory, EntityTypeCustomer:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType
func (e EntityType) String() string {
	return string(e)
}

// QueueStatus represents the lifecycle state of a queue item.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "PENDING"
	QueueStatusProcessing QueueStatus = "PROCESSING"
	QueueStatusCompleted  QueueStatus = "COMPLETED"
	QueueStatusFailed     QueueStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s QueueStatus) IsValid() bool {
	switch s {
	case QueueStatusPending, QueueStatusProcessing, QueueStatusCompleted, QueueStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a final state
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusCompleted || s == QueueStatusFailed
}

// String returns the string representation of QueueStatus
func (s QueueStatus) String() string {
	return string(s)
}

// Default queue configuration
const (
	DefaultPriority   = 5
	DefaultMaxRetries = 3
)

// ---------------------------------------------------------------------------
// QueueItem Entity
// ---------------------------------------------------------------------------

// QueueItem is one unit of pending synchronization work. The payload is an
// immutable snapshot of the entity taken at enqueue time; drivers never read
// the live entity when pushing to Mahak.
type QueueItem struct {
	ID            uuid.UUID
	QueueType     QueueType
	OperationType OperationType
	EntityType    EntityType
	// EntityID is nil for operations that are not entity-scoped
	// (e.g. a full inventory push).
	EntityID *uuid.UUID
	// Priority orders claims; lower values are more urgent.
	Priority int
	Payload  []byte
	Status   QueueStatus

	RetryCount  int
	MaxRetries  int
	ScheduledAt *time.Time
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	FailedAt    *time.Time

	ErrorMessage     string
	ExternalResponse string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewQueueItem creates a pending queue item. It validates input only; no I/O
// is performed, so enqueueing never fails due to external-system state.
func NewQueueItem(queueType QueueType, operation OperationType, entityType EntityType, entityID *uuid.UUID, payload []byte) (*QueueItem, error) {
	if !queueType.IsValid() {
		return nil, ErrQueueInvalidType
	}
	if !operation.IsValid() {
		return nil, ErrQueueInvalidOperation
	}
	if !entityType.IsValid() {
		return nil, ErrQueueInvalidEntity
	}
	if len(payload) == 0 {
		return nil, ErrQueueEmptyPayload
	}

	now := time.Now()
	return &QueueItem{
		ID:            uuid.New(),
		QueueType:     queueType,
		OperationType: operation,
		EntityType:    entityType,
		EntityID:      entityID,
		Priority:      DefaultPriority,
		Payload:       payload,
		Status:        QueueStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// WithPriority overrides the default priority
func (i *QueueItem) WithPriority(priority int) *QueueItem {
	i.Priority = priority
	return i
}

// WithMaxRetries overrides the default retry budget
func (i *QueueItem) WithMaxRetries(maxRetries int) *QueueItem {
	i.MaxRetries = maxRetries
	return i
}

// WithScheduledAt defers the earliest eligible processing time
func (i *QueueItem) WithScheduledAt(at time.Time) *QueueItem {
	i.ScheduledAt = &at
	return i
}

// IsDue returns true if the item is eligible for claiming at the given time
func (i *QueueItem) IsDue(now time.Time) bool {
	if i.Status != QueueStatusPending {
		return false
	}
	if i.ScheduledAt != nil && i.ScheduledAt.After(now) {
		return false
	}
	if i.NextRetryAt != nil && i.NextRetryAt.After(now) {
		return false
	}
	return true
}

// MarkProcessing transitions the item to PROCESSING. Only pending items can
// be claimed; the repository enforces the same rule atomically.
func (i *QueueItem) MarkProcessing() error {
	if i.Status != QueueStatusPending {
		return ErrQueueAlreadyTerminal
	}
	i.Status = QueueStatusProcessing
	i.UpdatedAt = time.Now()
	return nil
}

// MarkCompleted records terminal success. Completing an already completed
// item is a no-op so replays cannot change ProcessedAt.
func (i *QueueItem) MarkCompleted(externalResponse string) {
	if i.Status == QueueStatusCompleted {
		return
	}
	now := time.Now()
	i.Status = QueueStatusCompleted
	i.ProcessedAt = &now
	i.ExternalResponse = externalResponse
	i.ErrorMessage = ""
	i.NextRetryAt = nil
	i.UpdatedAt = now
}

// MarkFailed records a failed attempt. Retryable failures go back to PENDING
// with the next attempt scheduled after retryInterval; once the retry budget
// is spent, or when permanent is true, the item becomes terminally FAILED.
func (i *QueueItem) MarkFailed(errMsg, externalResponse string, permanent bool, retryInterval time.Duration) {
	now := time.Now()
	i.RetryCount++
	if i.RetryCount > i.MaxRetries {
		i.RetryCount = i.MaxRetries
	}
	i.ErrorMessage = errMsg
	i.ExternalResponse = externalResponse
	i.UpdatedAt = now

	if permanent || i.RetryCount >= i.MaxRetries {
		i.Status = QueueStatusFailed
		i.FailedAt = &now
		i.NextRetryAt = nil
		return
	}

	i.Status = QueueStatusPending
	nextRetry := now.Add(retryInterval)
	i.NextRetryAt = &nextRetry
}

// Reschedule returns a claimed item to PENDING without consuming retry
// budget. Used when the push could not even be attempted, e.g. while no
// Mahak endpoint is configured.
func (i *QueueItem) Reschedule(delay time.Duration) {
	now := time.Now()
	i.Status = QueueStatusPending
	next := now.Add(delay)
	i.NextRetryAt = &next
	i.UpdatedAt = now
}

// ResetForRetry re-opens a terminally failed item with a fresh retry budget.
// Used by operators from the dashboard.
func (i *QueueItem) ResetForRetry() error {
	if i.Status != QueueStatusFailed {
		return ErrQueueNotTerminal
	}
	i.Status = QueueStatusPending
	i.RetryCount = 0
	i.ErrorMessage = ""
	i.NextRetryAt = nil
	i.FailedAt = nil
	i.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// QueueRepository Port
// ---------------------------------------------------------------------------

// QueueFilter defines filter criteria for queue item listings. SortBy is
// validated against an allowlist at the repository layer; unknown fields fall
// back to the default ordering.
type QueueFilter struct {
	QueueType  *QueueType
	EntityType *EntityType
	Status     *QueueStatus
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// QueueRepository defines the persistence port for the sync queue.
//
// ClaimDue and ReclaimStale are the only operations that may transition rows
// concurrently with the drivers; implementations must perform them as atomic
// conditional updates so two drivers never claim the same row.
type QueueRepository interface {
	// Save persists a new queue item
	Save(ctx context.Context, item *QueueItem) error

	// FindByID retrieves a queue item by ID
	FindByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)

	// ClaimDue atomically selects up to limit pending items that are due at
	// now, ordered by priority then scheduled time, and flips them to
	// PROCESSING. Each returned item is claimed by exactly one caller.
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]*QueueItem, error)

	// UpdateFrom persists a state transition taken from the expected prior
	// status. The write is conditional on the row still holding that status,
	// so a transition raced by another driver (e.g. a stale reclaim) is never
	// clobbered; zero affected rows returns ErrQueueClaimLost.
	UpdateFrom(ctx context.Context, item *QueueItem, from QueueStatus) error

	// MarkCompleted records terminal success. Idempotent: completing an
	// already completed item changes nothing.
	MarkCompleted(ctx context.Context, id uuid.UUID, externalResponse string) error

	// ReclaimStale resets PROCESSING rows untouched since before cutoff back
	// to PENDING so work survives a crashed driver. Returns rows recovered.
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)

	// Delete soft-deletes a terminal item
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteTerminalOlderThan soft-deletes terminal items last updated before
	// the given time. Returns rows affected.
	DeleteTerminalOlderThan(ctx context.Context, before time.Time) (int64, error)

	// FindAll lists queue items for the operational surface
	FindAll(ctx context.Context, filter QueueFilter) ([]*QueueItem, int64, error)

	// CountByStatus returns item counts per status for dashboards
	CountByStatus(ctx context.Context) (map[QueueStatus]int64, error)
}
