package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopino/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Payload Snapshots
// ---------------------------------------------------------------------------
// Queue payloads are immutable snapshots taken at enqueue time. Amounts use
// decimal strings on the wire so Mahak never sees binary floating point.

// OrderLineSnapshot is one line of an order payload
type OrderLineSnapshot struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

// OrderSyncPayload is the serialized order snapshot pushed to Mahak
type OrderSyncPayload struct {
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	CustomerID  *uuid.UUID          `json:"customer_id,omitempty"`
	Status      string              `json:"status"`
	Lines       []OrderLineSnapshot `json:"lines"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Tax         decimal.Decimal     `json:"tax"`
	Shipping    decimal.Decimal     `json:"shipping"`
	GrandTotal  decimal.Decimal     `json:"grand_total"`
	PlacedAt    time.Time           `json:"placed_at"`
}

// ProductSyncPayload is the serialized product snapshot pushed to Mahak
type ProductSyncPayload struct {
	ProductID  uuid.UUID       `json:"product_id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Price      decimal.Decimal `json:"price"`
	IsActive   bool            `json:"is_active"`
}

// CategorySyncPayload is the serialized category snapshot pushed to Mahak
type CategorySyncPayload struct {
	CategoryID uuid.UUID  `json:"category_id"`
	Name       string     `json:"name"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
}

// CustomerSyncPayload is the serialized customer snapshot pushed to Mahak
type CustomerSyncPayload struct {
	CustomerID uuid.UUID `json:"customer_id"`
	FullName   string    `json:"full_name"`
	Mobile     string    `json:"mobile"`
	Email      string    `json:"email,omitempty"`
	Address    string    `json:"address,omitempty"`
}

// InventorySyncPayload carries stock levels for a full or partial push
type InventorySyncPayload struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	AsOf      time.Time       `json:"as_of"`
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// EnqueueRequest is the generic enqueue input
type EnqueueRequest struct {
	QueueType     sync.QueueType     `json:"queue_type" binding:"required"`
	OperationType sync.OperationType `json:"operation_type" binding:"required"`
	EntityType    sync.EntityType    `json:"entity_type" binding:"required"`
	EntityID      *uuid.UUID         `json:"entity_id,omitempty"`
	Payload       []byte             `json:"payload" binding:"required"`
	// Priority overrides the default when > 0; lower is more urgent
	Priority int `json:"priority,omitempty"`
	// MaxRetries overrides the default retry budget when > 0
	MaxRetries int `json:"max_retries,omitempty"`
	// ScheduledAt defers the earliest eligible processing time
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ResolveErrorRequest marks an error log entry resolved
type ResolveErrorRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required"`
	Notes      string `json:"notes,omitempty"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// QueueItemResponse represents a queue item in API responses
type QueueItemResponse struct {
	ID            uuid.UUID          `json:"id"`
	QueueType     sync.QueueType     `json:"queue_type"`
	OperationType sync.OperationType `json:"operation_type"`
	EntityType    sync.EntityType    `json:"entity_type"`
	EntityID      *uuid.UUID         `json:"entity_id,omitempty"`
	Priority      int                `json:"priority"`
	Status        sync.QueueStatus   `json:"status"`
	RetryCount    int                `json:"retry_count"`
	MaxRetries    int                `json:"max_retries"`
	ScheduledAt   *time.Time         `json:"scheduled_at,omitempty"`
	NextRetryAt   *time.Time         `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time         `json:"processed_at,omitempty"`
	FailedAt      *time.Time         `json:"failed_at,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// ToQueueItemResponse converts a queue item to its API representation
func ToQueueItemResponse(item *sync.QueueItem) QueueItemResponse {
	return QueueItemResponse{
		ID:            item.ID,
		QueueType:     item.QueueType,
		OperationType: item.OperationType,
		EntityType:    item.EntityType,
		EntityID:      item.EntityID,
		Priority:      item.Priority,
		Status:        item.Status,
		RetryCount:    item.RetryCount,
		MaxRetries:    item.MaxRetries,
		ScheduledAt:   item.ScheduledAt,
		NextRetryAt:   item.NextRetryAt,
		ProcessedAt:   item.ProcessedAt,
		FailedAt:      item.FailedAt,
		ErrorMessage:  item.ErrorMessage,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

// MappingResponse represents an identity mapping in API responses
type MappingResponse struct {
	ID              uuid.UUID       `json:"id"`
	EntityType      sync.EntityType `json:"entity_type"`
	LocalEntityID   uuid.UUID       `json:"local_entity_id"`
	MahakEntityID   int64           `json:"mahak_entity_id"`
	MahakEntityCode string          `json:"mahak_entity_code,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ToMappingResponse converts an identity mapping to its API representation
func ToMappingResponse(m *sync.IdentityMapping) MappingResponse {
	return MappingResponse{
		ID:              m.ID,
		EntityType:      m.EntityType,
		LocalEntityID:   m.LocalEntityID,
		MahakEntityID:   m.MahakEntityID,
		MahakEntityCode: m.MahakEntityCode,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// SyncRunResponse represents a sync run record in API responses
type SyncRunResponse struct {
	ID                uuid.UUID       `json:"id"`
	EntityType        sync.EntityType `json:"entity_type"`
	EntityID          *uuid.UUID      `json:"entity_id,omitempty"`
	SyncType          sync.SyncType   `json:"sync_type"`
	SyncStatus        sync.SyncStatus `json:"sync_status"`
	SyncStartedAt     time.Time       `json:"sync_started_at"`
	SyncCompletedAt   *time.Time      `json:"sync_completed_at,omitempty"`
	DurationMs        int64           `json:"duration_ms"`
	RecordsProcessed  int             `json:"records_processed"`
	RecordsSuccessful int             `json:"records_successful"`
	RecordsFailed     int             `json:"records_failed"`
	MahakRowVersion   int64           `json:"mahak_row_version,omitempty"`
}

// ToSyncRunResponse converts a sync run to its API representation
func ToSyncRunResponse(r *sync.SyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:                r.ID,
		EntityType:        r.EntityType,
		EntityID:          r.EntityID,
		SyncType:          r.SyncType,
		SyncStatus:        r.SyncStatus,
		SyncStartedAt:     r.SyncStartedAt,
		SyncCompletedAt:   r.SyncCompletedAt,
		DurationMs:        r.DurationMs,
		RecordsProcessed:  r.RecordsProcessed,
		RecordsSuccessful: r.RecordsSuccessful,
		RecordsFailed:     r.RecordsFailed,
		MahakRowVersion:   r.MahakRowVersion,
	}
}

// ErrorEntryResponse represents an error log entry in API responses
type ErrorEntryResponse struct {
	ID              uuid.UUID          `json:"id"`
	ErrorType       string             `json:"error_type"`
	EntityType      sync.EntityType    `json:"entity_type"`
	EntityID        *uuid.UUID         `json:"entity_id,omitempty"`
	ErrorCode       string             `json:"error_code"`
	ErrorMessage    string             `json:"error_message"`
	Severity        sync.ErrorSeverity `json:"severity"`
	OccurrenceCount int                `json:"occurrence_count"`
	LastOccurredAt  time.Time          `json:"last_occurred_at"`
	IsResolved      bool               `json:"is_resolved"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
	ResolvedBy      string             `json:"resolved_by,omitempty"`
	ResolutionNotes string             `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// ToErrorEntryResponse converts an error log entry to its API representation
func ToErrorEntryResponse(e *sync.ErrorEntry) ErrorEntryResponse {
	return ErrorEntryResponse{
		ID:              e.ID,
		ErrorType:       e.ErrorType,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		ErrorCode:       e.ErrorCode,
		ErrorMessage:    e.ErrorMessage,
		Severity:        e.Severity,
		OccurrenceCount: e.OccurrenceCount,
		LastOccurredAt:  e.LastOccurredAt,
		IsResolved:      e.IsResolved,
		ResolvedAt:      e.ResolvedAt,
		ResolvedBy:      e.ResolvedBy,
		ResolutionNotes: e.ResolvedNotes,
		CreatedAt:       e.CreatedAt,
	}
}

// QueueStatsResponse summarizes the queue for dashboards
type QueueStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Completed  int64 `json:"completed"`
	Failed     int64 `json:"failed"`
}
