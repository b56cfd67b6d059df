package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopino/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// QueueItemModel
// ---------------------------------------------------------------------------

// QueueItemModel is the persistence model for sync queue items. Soft delete
// is handled by gorm.DeletedAt so the query layer filters removed rows
// without every caller remembering the predicate.
type QueueItemModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primaryKey"`
	QueueType     sync.QueueType     `gorm:"type:varchar(20);not null;index:idx_queue_type_status,priority:1"`
	OperationType sync.OperationType `gorm:"type:varchar(20);not null"`
	EntityType    sync.EntityType    `gorm:"type:varchar(20);not null;index:idx_queue_entity,priority:1"`
	EntityID      *uuid.UUID         `gorm:"type:uuid;index:idx_queue_entity,priority:2"`
	Priority      int                `gorm:"not null;default:5;index:idx_queue_claim,priority:2"`
	Payload       []byte             `gorm:"type:jsonb;not null"`
	Status        sync.QueueStatus   `gorm:"type:varchar(20);not null;default:PENDING;index:idx_queue_type_status,priority:2;index:idx_queue_claim,priority:1"`

	RetryCount  int `gorm:"not null;default:0"`
	MaxRetries  int `gorm:"not null;default:3"`
	ScheduledAt *time.Time
	NextRetryAt *time.Time `gorm:"index:idx_queue_next_retry"`
	ProcessedAt *time.Time
	FailedAt    *time.Time

	ErrorMessage     string `gorm:"type:text"`
	ExternalResponse string `gorm:"type:text"`

	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index:idx_queue_updated"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (QueueItemModel) TableName() string {
	return "sync_queue_items"
}

// ToDomain converts the persistence model to a domain QueueItem
func (m *QueueItemModel) ToDomain() *sync.QueueItem {
	return &sync.QueueItem{
		ID:               m.ID,
		QueueType:        m.QueueType,
		OperationType:    m.OperationType,
		EntityType:       m.EntityType,
		EntityID:         m.EntityID,
		Priority:         m.Priority,
		Payload:          m.Payload,
		Status:           m.Status,
		RetryCount:       m.RetryCount,
		MaxRetries:       m.MaxRetries,
		ScheduledAt:      m.ScheduledAt,
		NextRetryAt:      m.NextRetryAt,
		ProcessedAt:      m.ProcessedAt,
		FailedAt:         m.FailedAt,
		ErrorMessage:     m.ErrorMessage,
		ExternalResponse: m.ExternalResponse,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain QueueItem
func (m *QueueItemModel) FromDomain(i *sync.QueueItem) {
	m.ID = i.ID
	m.QueueType = i.QueueType
	m.OperationType = i.OperationType
	m.EntityType = i.EntityType
	m.EntityID = i.EntityID
	m.Priority = i.Priority
	m.Payload = i.Payload
	m.Status = i.Status
	m.RetryCount = i.RetryCount
	m.MaxRetries = i.MaxRetries
	m.ScheduledAt = i.ScheduledAt
	m.NextRetryAt = i.NextRetryAt
	m.ProcessedAt = i.ProcessedAt
	m.FailedAt = i.FailedAt
	m.ErrorMessage = i.ErrorMessage
	m.ExternalResponse = i.ExternalResponse
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// QueueItemModelFromDomain creates a new persistence model from a domain QueueItem
func QueueItemModelFromDomain(i *sync.QueueItem) *QueueItemModel {
	m := &QueueItemModel{}
	m.FromDomain(i)
	return m
}

// ---------------------------------------------------------------------------
// IdentityMappingModel
// ---------------------------------------------------------------------------

// IdentityMappingModel is the persistence model for cross-system identity
// mappings. The partial unique index keeps at most one active row per
// (entity_type, local_entity_id) while allowing soft-deleted history.
type IdentityMappingModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EntityType      sync.EntityType `gorm:"type:varchar(20);not null;index:idx_mapping_local,priority:1;index:idx_mapping_mahak,priority:1"`
	LocalEntityID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_mapping_local,priority:2"`
	MahakEntityID   int64           `gorm:"not null;index:idx_mapping_mahak,priority:2"`
	MahakEntityCode string          `gorm:"type:varchar(100)"`
	Notes           string          `gorm:"type:text"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
	DeletedAt       gorm.DeletedAt  `gorm:"index"`
}

// TableName returns the table name for GORM
func (IdentityMappingModel) TableName() string {
	return "identity_mappings"
}

// ToDomain converts the persistence model to a domain IdentityMapping
func (m *IdentityMappingModel) ToDomain() *sync.IdentityMapping {
	return &sync.IdentityMapping{
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

// FromDomain populates the persistence model from a domain IdentityMapping
func (m *IdentityMappingModel) FromDomain(im *sync.IdentityMapping) {
	m.ID = im.ID
	m.EntityType = im.EntityType
	m.LocalEntityID = im.LocalEntityID
	m.MahakEntityID = im.MahakEntityID
	m.MahakEntityCode = im.MahakEntityCode
	m.Notes = im.Notes
	m.CreatedAt = im.CreatedAt
	m.UpdatedAt = im.UpdatedAt
}

// ---------------------------------------------------------------------------
// SyncRunModel
// ---------------------------------------------------------------------------

// SyncRunModel is the persistence model for the append-only sync run log.
type SyncRunModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EntityType sync.EntityType `gorm:"type:varchar(20);not null;index:idx_run_entity_started,priority:1"`
	EntityID   *uuid.UUID      `gorm:"type:uuid"`
	SyncType   sync.SyncType   `gorm:"type:varchar(20);not null"`
	SyncStatus sync.SyncStatus `gorm:"type:varchar(20);not null"`

	SyncStartedAt   time.Time `gorm:"not null;index:idx_run_entity_started,priority:2"`
	SyncCompletedAt *time.Time
	DurationMs      int64

	RecordsProcessed  int
	RecordsSuccessful int
	RecordsFailed     int

	SyncData        string `gorm:"type:text"`
	MahakResponse   string `gorm:"type:text"`
	MahakRowVersion int64

	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_run_logs"
}

// ToDomain converts the persistence model to a domain SyncRun
func (m *SyncRunModel) ToDomain() *sync.SyncRun {
	return &sync.SyncRun{
		ID:                m.ID,
		EntityType:        m.EntityType,
		EntityID:          m.EntityID,
		SyncType:          m.SyncType,
		SyncStatus:        m.SyncStatus,
		SyncStartedAt:     m.SyncStartedAt,
		SyncCompletedAt:   m.SyncCompletedAt,
		DurationMs:        m.DurationMs,
		RecordsProcessed:  m.RecordsProcessed,
		RecordsSuccessful: m.RecordsSuccessful,
		RecordsFailed:     m.RecordsFailed,
		SyncData:          m.SyncData,
		MahakResponse:     m.MahakResponse,
		MahakRowVersion:   m.MahakRowVersion,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRun
func (m *SyncRunModel) FromDomain(r *sync.SyncRun) {
	m.ID = r.ID
	m.EntityType = r.EntityType
	m.EntityID = r.EntityID
	m.SyncType = r.SyncType
	m.SyncStatus = r.SyncStatus
	m.SyncStartedAt = r.SyncStartedAt
	m.SyncCompletedAt = r.SyncCompletedAt
	m.DurationMs = r.DurationMs
	m.RecordsProcessed = r.RecordsProcessed
	m.RecordsSuccessful = r.RecordsSuccessful
	m.RecordsFailed = r.RecordsFailed
	m.SyncData = r.SyncData
	m.MahakResponse = r.MahakResponse
	m.MahakRowVersion = r.MahakRowVersion
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// ---------------------------------------------------------------------------
// ErrorEntryModel
// ---------------------------------------------------------------------------

// ErrorEntryModel is the persistence model for deduplicated error log rows.
type ErrorEntryModel struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ErrorType    string             `gorm:"type:varchar(50);not null"`
	EntityType   sync.EntityType    `gorm:"type:varchar(20);not null;index:idx_error_dedup,priority:1"`
	EntityID     *uuid.UUID         `gorm:"type:uuid;index:idx_error_dedup,priority:2"`
	ErrorCode    string             `gorm:"type:varchar(100);not null;index:idx_error_dedup,priority:3"`
	ErrorMessage string             `gorm:"type:text"`
	StackTrace   string             `gorm:"type:text"`
	RequestData  string             `gorm:"type:text"`
	ResponseData string             `gorm:"type:text"`
	Severity     sync.ErrorSeverity `gorm:"type:varchar(20);not null;default:MEDIUM"`

	IsResolved    bool `gorm:"not null;default:false;index:idx_error_dedup,priority:4"`
	ResolvedAt    *time.Time
	ResolvedBy    string `gorm:"type:varchar(100)"`
	ResolvedNotes string `gorm:"type:text"`

	OccurrenceCount int       `gorm:"not null;default:1"`
	LastOccurredAt  time.Time `gorm:"not null"`

	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for GORM
func (ErrorEntryModel) TableName() string {
	return "sync_error_logs"
}

// ToDomain converts the persistence model to a domain ErrorEntry
func (m *ErrorEntryModel) ToDomain() *sync.ErrorEntry {
	return &sync.ErrorEntry{
		ID:              m.ID,
		ErrorType:       m.ErrorType,
		EntityType:      m.EntityType,
		EntityID:        m.EntityID,
		ErrorCode:       m.ErrorCode,
		ErrorMessage:    m.ErrorMessage,
		StackTrace:      m.StackTrace,
		RequestData:     m.RequestData,
		ResponseData:    m.ResponseData,
		Severity:        m.Severity,
		IsResolved:      m.IsResolved,
		ResolvedAt:      m.ResolvedAt,
		ResolvedBy:      m.ResolvedBy,
		ResolvedNotes:   m.ResolvedNotes,
		OccurrenceCount: m.OccurrenceCount,
		LastOccurredAt:  m.LastOccurredAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ErrorEntry
func (m *ErrorEntryModel) FromDomain(e *sync.ErrorEntry) {
	m.ID = e.ID
	m.ErrorType = e.ErrorType
	m.EntityType = e.EntityType
	m.EntityID = e.EntityID
	m.ErrorCode = e.ErrorCode
	m.ErrorMessage = e.ErrorMessage
	m.StackTrace = e.StackTrace
	m.RequestData = e.RequestData
	m.ResponseData = e.ResponseData
	m.Severity = e.Severity
	m.IsResolved = e.IsResolved
	m.ResolvedAt = e.ResolvedAt
	m.ResolvedBy = e.ResolvedBy
	m.ResolvedNotes = e.ResolvedNotes
	m.OccurrenceCount = e.OccurrenceCount
	m.LastOccurredAt = e.LastOccurredAt
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}
