package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/infrastructure/persistence/models"
)

// GormErrorLogRepository implements sync.ErrorLogRepository using GORM
type GormErrorLogRepository struct {
	db *gorm.DB
}

// NewGormErrorLogRepository creates a new GORM-based error log repository
func NewGormErrorLogRepository(db *gorm.DB) *GormErrorLogRepository {
	return &GormErrorLogRepository{db: db}
}

// Record stores a failure occurrence, deduplicating against the existing
// unresolved entry for the same (EntityType, EntityID, ErrorCode). The
// lookup and increment run in one transaction so two drivers recording the
// same failure concurrently cannot lose a count.
func (r *GormErrorLogRepository) Record(ctx context.Context, rec sync.ErrorRecord) (*sync.ErrorEntry, error) {
	var entry *sync.ErrorEntry

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.
			Where("entity_type = ? AND error_code = ? AND is_resolved = ?", rec.EntityType, rec.ErrorCode, false)
		if rec.EntityID != nil {
			query = query.Where("entity_id = ?", *rec.EntityID)
		} else {
			query = query.Where("entity_id IS NULL")
		}

		var model models.ErrorEntryModel
		err := query.First(&model).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := sync.NewErrorEntry(rec.ErrorType, rec.EntityType, rec.EntityID, rec.ErrorCode, rec.Message, rec.Severity)
			created.StackTrace = rec.StackTrace
			created.RequestData = rec.RequestData
			created.ResponseData = rec.ResponseData
			createdModel := &models.ErrorEntryModel{}
			createdModel.FromDomain(created)
			if err := tx.Create(createdModel).Error; err != nil {
				return err
			}
			entry = created
			return nil
		}
		if err != nil {
			return err
		}

		existing := model.ToDomain()
		existing.Recur(rec.Message, rec.RequestData, rec.ResponseData)
		model.FromDomain(existing)
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		entry = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// FindByID retrieves an entry by ID
func (r *GormErrorLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.ErrorEntry, error) {
	var model models.ErrorEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrErrorLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Resolve marks an entry resolved
func (r *GormErrorLogRepository) Resolve(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.ErrorEntryModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return sync.ErrErrorLogNotFound
			}
			return err
		}

		entry := model.ToDomain()
		if err := entry.Resolve(resolvedBy, notes); err != nil {
			return err
		}
		model.FromDomain(entry)
		return tx.Save(&model).Error
	})
}

// ResolveForEntity resolves all unresolved entries for an entity. Called by
// the processing pipeline when a later sync of the same entity succeeds.
func (r *GormErrorLogRepository) ResolveForEntity(ctx context.Context, entityType sync.EntityType, entityID uuid.UUID, notes string) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.ErrorEntryModel{}).
		Where("entity_type = ? AND entity_id = ? AND is_resolved = ?", entityType, entityID, false).
		Updates(map[string]interface{}{
			"is_resolved":    true,
			"resolved_at":    now,
			"resolved_by":    "system",
			"resolved_notes": notes,
			"updated_at":     now,
		})
	return result.RowsAffected, result.Error
}

// FindAll lists entries for the operational surface
func (r *GormErrorLogRepository) FindAll(ctx context.Context, filter sync.ErrorLogFilter) ([]*sync.ErrorEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ErrorEntryModel{})
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Resolved != nil {
		query = query.Where("is_resolved = ?", *filter.Resolved)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var entryModels []models.ErrorEntryModel
	if err := query.
		Order(sortClause(filter.SortBy, filter.SortOrder, ErrorLogSortFields, "last_occurred_at DESC")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*sync.ErrorEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries, total, nil
}

// CountUnresolved returns the number of open entries per severity
func (r *GormErrorLogRepository) CountUnresolved(ctx context.Context) (map[sync.ErrorSeverity]int64, error) {
	type severityCount struct {
		Severity sync.ErrorSeverity
		Count    int64
	}

	var results []severityCount
	err := r.db.WithContext(ctx).
		Model(&models.ErrorEntryModel{}).
		Select("severity, count(*) as count").
		Where("is_resolved = ?", false).
		Group("severity").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[sync.ErrorSeverity]int64)
	for _, sc := range results {
		counts[sc.Severity] = sc.Count
	}
	return counts, nil
}

// Ensure GormErrorLogRepository implements sync.ErrorLogRepository
var _ sync.ErrorLogRepository = (*GormErrorLogRepository)(nil)
