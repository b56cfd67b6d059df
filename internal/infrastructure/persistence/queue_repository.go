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

// GormQueueRepository implements sync.QueueRepository using GORM
type GormQueueRepository struct {
	db *gorm.DB
}

// NewGormQueueRepository creates a new GORM-based sync queue repository
func NewGormQueueRepository(db *gorm.DB) *GormQueueRepository {
	return &GormQueueRepository{db: db}
}

// Save persists a new queue item
func (r *GormQueueRepository) Save(ctx context.Context, item *sync.QueueItem) error {
	model := models.QueueItemModelFromDomain(item)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID retrieves a queue item by ID
func (r *GormQueueRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	var model models.QueueItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrQueueItemNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ClaimDue atomically claims up to limit due pending items.
//
// Candidates are selected ordered by priority then schedule time, and each is
// claimed with a conditional update ("flip to PROCESSING only if still
// PENDING and due"). A row whose conditional update affects zero rows was
// taken by a concurrent driver and is skipped, so no two callers ever claim
// the same item.
func (r *GormQueueRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]*sync.QueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	var candidates []models.QueueItemModel
	err := r.db.WithContext(ctx).
		Where("status = ?", sync.QueueStatusPending).
		Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("priority ASC, COALESCE(scheduled_at, created_at) ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]*sync.QueueItem, 0, len(candidates))
	for i := range candidates {
		result := r.db.WithContext(ctx).
			Model(&models.QueueItemModel{}).
			Where("id = ? AND status = ?", candidates[i].ID, sync.QueueStatusPending).
			Where("scheduled_at IS NULL OR scheduled_at <= ?", now).
			Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
			Updates(map[string]interface{}{
				"status":     sync.QueueStatusProcessing,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return claimed, result.Error
		}
		if result.RowsAffected == 0 {
			// Lost the race to another driver
			continue
		}

		// The conditional update won, so the in-memory transition cannot fail:
		// candidates are selected PENDING.
		item := candidates[i].ToDomain()
		if err := item.MarkProcessing(); err != nil {
			continue
		}
		claimed = append(claimed, item)
	}

	return claimed, nil
}

// UpdateFrom persists a state transition taken from the expected prior
// status. The condition keeps a concurrent transition intact: a PROCESSING
// row that was reclaimed stale (and possibly re-claimed) is no longer ours to
// write, and the zero-row outcome surfaces as ErrQueueClaimLost.
func (r *GormQueueRepository) UpdateFrom(ctx context.Context, item *sync.QueueItem, from sync.QueueStatus) error {
	item.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("id = ? AND status = ?", item.ID, from).
		Updates(map[string]interface{}{
			"status":            item.Status,
			"retry_count":       item.RetryCount,
			"error_message":     item.ErrorMessage,
			"external_response": item.ExternalResponse,
			"next_retry_at":     item.NextRetryAt,
			"processed_at":      item.ProcessedAt,
			"failed_at":         item.FailedAt,
			"updated_at":        item.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.QueueItemModel{}).
			Where("id = ?", item.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return sync.ErrQueueItemNotFound
		}
		return sync.ErrQueueClaimLost
	}
	return nil
}

// MarkCompleted records terminal success. Replaying completion on an already
// completed item affects no rows and is reported as success.
func (r *GormQueueRepository) MarkCompleted(ctx context.Context, id uuid.UUID, externalResponse string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("id = ? AND status <> ?", id, sync.QueueStatusCompleted).
		Updates(map[string]interface{}{
			"status":            sync.QueueStatusCompleted,
			"processed_at":      now,
			"external_response": externalResponse,
			"error_message":     "",
			"next_retry_at":     nil,
			"updated_at":        now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish "already completed" (no-op) from "missing row"
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.QueueItemModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return sync.ErrQueueItemNotFound
		}
	}
	return nil
}

// ReclaimStale resets PROCESSING rows untouched since before cutoff back to
// PENDING. A driver that crashed mid-batch leaves its claims behind; without
// this recovery that work would be lost permanently.
func (r *GormQueueRepository) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Where("status = ? AND updated_at < ?", sync.QueueStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     sync.QueueStatusPending,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Delete soft-deletes a terminal item. Unresolved work is never deleted.
func (r *GormQueueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status IN ?", id, []sync.QueueStatus{
			sync.QueueStatusCompleted,
			sync.QueueStatusFailed,
		}).
		Delete(&models.QueueItemModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.QueueItemModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return sync.ErrQueueItemNotFound
		}
		return sync.ErrQueueNotTerminal
	}
	return nil
}

// DeleteTerminalOlderThan soft-deletes terminal items last updated before the
// given time
func (r *GormQueueRepository) DeleteTerminalOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []sync.QueueStatus{
			sync.QueueStatusCompleted,
			sync.QueueStatusFailed,
		}, before).
		Delete(&models.QueueItemModel{})
	return result.RowsAffected, result.Error
}

// FindAll lists queue items for the operational surface
func (r *GormQueueRepository) FindAll(ctx context.Context, filter sync.QueueFilter) ([]*sync.QueueItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QueueItemModel{})
	if filter.QueueType != nil {
		query = query.Where("queue_type = ?", *filter.QueueType)
	}
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var itemModels []models.QueueItemModel
	if err := query.
		Order(sortClause(filter.SortBy, filter.SortOrder, QueueSortFields, "priority ASC, created_at ASC")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&itemModels).Error; err != nil {
		return nil, 0, err
	}

	items := make([]*sync.QueueItem, len(itemModels))
	for i := range itemModels {
		items[i] = itemModels[i].ToDomain()
	}
	return items, total, nil
}

// CountByStatus returns item counts per status for dashboards
func (r *GormQueueRepository) CountByStatus(ctx context.Context) (map[sync.QueueStatus]int64, error) {
	type statusCount struct {
		Status sync.QueueStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.QueueItemModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[sync.QueueStatus]int64)
	for _, rc := range results {
		counts[rc.Status] = rc.Count
	}
	return counts, nil
}

// normalizePage applies the default pagination window
func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}

// Ensure GormQueueRepository implements sync.QueueRepository
var _ sync.QueueRepository = (*GormQueueRepository)(nil)
