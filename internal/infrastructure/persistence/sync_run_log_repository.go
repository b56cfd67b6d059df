package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements sync.SyncRunRepository using GORM.
// The run log is a write-mostly audit trail; GetLogs exists only for the
// operational dashboards.
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GORM-based sync run log repository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Save appends a completed run record. A run that was never opened via
// BeginRun carries no start timestamp and is rejected rather than written as
// a hole in the audit trail.
func (r *GormSyncRunRepository) Save(ctx context.Context, run *sync.SyncRun) error {
	if run.SyncStartedAt.IsZero() {
		return sync.ErrRunNotStarted
	}
	model := &models.SyncRunModel{}
	model.FromDomain(run)
	return r.db.WithContext(ctx).Create(model).Error
}

// GetLogs lists run records for the operational surface
func (r *GormSyncRunRepository) GetLogs(ctx context.Context, filter sync.SyncRunFilter) ([]*sync.SyncRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncRunModel{})
	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}
	if filter.SyncType != nil {
		query = query.Where("sync_type = ?", *filter.SyncType)
	}
	if filter.SyncStatus != nil {
		query = query.Where("sync_status = ?", *filter.SyncStatus)
	}
	if filter.Since != nil {
		query = query.Where("sync_started_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	var runModels []models.SyncRunModel
	if err := query.
		Order(sortClause(filter.SortBy, filter.SortOrder, RunLogSortFields, "sync_started_at DESC")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runModels).Error; err != nil {
		return nil, 0, err
	}

	runs := make([]*sync.SyncRun, len(runModels))
	for i := range runModels {
		runs[i] = runModels[i].ToDomain()
	}
	return runs, total, nil
}

// Ensure GormSyncRunRepository implements sync.SyncRunRepository
var _ sync.SyncRunRepository = (*GormSyncRunRepository)(nil)
