package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/infrastructure/persistence/models"
)

// GormIdentityMappingRepository implements sync.IdentityMappingRepository
// using GORM. Soft-deleted rows are filtered by the gorm.DeletedAt clause on
// every query, so callers never observe a dangling mapping.
type GormIdentityMappingRepository struct {
	db *gorm.DB
}

// NewGormIdentityMappingRepository creates a new GORM-based identity mapping repository
func NewGormIdentityMappingRepository(db *gorm.DB) *GormIdentityMappingRepository {
	return &GormIdentityMappingRepository{db: db}
}

// Resolve returns the active mapping for a local entity
func (r *GormIdentityMappingRepository) Resolve(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) (*sync.IdentityMapping, error) {
	var model models.IdentityMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND local_entity_id = ?", entityType, localEntityID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ResolveByMahakID returns the active mapping for a Mahak entity id
func (r *GormIdentityMappingRepository) ResolveByMahakID(ctx context.Context, entityType sync.EntityType, mahakEntityID int64) (*sync.IdentityMapping, error) {
	var model models.IdentityMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND mahak_entity_id = ?", entityType, mahakEntityID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Upsert creates the mapping if absent, otherwise updates code and notes
// only. The external id is the idempotency anchor of the sync engine, so
// rebinding an existing active mapping to a different Mahak id is rejected
// with sync.ErrMappingRebind instead of silently orphaning prior remote
// writes.
func (r *GormIdentityMappingRepository) Upsert(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID, mahakEntityID int64, mahakEntityCode, notes string) (*sync.IdentityMapping, error) {
	var mapping *sync.IdentityMapping

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.IdentityMappingModel
		err := tx.
			Where("entity_type = ? AND local_entity_id = ?", entityType, localEntityID).
			First(&model).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			created, newErr := sync.NewIdentityMapping(entityType, localEntityID, mahakEntityID, mahakEntityCode)
			if newErr != nil {
				return newErr
			}
			created.Notes = notes
			createdModel := &models.IdentityMappingModel{}
			createdModel.FromDomain(created)
			if err := tx.Create(createdModel).Error; err != nil {
				return err
			}
			mapping = created
			return nil
		}
		if err != nil {
			return err
		}

		existing := model.ToDomain()
		if existing.Rebind(mahakEntityID) {
			return sync.ErrMappingRebind
		}
		existing.UpdateCode(mahakEntityCode, notes)
		model.FromDomain(existing)
		if err := tx.Save(&model).Error; err != nil {
			return err
		}
		mapping = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

// Delete soft-deletes the active mapping for a local entity
func (r *GormIdentityMappingRepository) Delete(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("entity_type = ? AND local_entity_id = ?", entityType, localEntityID).
		Delete(&models.IdentityMappingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sync.ErrMappingNotFound
	}
	return nil
}

// FindByEntityType lists active mappings of one entity type
func (r *GormIdentityMappingRepository) FindByEntityType(ctx context.Context, entityType sync.EntityType, page, pageSize int) ([]*sync.IdentityMapping, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.IdentityMappingModel{}).
		Where("entity_type = ?", entityType)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = normalizePage(page, pageSize)
	var mappingModels []models.IdentityMappingModel
	if err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&mappingModels).Error; err != nil {
		return nil, 0, err
	}

	mappings := make([]*sync.IdentityMapping, len(mappingModels))
	for i := range mappingModels {
		mappings[i] = mappingModels[i].ToDomain()
	}
	return mappings, total, nil
}

// Ensure GormIdentityMappingRepository implements sync.IdentityMappingRepository
var _ sync.IdentityMappingRepository = (*GormIdentityMappingRepository)(nil)
