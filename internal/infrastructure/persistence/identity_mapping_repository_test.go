package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/infrastructure/persistence/models"
)

func TestGormIdentityMappingRepository_Upsert(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormIdentityMappingRepository(db)
	ctx := context.Background()
	localID := uuid.New()

	t.Run("creates mapping on first push", func(t *testing.T) {
		mapping, err := repo.Upsert(ctx, sync.EntityTypeOrder, localID, 1234, "ORD-1234", "")
		require.NoError(t, err)
		assert.Equal(t, int64(1234), mapping.MahakEntityID)

		found, err := repo.Resolve(ctx, sync.EntityTypeOrder, localID)
		require.NoError(t, err)
		assert.Equal(t, int64(1234), found.MahakEntityID)
		assert.Equal(t, "ORD-1234", found.MahakEntityCode)
	})

	t.Run("updates code and notes only", func(t *testing.T) {
		mapping, err := repo.Upsert(ctx, sync.EntityTypeOrder, localID, 1234, "ORD-1234-R2", "code reassigned")
		require.NoError(t, err)
		assert.Equal(t, int64(1234), mapping.MahakEntityID)
		assert.Equal(t, "ORD-1234-R2", mapping.MahakEntityCode)
		assert.Equal(t, "code reassigned", mapping.Notes)

		// Still exactly one active row
		var count int64
		require.NoError(t, db.Model(&models.IdentityMappingModel{}).
			Where("entity_type = ? AND local_entity_id = ?", sync.EntityTypeOrder, localID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects rebinding to a different external id", func(t *testing.T) {
		_, err := repo.Upsert(ctx, sync.EntityTypeOrder, localID, 9999, "ORD-9999", "")
		assert.ErrorIs(t, err, sync.ErrMappingRebind)

		// The original binding is untouched
		found, err := repo.Resolve(ctx, sync.EntityTypeOrder, localID)
		require.NoError(t, err)
		assert.Equal(t, int64(1234), found.MahakEntityID)
	})
}

func TestGormIdentityMappingRepository_Resolve(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormIdentityMappingRepository(db)
	ctx := context.Background()

	_, err := repo.Resolve(ctx, sync.EntityTypeProduct, uuid.New())
	assert.ErrorIs(t, err, sync.ErrMappingNotFound)

	localID := uuid.New()
	_, err = repo.Upsert(ctx, sync.EntityTypeProduct, localID, 77, "P-77", "")
	require.NoError(t, err)

	byMahak, err := repo.ResolveByMahakID(ctx, sync.EntityTypeProduct, 77)
	require.NoError(t, err)
	assert.Equal(t, localID, byMahak.LocalEntityID)
}

func TestGormIdentityMappingRepository_Delete(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormIdentityMappingRepository(db)
	ctx := context.Background()
	localID := uuid.New()

	_, err := repo.Upsert(ctx, sync.EntityTypeCategory, localID, 8, "CAT-8", "")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, sync.EntityTypeCategory, localID))
	_, err = repo.Resolve(ctx, sync.EntityTypeCategory, localID)
	assert.ErrorIs(t, err, sync.ErrMappingNotFound)

	// Deleting again reports not found
	assert.ErrorIs(t, repo.Delete(ctx, sync.EntityTypeCategory, localID), sync.ErrMappingNotFound)

	// After the local entity is recreated, a fresh binding is allowed even to
	// a different external id: the old mapping is soft-deleted history.
	mapping, err := repo.Upsert(ctx, sync.EntityTypeCategory, localID, 9, "CAT-9", "")
	require.NoError(t, err)
	assert.Equal(t, int64(9), mapping.MahakEntityID)
}

func TestGormIdentityMappingRepository_FindByEntityType(t *testing.T) {
	db := setupSyncTestDB(t)
	repo := NewGormIdentityMappingRepository(db)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		_, err := repo.Upsert(ctx, sync.EntityTypeProduct, uuid.New(), i, "", "")
		require.NoError(t, err)
	}
	_, err := repo.Upsert(ctx, sync.EntityTypeOrder, uuid.New(), 100, "", "")
	require.NoError(t, err)

	mappings, total, err := repo.FindByEntityType(ctx, sync.EntityTypeProduct, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, mappings, 3)
}
