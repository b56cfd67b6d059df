// Package cache provides the identity-mapping lookup cache. Every queue item
// push resolves a mapping, so the hot path reads here first and only falls
// through to Postgres on a miss. The cache is best effort: a cache failure
// never fails a sync, it just costs a database read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopino/backend/internal/domain/sync"
)

// MappingStore is the backing key-value store for the mapping cache.
// Implementations must be safe for concurrent use.
type MappingStore interface {
	// Get returns the cached value and whether the key was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}

// CachedMappingRepository decorates an IdentityMappingRepository with a
// read-through cache on Resolve. Writes invalidate before delegating so a
// failed write never leaves a fresh cache entry for stale data.
type CachedMappingRepository struct {
	inner  sync.IdentityMappingRepository
	store  MappingStore
	ttl    time.Duration
	logger *zap.Logger
}

var _ sync.IdentityMappingRepository = (*CachedMappingRepository)(nil)

// NewCachedMappingRepository wraps inner with a read-through cache
func NewCachedMappingRepository(inner sync.IdentityMappingRepository, store MappingStore, ttl time.Duration, logger *zap.Logger) *CachedMappingRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedMappingRepository{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: logger.Named("mapping-cache"),
	}
}

func mappingKey(entityType sync.EntityType, localEntityID uuid.UUID) string {
	return fmt.Sprintf("sync:mapping:%s:%s", entityType, localEntityID)
}

// Resolve returns the mapping for a local entity, serving repeated lookups
// from the cache. Negative results are not cached: a miss right before the
// first successful push is the common case and must see the new row.
func (r *CachedMappingRepository) Resolve(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) (*sync.IdentityMapping, error) {
	key := mappingKey(entityType, localEntityID)

	if data, ok, err := r.store.Get(ctx, key); err != nil {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var mapping sync.IdentityMapping
		if err := json.Unmarshal(data, &mapping); err == nil {
			return &mapping, nil
		}
		// Corrupt entry: drop it and fall through
		_ = r.store.Delete(ctx, key)
	}

	mapping, err := r.inner.Resolve(ctx, entityType, localEntityID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(mapping); err == nil {
		if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return mapping, nil
}

// ResolveByMahakID always hits the database; reverse lookups only happen on
// the reconciliation path where latency does not matter.
func (r *CachedMappingRepository) ResolveByMahakID(ctx context.Context, entityType sync.EntityType, mahakEntityID int64) (*sync.IdentityMapping, error) {
	return r.inner.ResolveByMahakID(ctx, entityType, mahakEntityID)
}

// Upsert invalidates the cached entry, then delegates
func (r *CachedMappingRepository) Upsert(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID, mahakEntityID int64, mahakEntityCode, notes string) (*sync.IdentityMapping, error) {
	r.invalidate(ctx, entityType, localEntityID)
	return r.inner.Upsert(ctx, entityType, localEntityID, mahakEntityID, mahakEntityCode, notes)
}

// Delete invalidates the cached entry, then delegates
func (r *CachedMappingRepository) Delete(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) error {
	r.invalidate(ctx, entityType, localEntityID)
	return r.inner.Delete(ctx, entityType, localEntityID)
}

// FindByEntityType always hits the database
func (r *CachedMappingRepository) FindByEntityType(ctx context.Context, entityType sync.EntityType, page, pageSize int) ([]*sync.IdentityMapping, int64, error) {
	return r.inner.FindByEntityType(ctx, entityType, page, pageSize)
}

func (r *CachedMappingRepository) invalidate(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) {
	key := mappingKey(entityType, localEntityID)
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
