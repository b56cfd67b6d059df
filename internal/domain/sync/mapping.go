package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// IdentityMapping Entity
// ---------------------------------------------------------------------------

// IdentityMapping is the durable correspondence between a local commerce
// entity and its counterpart in Mahak. It is the idempotency anchor of the
// sync engine: once an external id has been observed for an entity, retried
// CREATE operations are rewritten to UPDATE against that id, so the remote
// record is never duplicated.
type IdentityMapping struct {
	ID            uuid.UUID
	EntityType    EntityType
	LocalEntityID uuid.UUID
	// MahakEntityID is the numeric id assigned by Mahak. Immutable once set.
	MahakEntityID int64
	// MahakEntityCode is the human-readable code on the Mahak side. Mahak may
	// reassign it, so updates are allowed.
	MahakEntityCode string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewIdentityMapping creates a mapping after the first successful push
func NewIdentityMapping(entityType EntityType, localEntityID uuid.UUID, mahakEntityID int64, mahakEntityCode string) (*IdentityMapping, error) {
	if !entityType.IsValid() {
		return nil, ErrQueueInvalidEntity
	}
	if localEntityID == uuid.Nil {
		return nil, ErrMappingInvalidID
	}

	now := time.Now()
	return &IdentityMapping{
		ID:              uuid.New(),
		EntityType:      entityType,
		LocalEntityID:   localEntityID,
		MahakEntityID:   mahakEntityID,
		MahakEntityCode: mahakEntityCode,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Rebind reports whether applying the given external id would rebind the
// mapping to a different Mahak identity.
func (m *IdentityMapping) Rebind(mahakEntityID int64) bool {
	return m.MahakEntityID != 0 && m.MahakEntityID != mahakEntityID
}

// UpdateCode updates the mutable Mahak-side fields. The external id is left
// untouched; rebinding is rejected at the repository layer.
func (m *IdentityMapping) UpdateCode(mahakEntityCode, notes string) {
	m.MahakEntityCode = mahakEntityCode
	if notes != "" {
		m.Notes = notes
	}
	m.UpdatedAt = time.Now()
}

// ---------------------------------------------------------------------------
// IdentityMappingRepository Port
// ---------------------------------------------------------------------------

// IdentityMappingRepository defines the persistence port for identity
// mappings. At most one active (non-deleted) mapping exists per
// (EntityType, LocalEntityID) pair; the repository filters soft-deleted rows
// on every read so callers never see dangling mappings.
type IdentityMappingRepository interface {
	// Resolve returns the active mapping for a local entity, or
	// ErrMappingNotFound.
	Resolve(ctx context.Context, entityType EntityType, localEntityID uuid.UUID) (*IdentityMapping, error)

	// ResolveByMahakID returns the active mapping for a Mahak entity id
	ResolveByMahakID(ctx context.Context, entityType EntityType, mahakEntityID int64) (*IdentityMapping, error)

	// Upsert creates the mapping if absent, otherwise updates code and notes
	// only. Attempting to change the external id of an existing active
	// mapping returns ErrMappingRebind.
	Upsert(ctx context.Context, entityType EntityType, localEntityID uuid.UUID, mahakEntityID int64, mahakEntityCode, notes string) (*IdentityMapping, error)

	// Delete soft-deletes the active mapping for a local entity
	Delete(ctx context.Context, entityType EntityType, localEntityID uuid.UUID) error

	// FindByEntityType lists active mappings of one entity type
	FindByEntityType(ctx context.Context, entityType EntityType, page, pageSize int) ([]*IdentityMapping, int64, error)
}
