package sync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIdentityMapping(t *testing.T) {
	t.Run("creates mapping", func(t *testing.T) {
		localID := uuid.New()
		m, err := NewIdentityMapping(EntityTypeOrder, localID, 1234, "ORD-1234")
		require.NoError(t, err)

		assert.Equal(t, EntityTypeOrder, m.EntityType)
		assert.Equal(t, localID, m.LocalEntityID)
		assert.Equal(t, int64(1234), m.MahakEntityID)
		assert.Equal(t, "ORD-1234", m.MahakEntityCode)
	})

	t.Run("rejects nil local id", func(t *testing.T) {
		_, err := NewIdentityMapping(EntityTypeOrder, uuid.Nil, 1234, "")
		assert.ErrorIs(t, err, ErrMappingInvalidID)
	})

	t.Run("rejects invalid entity type", func(t *testing.T) {
		_, err := NewIdentityMapping("WIDGET", uuid.New(), 1234, "")
		assert.ErrorIs(t, err, ErrQueueInvalidEntity)
	})
}

func TestIdentityMapping_Rebind(t *testing.T) {
	m, err := NewIdentityMapping(EntityTypeProduct, uuid.New(), 77, "P-77")
	require.NoError(t, err)

	assert.False(t, m.Rebind(77))
	assert.True(t, m.Rebind(78))
}

func TestIdentityMapping_UpdateCode(t *testing.T) {
	m, err := NewIdentityMapping(EntityTypeProduct, uuid.New(), 77, "P-77")
	require.NoError(t, err)

	m.UpdateCode("P-0077", "code reassigned by mahak")

	assert.Equal(t, int64(77), m.MahakEntityID)
	assert.Equal(t, "P-0077", m.MahakEntityCode)
	assert.Equal(t, "code reassigned by mahak", m.Notes)

	// Empty notes keep the previous value
	m.UpdateCode("P-0078", "")
	assert.Equal(t, "code reassigned by mahak", m.Notes)
}
