package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorEntry(t *testing.T) {
	entityID := uuid.New()
	entry := NewErrorEntry("ADAPTER", EntityTypeOrder, &entityID, "MAHAK_TIMEOUT", "request timed out", SeverityHigh)

	assert.Equal(t, 1, entry.OccurrenceCount)
	assert.False(t, entry.IsResolved)
	assert.Equal(t, SeverityHigh, entry.Severity)
	assert.WithinDuration(t, time.Now(), entry.LastOccurredAt, time.Second)
}

func TestNewErrorEntry_InvalidSeverityDefaultsToMedium(t *testing.T) {
	entry := NewErrorEntry("ADAPTER", EntityTypeOrder, nil, "X", "boom", "SHRUG")
	assert.Equal(t, SeverityMedium, entry.Severity)
}

func TestErrorEntry_Recur(t *testing.T) {
	entityID := uuid.New()
	entry := NewErrorEntry("ADAPTER", EntityTypeOrder, &entityID, "MAHAK_TIMEOUT", "first", SeverityMedium)
	firstOccurred := entry.LastOccurredAt

	time.Sleep(5 * time.Millisecond)
	entry.Recur("second", `{"req":1}`, `{"resp":1}`)

	assert.Equal(t, 2, entry.OccurrenceCount)
	assert.Equal(t, "second", entry.ErrorMessage)
	assert.Equal(t, `{"req":1}`, entry.RequestData)
	assert.True(t, entry.LastOccurredAt.After(firstOccurred))

	// Empty payloads keep the previous snapshots
	entry.Recur("third", "", "")
	assert.Equal(t, `{"req":1}`, entry.RequestData)
	assert.Equal(t, `{"resp":1}`, entry.ResponseData)
}

func TestErrorEntry_Resolve(t *testing.T) {
	entry := NewErrorEntry("ADAPTER", EntityTypeProduct, nil, "MAHAK_REJECTED", "bad payload", SeverityMedium)

	require.NoError(t, entry.Resolve("ops@shopino", "fixed product weight"))
	assert.True(t, entry.IsResolved)
	assert.NotNil(t, entry.ResolvedAt)
	assert.Equal(t, "ops@shopino", entry.ResolvedBy)

	assert.ErrorIs(t, entry.Resolve("ops@shopino", "again"), ErrAlreadyResolved)
}
