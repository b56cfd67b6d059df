package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueItem(t *testing.T) {
	entityID := uuid.New()

	t.Run("creates pending item with defaults", func(t *testing.T) {
		item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{"no":1}`))
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, item.ID)
		assert.Equal(t, QueueStatusPending, item.Status)
		assert.Equal(t, DefaultPriority, item.Priority)
		assert.Equal(t, DefaultMaxRetries, item.MaxRetries)
		assert.Equal(t, 0, item.RetryCount)
		assert.Nil(t, item.NextRetryAt)
	})

	t.Run("rejects invalid queue type", func(t *testing.T) {
		_, err := NewQueueItem("BOGUS", OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
		assert.ErrorIs(t, err, ErrQueueInvalidType)
	})

	t.Run("rejects invalid operation", func(t *testing.T) {
		_, err := NewQueueItem(QueueTypeOrder, "UPSERT", EntityTypeOrder, &entityID, []byte(`{}`))
		assert.ErrorIs(t, err, ErrQueueInvalidOperation)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, nil)
		assert.ErrorIs(t, err, ErrQueueEmptyPayload)
	})

	t.Run("allows nil entity id", func(t *testing.T) {
		item, err := NewQueueItem(QueueTypeInventory, OperationUpdate, EntityTypeProduct, nil, []byte(`{}`))
		require.NoError(t, err)
		assert.Nil(t, item.EntityID)
	})
}

func TestQueueItem_IsDue(t *testing.T) {
	now := time.Now()
	entityID := uuid.New()

	newItem := func() *QueueItem {
		item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
		require.NoError(t, err)
		return item
	}

	t.Run("pending without schedule is due", func(t *testing.T) {
		assert.True(t, newItem().IsDue(now))
	})

	t.Run("future schedule is not due", func(t *testing.T) {
		item := newItem().WithScheduledAt(now.Add(time.Hour))
		assert.False(t, item.IsDue(now))
	})

	t.Run("future retry is not due", func(t *testing.T) {
		item := newItem()
		nextRetry := now.Add(time.Minute)
		item.NextRetryAt = &nextRetry
		assert.False(t, item.IsDue(now))
	})

	t.Run("past retry is due", func(t *testing.T) {
		item := newItem()
		nextRetry := now.Add(-time.Minute)
		item.NextRetryAt = &nextRetry
		assert.True(t, item.IsDue(now))
	})

	t.Run("processing item is not due", func(t *testing.T) {
		item := newItem()
		require.NoError(t, item.MarkProcessing())
		assert.False(t, item.IsDue(now))
	})
}

func TestQueueItem_MarkCompleted(t *testing.T) {
	entityID := uuid.New()
	item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, item.MarkProcessing())

	item.MarkCompleted(`{"ok":true}`)

	require.Equal(t, QueueStatusCompleted, item.Status)
	require.NotNil(t, item.ProcessedAt)
	firstProcessedAt := *item.ProcessedAt

	// Replaying completion is a no-op
	item.MarkCompleted(`{"ok":"again"}`)
	assert.Equal(t, firstProcessedAt, *item.ProcessedAt)
	assert.Equal(t, `{"ok":true}`, item.ExternalResponse)
}

func TestQueueItem_MarkFailed(t *testing.T) {
	entityID := uuid.New()
	retryInterval := 30 * time.Second

	newProcessing := func(maxRetries int) *QueueItem {
		item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
		require.NoError(t, err)
		item.WithMaxRetries(maxRetries)
		require.NoError(t, item.MarkProcessing())
		return item
	}

	t.Run("retryable failure goes back to pending", func(t *testing.T) {
		item := newProcessing(3)
		item.MarkFailed("timeout", "", false, retryInterval)

		assert.Equal(t, QueueStatusPending, item.Status)
		assert.Equal(t, 1, item.RetryCount)
		require.NotNil(t, item.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(retryInterval), *item.NextRetryAt, time.Second)
		assert.Nil(t, item.FailedAt)
	})

	t.Run("retry count never exceeds max retries", func(t *testing.T) {
		item := newProcessing(3)
		for n := 0; n < 5; n++ {
			item.MarkFailed("timeout", "", false, retryInterval)
		}
		assert.LessOrEqual(t, item.RetryCount, item.MaxRetries)
	})

	t.Run("exhausted budget is terminal with no next retry", func(t *testing.T) {
		item := newProcessing(3)
		item.MarkFailed("timeout", "", false, retryInterval)
		item.MarkFailed("timeout", "", false, retryInterval)
		item.MarkFailed("timeout", "", false, retryInterval)

		assert.Equal(t, QueueStatusFailed, item.Status)
		assert.Equal(t, 3, item.RetryCount)
		assert.Nil(t, item.NextRetryAt)
		assert.NotNil(t, item.FailedAt)
	})

	t.Run("permanent failure short-circuits the budget", func(t *testing.T) {
		item := newProcessing(3)
		item.MarkFailed("payload rejected", `{"code":400}`, true, retryInterval)

		assert.Equal(t, QueueStatusFailed, item.Status)
		assert.Equal(t, 1, item.RetryCount)
		assert.Nil(t, item.NextRetryAt)
		assert.NotNil(t, item.FailedAt)
	})
}

func TestQueueItem_Reschedule(t *testing.T) {
	entityID := uuid.New()
	item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, item.MarkProcessing())

	item.Reschedule(2 * time.Minute)

	assert.Equal(t, QueueStatusPending, item.Status)
	assert.Zero(t, item.RetryCount)
	require.NotNil(t, item.NextRetryAt)
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), *item.NextRetryAt, time.Second)
}

func TestQueueItem_ResetForRetry(t *testing.T) {
	entityID := uuid.New()
	item, err := NewQueueItem(QueueTypeOrder, OperationCreate, EntityTypeOrder, &entityID, []byte(`{}`))
	require.NoError(t, err)

	t.Run("rejects non-terminal item", func(t *testing.T) {
		assert.ErrorIs(t, item.ResetForRetry(), ErrQueueNotTerminal)
	})

	t.Run("re-opens failed item with fresh budget", func(t *testing.T) {
		require.NoError(t, item.MarkProcessing())
		item.MarkFailed("rejected", "", true, time.Second)
		require.Equal(t, QueueStatusFailed, item.Status)

		require.NoError(t, item.ResetForRetry())
		assert.Equal(t, QueueStatusPending, item.Status)
		assert.Equal(t, 0, item.RetryCount)
		assert.Nil(t, item.FailedAt)
		assert.Nil(t, item.NextRetryAt)
	})
}

func TestQueueStatus_IsTerminal(t *testing.T) {
	assert.False(t, QueueStatusPending.IsTerminal())
	assert.False(t, QueueStatusProcessing.IsTerminal())
	assert.True(t, QueueStatusCompleted.IsTerminal())
	assert.True(t, QueueStatusFailed.IsTerminal())
}
