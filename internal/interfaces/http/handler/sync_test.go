package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	syncapp "github.com/shopino/backend/internal/application/sync"
	syncdomain "github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/interfaces/http/dto"
)

// ---------------------------------------------------------------------------
// Mock Service
// ---------------------------------------------------------------------------

type mockSyncService struct {
	mock.Mock
}

func (m *mockSyncService) Enqueue(ctx context.Context, req syncapp.EnqueueRequest) (*syncdomain.QueueItem, error) {
	args := m.Called(ctx, req)
	if item := args.Get(0); item != nil {
		return item.(*syncdomain.QueueItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncService) GetQueueItem(ctx context.Context, id uuid.UUID) (*syncdomain.QueueItem, error) {
	args := m.Called(ctx, id)
	if item := args.Get(0); item != nil {
		return item.(*syncdomain.QueueItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncService) ListQueueItems(ctx context.Context, filter syncdomain.QueueFilter) ([]*syncdomain.QueueItem, int64, error) {
	args := m.Called(ctx, filter)
	if items := args.Get(0); items != nil {
		return items.([]*syncdomain.QueueItem), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockSyncService) QueueStats(ctx context.Context) (syncapp.QueueStatsResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(syncapp.QueueStatsResponse), args.Error(1)
}

func (m *mockSyncService) RetryFailedItem(ctx context.Context, id uuid.UUID) (*syncdomain.QueueItem, error) {
	args := m.Called(ctx, id)
	if item := args.Get(0); item != nil {
		return item.(*syncdomain.QueueItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncService) DeleteQueueItem(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockSyncService) ResolveMapping(ctx context.Context, entityType syncdomain.EntityType, localEntityID uuid.UUID) (*syncdomain.IdentityMapping, error) {
	args := m.Called(ctx, entityType, localEntityID)
	if mapping := args.Get(0); mapping != nil {
		return mapping.(*syncdomain.IdentityMapping), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSyncService) ListMappings(ctx context.Context, entityType syncdomain.EntityType, page, pageSize int) ([]*syncdomain.IdentityMapping, int64, error) {
	args := m.Called(ctx, entityType, page, pageSize)
	if mappings := args.Get(0); mappings != nil {
		return mappings.([]*syncdomain.IdentityMapping), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockSyncService) ListRuns(ctx context.Context, filter syncdomain.SyncRunFilter) ([]*syncdomain.SyncRun, int64, error) {
	args := m.Called(ctx, filter)
	if runs := args.Get(0); runs != nil {
		return runs.([]*syncdomain.SyncRun), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockSyncService) ListErrors(ctx context.Context, filter syncdomain.ErrorLogFilter) ([]*syncdomain.ErrorEntry, int64, error) {
	args := m.Called(ctx, filter)
	if entries := args.Get(0); entries != nil {
		return entries.([]*syncdomain.ErrorEntry), args.Get(1).(int64), args.Error(2)
	}
	return nil, 0, args.Error(2)
}

func (m *mockSyncService) ResolveError(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error {
	args := m.Called(ctx, id, resolvedBy, notes)
	return args.Error(0)
}

func (m *mockSyncService) UnresolvedErrorCounts(ctx context.Context) (map[syncdomain.ErrorSeverity]int64, error) {
	args := m.Called(ctx)
	if counts := args.Get(0); counts != nil {
		return counts.(map[syncdomain.ErrorSeverity]int64), args.Error(1)
	}
	return nil, args.Error(1)
}

var _ SyncService = (*mockSyncService)(nil)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newSyncTestRouter(service SyncService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSyncHandler(service).RegisterRoutes(api)
	return engine
}

func newTestQueueItem(t *testing.T) *syncdomain.QueueItem {
	t.Helper()
	entityID := uuid.New()
	item, err := syncdomain.NewQueueItem(
		syncdomain.QueueTypeOrder,
		syncdomain.OperationCreate,
		syncdomain.EntityTypeOrder,
		&entityID,
		[]byte(`{"order_no":"SO-1001"}`),
	)
	require.NoError(t, err)
	return item
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Queue Endpoint Tests
// ---------------------------------------------------------------------------

func TestSyncHandler_Enqueue(t *testing.T) {
	t.Run("creates a queue item", func(t *testing.T) {
		service := new(mockSyncService)
		item := newTestQueueItem(t)
		service.On("Enqueue", mock.Anything, mock.MatchedBy(func(req syncapp.EnqueueRequest) bool {
			return req.QueueType == syncdomain.QueueTypeOrder &&
				req.OperationType == syncdomain.OperationCreate &&
				req.EntityID != nil && *req.EntityID == *item.EntityID
		})).Return(item, nil)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue", gin.H{
			"queue_type":     "ORDER",
			"operation_type": "CREATE",
			"entity_type":    "ORDER",
			"entity_id":      item.EntityID.String(),
			"payload":        gin.H{"order_no": "SO-1001"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("rejects malformed entity id", func(t *testing.T) {
		engine := newSyncTestRouter(new(mockSyncService))
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue", gin.H{
			"queue_type":     "ORDER",
			"operation_type": "CREATE",
			"entity_type":    "ORDER",
			"entity_id":      "not-a-uuid",
			"payload":        gin.H{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing payload", func(t *testing.T) {
		engine := newSyncTestRouter(new(mockSyncService))
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue", gin.H{
			"queue_type":     "ORDER",
			"operation_type": "CREATE",
			"entity_type":    "ORDER",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps domain validation to 400", func(t *testing.T) {
		service := new(mockSyncService)
		service.On("Enqueue", mock.Anything, mock.Anything).Return(nil, syncdomain.ErrQueueInvalidType)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue", gin.H{
			"queue_type":     "BOGUS",
			"operation_type": "CREATE",
			"entity_type":    "ORDER",
			"payload":        gin.H{},
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	})
}

func TestSyncHandler_GetQueueItem(t *testing.T) {
	t.Run("returns the item", func(t *testing.T) {
		service := new(mockSyncService)
		item := newTestQueueItem(t)
		service.On("GetQueueItem", mock.Anything, item.ID).Return(item, nil)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue/"+item.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, item.ID.String(), data["id"])
		assert.Equal(t, "PENDING", data["status"])
	})

	t.Run("unknown item returns 404", func(t *testing.T) {
		service := new(mockSyncService)
		service.On("GetQueueItem", mock.Anything, mock.Anything).Return(nil, syncdomain.ErrQueueItemNotFound)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id returns 400", func(t *testing.T) {
		engine := newSyncTestRouter(new(mockSyncService))
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue/nope", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandler_ListQueueItems(t *testing.T) {
	service := new(mockSyncService)
	items := []*syncdomain.QueueItem{newTestQueueItem(t), newTestQueueItem(t)}
	service.On("ListQueueItems", mock.Anything, mock.MatchedBy(func(f syncdomain.QueueFilter) bool {
		return f.Status != nil && *f.Status == syncdomain.QueueStatusPending && f.Page == 2 && f.PageSize == 10
	})).Return(items, int64(12), nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue?status=PENDING&page=2&page_size=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Len(t, resp.Data, 2)
}

func TestSyncHandler_ListQueueItemsSorting(t *testing.T) {
	service := new(mockSyncService)
	items := []*syncdomain.QueueItem{newTestQueueItem(t)}
	service.On("ListQueueItems", mock.Anything, mock.MatchedBy(func(f syncdomain.QueueFilter) bool {
		return f.SortBy == "retry_count" && f.SortOrder == "desc"
	})).Return(items, int64(1), nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue?sort_by=retry_count&sort_order=desc", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestSyncHandler_GetQueueStats(t *testing.T) {
	service := new(mockSyncService)
	service.On("QueueStats", mock.Anything).Return(syncapp.QueueStatsResponse{
		Pending: 4, Processing: 1, Completed: 90, Failed: 2,
	}, nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/queue/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(4), data["pending"])
	assert.Equal(t, float64(90), data["completed"])
}

func TestSyncHandler_RetryQueueItem(t *testing.T) {
	t.Run("reopens a failed item", func(t *testing.T) {
		service := new(mockSyncService)
		item := newTestQueueItem(t)
		service.On("RetryFailedItem", mock.Anything, item.ID).Return(item, nil)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue/"+item.ID.String()+"/retry", nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-terminal item returns 422", func(t *testing.T) {
		service := new(mockSyncService)
		service.On("RetryFailedItem", mock.Anything, mock.Anything).Return(nil, syncdomain.ErrQueueNotTerminal)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/queue/"+uuid.NewString()+"/retry", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestSyncHandler_DeleteQueueItem(t *testing.T) {
	service := new(mockSyncService)
	id := uuid.New()
	service.On("DeleteQueueItem", mock.Anything, id).Return(nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodDelete, "/api/v1/sync/queue/"+id.String(), nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	service.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// Mapping Endpoint Tests
// ---------------------------------------------------------------------------

func TestSyncHandler_GetMapping(t *testing.T) {
	t.Run("returns the mapping", func(t *testing.T) {
		localID := uuid.New()
		mapping, err := syncdomain.NewIdentityMapping(syncdomain.EntityTypeProduct, localID, 4321, "PRD-4321")
		require.NoError(t, err)

		service := new(mockSyncService)
		service.On("ResolveMapping", mock.Anything, syncdomain.EntityTypeProduct, localID).Return(mapping, nil)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/mappings/PRODUCT/"+localID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(4321), data["mahak_entity_id"])
	})

	t.Run("unknown entity type returns 400", func(t *testing.T) {
		engine := newSyncTestRouter(new(mockSyncService))
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/mappings/WIDGET/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unmapped entity returns 404", func(t *testing.T) {
		service := new(mockSyncService)
		service.On("ResolveMapping", mock.Anything, mock.Anything, mock.Anything).Return(nil, syncdomain.ErrMappingNotFound)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodGet, "/api/v1/sync/mappings/ORDER/"+uuid.NewString(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSyncHandler_ListMappings(t *testing.T) {
	mapping, err := syncdomain.NewIdentityMapping(syncdomain.EntityTypeOrder, uuid.New(), 99, "ORD-99")
	require.NoError(t, err)

	service := new(mockSyncService)
	service.On("ListMappings", mock.Anything, syncdomain.EntityTypeOrder, 1, 20).
		Return([]*syncdomain.IdentityMapping{mapping}, int64(1), nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/mappings/ORDER", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Meta.Total)
}

// ---------------------------------------------------------------------------
// Run Log and Error Log Endpoint Tests
// ---------------------------------------------------------------------------

func TestSyncHandler_ListRuns(t *testing.T) {
	entityID := uuid.New()
	run := syncdomain.BeginRun(syncdomain.EntityTypeOrder, &entityID, syncdomain.SyncTypeOutgoing)
	run.Complete(syncdomain.SyncStatusSuccess, 1, 1, 0, "{}", "{}", 7)

	service := new(mockSyncService)
	service.On("ListRuns", mock.Anything, mock.MatchedBy(func(f syncdomain.SyncRunFilter) bool {
		return f.SyncType != nil && *f.SyncType == syncdomain.SyncTypeOutgoing
	})).Return([]*syncdomain.SyncRun{run}, int64(1), nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/runs?sync_type=OUTGOING", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestSyncHandler_ListErrors(t *testing.T) {
	entityID := uuid.New()
	entry := syncdomain.NewErrorEntry("SYNC_PUSH", syncdomain.EntityTypeOrder, &entityID, "TIMEOUT", "request timed out", syncdomain.SeverityMedium)

	service := new(mockSyncService)
	service.On("ListErrors", mock.Anything, mock.MatchedBy(func(f syncdomain.ErrorLogFilter) bool {
		return f.Resolved != nil && !*f.Resolved
	})).Return([]*syncdomain.ErrorEntry{entry}, int64(1), nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/errors?resolved=false", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
}

func TestSyncHandler_ResolveError(t *testing.T) {
	t.Run("resolves an entry", func(t *testing.T) {
		service := new(mockSyncService)
		id := uuid.New()
		service.On("ResolveError", mock.Anything, id, "ops@shopino", "re-pushed manually").Return(nil)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/errors/"+id.String()+"/resolve", gin.H{
			"resolved_by": "ops@shopino",
			"notes":       "re-pushed manually",
		})

		assert.Equal(t, http.StatusNoContent, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("missing resolved_by returns 400", func(t *testing.T) {
		engine := newSyncTestRouter(new(mockSyncService))
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/errors/"+uuid.NewString()+"/resolve", gin.H{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("already resolved returns 409", func(t *testing.T) {
		service := new(mockSyncService)
		service.On("ResolveError", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(syncdomain.ErrAlreadyResolved)

		engine := newSyncTestRouter(service)
		w := doJSON(engine, http.MethodPost, "/api/v1/sync/errors/"+uuid.NewString()+"/resolve", gin.H{
			"resolved_by": "ops@shopino",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestSyncHandler_GetErrorStats(t *testing.T) {
	service := new(mockSyncService)
	service.On("UnresolvedErrorCounts", mock.Anything).Return(map[syncdomain.ErrorSeverity]int64{
		syncdomain.SeverityHigh:   2,
		syncdomain.SeverityMedium: 5,
	}, nil)

	engine := newSyncTestRouter(service)
	w := doJSON(engine, http.MethodGet, "/api/v1/sync/errors/stats", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["HIGH"])
}
