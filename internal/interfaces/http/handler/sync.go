package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/shopino/backend/internal/application/sync"
	syncdomain "github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/interfaces/http/dto"
)

// SyncService is the application surface the HTTP layer depends on
type SyncService interface {
	Enqueue(ctx context.Context, req syncapp.EnqueueRequest) (*syncdomain.QueueItem, error)
	GetQueueItem(ctx context.Context, id uuid.UUID) (*syncdomain.QueueItem, error)
	ListQueueItems(ctx context.Context, filter syncdomain.QueueFilter) ([]*syncdomain.QueueItem, int64, error)
	QueueStats(ctx context.Context) (syncapp.QueueStatsResponse, error)
	RetryFailedItem(ctx context.Context, id uuid.UUID) (*syncdomain.QueueItem, error)
	DeleteQueueItem(ctx context.Context, id uuid.UUID) error
	ResolveMapping(ctx context.Context, entityType syncdomain.EntityType, localEntityID uuid.UUID) (*syncdomain.IdentityMapping, error)
	ListMappings(ctx context.Context, entityType syncdomain.EntityType, page, pageSize int) ([]*syncdomain.IdentityMapping, int64, error)
	ListRuns(ctx context.Context, filter syncdomain.SyncRunFilter) ([]*syncdomain.SyncRun, int64, error)
	ListErrors(ctx context.Context, filter syncdomain.ErrorLogFilter) ([]*syncdomain.ErrorEntry, int64, error)
	ResolveError(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error
	UnresolvedErrorCounts(ctx context.Context) (map[syncdomain.ErrorSeverity]int64, error)
}

// SyncHandler exposes the operational surface of the sync engine
type SyncHandler struct {
	BaseHandler
	service SyncService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service SyncService) *SyncHandler {
	return &SyncHandler{service: service}
}

// EnqueueQueueItemRequest represents a request to enqueue a sync operation
type EnqueueQueueItemRequest struct {
	QueueType     string          `json:"queue_type" binding:"required"`
	OperationType string          `json:"operation_type" binding:"required"`
	EntityType    string          `json:"entity_type" binding:"required"`
	EntityID      *string         `json:"entity_id"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
	Priority      int             `json:"priority" binding:"omitempty,min=1"`
	MaxRetries    int             `json:"max_retries" binding:"omitempty,min=1,max=20"`
	ScheduledAt   *time.Time      `json:"scheduled_at"`
}

// ResolveErrorEntryRequest represents a request to resolve an error entry
type ResolveErrorEntryRequest struct {
	ResolvedBy string `json:"resolved_by" binding:"required,min=1,max=100"`
	Notes      string `json:"notes" binding:"max=2000"`
}

// ListQueueItemsRequest represents queue listing filters
type ListQueueItemsRequest struct {
	dto.ListRequest
	QueueType  string `form:"queue_type"`
	EntityType string `form:"entity_type"`
	Status     string `form:"status"`
}

// ListRunsRequest represents run log listing filters
type ListRunsRequest struct {
	dto.ListRequest
	EntityType string     `form:"entity_type"`
	SyncType   string     `form:"sync_type"`
	SyncStatus string     `form:"sync_status"`
	Since      *time.Time `form:"since" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ListErrorsRequest represents error log listing filters
type ListErrorsRequest struct {
	dto.ListRequest
	EntityType string `form:"entity_type"`
	Severity   string `form:"severity"`
	Resolved   *bool  `form:"resolved"`
}

// Enqueue appends one pending item to the sync queue
func (h *SyncHandler) Enqueue(c *gin.Context) {
	var req EnqueueQueueItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := syncapp.EnqueueRequest{
		QueueType:     syncdomain.QueueType(req.QueueType),
		OperationType: syncdomain.OperationType(req.OperationType),
		EntityType:    syncdomain.EntityType(req.EntityType),
		Payload:       req.Payload,
		Priority:      req.Priority,
		MaxRetries:    req.MaxRetries,
		ScheduledAt:   req.ScheduledAt,
	}
	if req.EntityID != nil && *req.EntityID != "" {
		entityID, err := uuid.Parse(*req.EntityID)
		if err != nil {
			h.BadRequest(c, "Invalid entity ID format")
			return
		}
		appReq.EntityID = &entityID
	}

	item, err := h.service.Enqueue(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, syncapp.ToQueueItemResponse(item))
}

// ListQueueItems lists queue items with optional filtering
func (h *SyncHandler) ListQueueItems(c *gin.Context) {
	var req ListQueueItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := syncdomain.QueueFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.QueueType != "" {
		qt := syncdomain.QueueType(req.QueueType)
		filter.QueueType = &qt
	}
	if req.EntityType != "" {
		et := syncdomain.EntityType(req.EntityType)
		filter.EntityType = &et
	}
	if req.Status != "" {
		st := syncdomain.QueueStatus(req.Status)
		filter.Status = &st
	}

	items, total, err := h.service.ListQueueItems(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]syncapp.QueueItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, syncapp.ToQueueItemResponse(item))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// GetQueueStats returns per-status queue item counts
func (h *SyncHandler) GetQueueStats(c *gin.Context) {
	stats, err := h.service.QueueStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetQueueItem returns one queue item by id
func (h *SyncHandler) GetQueueItem(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	item, err := h.service.GetQueueItem(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, syncapp.ToQueueItemResponse(item))
}

// RetryQueueItem re-opens a terminally failed item with a fresh retry budget
func (h *SyncHandler) RetryQueueItem(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	item, err := h.service.RetryFailedItem(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, syncapp.ToQueueItemResponse(item))
}

// DeleteQueueItem removes a terminal queue item
func (h *SyncHandler) DeleteQueueItem(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteQueueItem(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ListMappings lists identity mappings of one entity type
func (h *SyncHandler) ListMappings(c *gin.Context) {
	entityType := syncdomain.EntityType(c.Param("entity_type"))
	if !entityType.IsValid() {
		h.BadRequest(c, "Invalid entity type")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	mappings, total, err := h.service.ListMappings(c.Request.Context(), entityType, req.Page, req.PageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]syncapp.MappingResponse, 0, len(mappings))
	for _, m := range mappings {
		responses = append(responses, syncapp.ToMappingResponse(m))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// GetMapping returns the identity mapping for one local entity
func (h *SyncHandler) GetMapping(c *gin.Context) {
	entityType := syncdomain.EntityType(c.Param("entity_type"))
	if !entityType.IsValid() {
		h.BadRequest(c, "Invalid entity type")
		return
	}
	localID, err := uuid.Parse(c.Param("local_id"))
	if err != nil {
		h.BadRequest(c, "Invalid local entity ID format")
		return
	}

	mapping, err := h.service.ResolveMapping(c.Request.Context(), entityType, localID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, syncapp.ToMappingResponse(mapping))
}

// ListRuns lists sync run records
func (h *SyncHandler) ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := syncdomain.SyncRunFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Since:     req.Since,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.EntityType != "" {
		et := syncdomain.EntityType(req.EntityType)
		filter.EntityType = &et
	}
	if req.SyncType != "" {
		st := syncdomain.SyncType(req.SyncType)
		filter.SyncType = &st
	}
	if req.SyncStatus != "" {
		ss := syncdomain.SyncStatus(req.SyncStatus)
		filter.SyncStatus = &ss
	}

	runs, total, err := h.service.ListRuns(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]syncapp.SyncRunResponse, 0, len(runs))
	for _, r := range runs {
		responses = append(responses, syncapp.ToSyncRunResponse(r))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// ListErrors lists error log entries
func (h *SyncHandler) ListErrors(c *gin.Context) {
	var req ListErrorsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.Normalize()

	filter := syncdomain.ErrorLogFilter{
		Page:      req.Page,
		PageSize:  req.PageSize,
		Resolved:  req.Resolved,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.EntityType != "" {
		et := syncdomain.EntityType(req.EntityType)
		filter.EntityType = &et
	}
	if req.Severity != "" {
		sev := syncdomain.ErrorSeverity(req.Severity)
		filter.Severity = &sev
	}

	entries, total, err := h.service.ListErrors(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]syncapp.ErrorEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, syncapp.ToErrorEntryResponse(e))
	}
	h.SuccessWithMeta(c, responses, total, req.Page, req.PageSize)
}

// ResolveError marks an error entry resolved by an operator
func (h *SyncHandler) ResolveError(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req ResolveErrorEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ResolveError(c.Request.Context(), id, req.ResolvedBy, req.Notes); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// GetErrorStats returns open error counts per severity
func (h *SyncHandler) GetErrorStats(c *gin.Context) {
	counts, err := h.service.UnresolvedErrorCounts(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, counts)
}

// bindID parses the :id path parameter, writing the error response itself
func (h *SyncHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// RegisterRoutes registers all sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/sync")

	group.POST("/queue", h.Enqueue)
	group.GET("/queue", h.ListQueueItems)
	group.GET("/queue/stats", h.GetQueueStats)
	group.GET("/queue/:id", h.GetQueueItem)
	group.POST("/queue/:id/retry", h.RetryQueueItem)
	group.DELETE("/queue/:id", h.DeleteQueueItem)

	group.GET("/mappings/:entity_type", h.ListMappings)
	group.GET("/mappings/:entity_type/:local_id", h.GetMapping)

	group.GET("/runs", h.ListRuns)

	group.GET("/errors", h.ListErrors)
	group.GET("/errors/stats", h.GetErrorStats)
	group.POST("/errors/:id/resolve", h.ResolveError)
}
