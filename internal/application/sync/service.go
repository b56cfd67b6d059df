// Package sync contains the application services that drive synchronization
// with the Mahak back-office ERP: enqueueing work, processing claimed queue
// items against the Mahak client, and the operational queries exposed over
// HTTP.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopino/backend/internal/domain/mahak"
	"github.com/shopino/backend/internal/domain/sync"
)

// Service orchestrates the sync pipeline. It owns no state beyond its
// dependencies; all durable state lives in the repositories.
type Service struct {
	queueRepo   sync.QueueRepository
	mappingRepo sync.IdentityMappingRepository
	runRepo     sync.SyncRunRepository
	errorRepo   sync.ErrorLogRepository
	client      mahak.Client
	logger      *zap.Logger

	// retryInterval is the fixed delay before a failed item becomes due again
	retryInterval time.Duration
}

// NewService creates a sync service
func NewService(
	queueRepo sync.QueueRepository,
	mappingRepo sync.IdentityMappingRepository,
	runRepo sync.SyncRunRepository,
	errorRepo sync.ErrorLogRepository,
	client mahak.Client,
	logger *zap.Logger,
	retryInterval time.Duration,
) *Service {
	if retryInterval <= 0 {
		retryInterval = 2 * time.Minute
	}
	return &Service{
		queueRepo:     queueRepo,
		mappingRepo:   mappingRepo,
		runRepo:       runRepo,
		errorRepo:     errorRepo,
		client:        client,
		logger:        logger.Named("sync"),
		retryInterval: retryInterval,
	}
}

// ---------------------------------------------------------------------------
// Enqueue Operations
// ---------------------------------------------------------------------------

// Enqueue validates the request and appends a pending item to the queue.
// No Mahak I/O happens here; enqueueing succeeds even when Mahak is down.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*sync.QueueItem, error) {
	item, err := sync.NewQueueItem(req.QueueType, req.OperationType, req.EntityType, req.EntityID, req.Payload)
	if err != nil {
		return nil, err
	}
	if req.Priority > 0 {
		item.WithPriority(req.Priority)
	}
	if req.MaxRetries > 0 {
		item.WithMaxRetries(req.MaxRetries)
	}
	if req.ScheduledAt != nil {
		item.WithScheduledAt(*req.ScheduledAt)
	}

	if err := s.queueRepo.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("enqueue %s/%s: %w", req.QueueType, req.OperationType, err)
	}

	s.logger.Debug("queue item enqueued",
		zap.String("item_id", item.ID.String()),
		zap.String("queue_type", string(item.QueueType)),
		zap.String("operation", string(item.OperationType)),
	)
	return item, nil
}

// EnqueueOrder snapshots an order and queues it for the outgoing driver
func (s *Service) EnqueueOrder(ctx context.Context, op sync.OperationType, payload OrderSyncPayload) (*sync.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}
	return s.Enqueue(ctx, EnqueueRequest{
		QueueType:     sync.QueueTypeOrder,
		OperationType: op,
		EntityType:    sync.EntityTypeOrder,
		EntityID:      &payload.OrderID,
		Payload:       data,
		// Orders carry money; push them before catalog churn
		Priority: 1,
	})
}

// EnqueueProduct snapshots a product and queues it for the outgoing driver
func (s *Service) EnqueueProduct(ctx context.Context, op sync.OperationType, payload ProductSyncPayload) (*sync.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal product payload: %w", err)
	}
	return s.Enqueue(ctx, EnqueueRequest{
		QueueType:     sync.QueueTypeProduct,
		OperationType: op,
		EntityType:    sync.EntityTypeProduct,
		EntityID:      &payload.ProductID,
		Payload:       data,
	})
}

// EnqueueCategory snapshots a category and queues it for the outgoing driver
func (s *Service) EnqueueCategory(ctx context.Context, op sync.OperationType, payload CategorySyncPayload) (*sync.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal category payload: %w", err)
	}
	return s.Enqueue(ctx, EnqueueRequest{
		QueueType:     sync.QueueTypeCategory,
		OperationType: op,
		EntityType:    sync.EntityTypeCategory,
		EntityID:      &payload.CategoryID,
		Payload:       data,
	})
}

// EnqueueCustomer snapshots a customer and queues it for the outgoing driver
func (s *Service) EnqueueCustomer(ctx context.Context, op sync.OperationType, payload CustomerSyncPayload) (*sync.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal customer payload: %w", err)
	}
	return s.Enqueue(ctx, EnqueueRequest{
		QueueType:     sync.QueueTypeCustomer,
		OperationType: op,
		EntityType:    sync.EntityTypeCustomer,
		EntityID:      &payload.CustomerID,
		Payload:       data,
	})
}

// EnqueueInventory queues a stock-level push for one product
func (s *Service) EnqueueInventory(ctx context.Context, payload InventorySyncPayload) (*sync.QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal inventory payload: %w", err)
	}
	return s.Enqueue(ctx, EnqueueRequest{
		QueueType:     sync.QueueTypeInventory,
		OperationType: sync.OperationUpdate,
		EntityType:    sync.EntityTypeProduct,
		EntityID:      &payload.ProductID,
		Payload:       data,
	})
}

// ---------------------------------------------------------------------------
// Processing Pipeline
// ---------------------------------------------------------------------------

// ProcessItem pushes one claimed queue item to Mahak and records the outcome.
// The item must already be in PROCESSING state (claimed via ClaimDue).
//
// The returned error reports infrastructure trouble (repository failures);
// a Mahak rejection is a handled outcome, not an error to the caller.
func (s *Service) ProcessItem(ctx context.Context, item *sync.QueueItem) error {
	if item.Status != sync.QueueStatusProcessing {
		return sync.ErrQueueNotProcessing
	}

	run := sync.BeginRun(item.EntityType, item.EntityID, sync.SyncTypeOutgoing)

	result, pushErr := s.push(ctx, item)
	if pushErr != nil {
		return s.recordFailure(ctx, item, run, pushErr)
	}
	return s.recordSuccess(ctx, item, run, result)
}

// push resolves the identity mapping and performs the Mahak call appropriate
// for the item's operation.
func (s *Service) push(ctx context.Context, item *sync.QueueItem) (*mahak.PushResult, error) {
	var externalID *int64
	if item.EntityID != nil {
		mapping, err := s.mappingRepo.Resolve(ctx, item.EntityType, *item.EntityID)
		switch {
		case err == nil:
			externalID = &mapping.MahakEntityID
		case errors.Is(err, sync.ErrMappingNotFound):
			// First push of this entity
		default:
			return nil, mahak.NewTransientError("MAPPING_LOOKUP", err.Error(), "")
		}
	}

	if item.OperationType == sync.OperationDelete {
		if externalID == nil {
			// Never reached Mahak, nothing to delete remotely
			return &mahak.PushResult{RawResponse: `{"skipped":"unmapped"}`}, nil
		}
		return s.client.Delete(ctx, string(item.EntityType), *externalID)
	}

	// A CREATE for an already mapped entity is a replay of earlier work;
	// pushing it as an update keeps the operation idempotent instead of
	// creating a Mahak duplicate.
	req := &mahak.PushRequest{
		EntityType: string(item.EntityType),
		ExternalID: externalID,
		Payload:    item.Payload,
	}
	return s.client.CreateOrUpdate(ctx, req)
}

// recordSuccess persists everything that follows a successful push: identity
// mapping, terminal queue state, auto-resolved errors and the run record.
func (s *Service) recordSuccess(ctx context.Context, item *sync.QueueItem, run *sync.SyncRun, result *mahak.PushResult) error {
	if item.EntityID != nil && item.OperationType != sync.OperationDelete && result.ExternalID != 0 {
		// Reverse check: Mahak answering with an id that is already bound to a
		// different local entity would silently merge two records. Fail the
		// item instead and leave both bindings alone.
		if existing, err := s.mappingRepo.ResolveByMahakID(ctx, item.EntityType, result.ExternalID); err == nil && existing.LocalEntityID != *item.EntityID {
			return s.recordFailure(ctx, item, run, mahak.NewPermanentError(
				"MAPPING_CONFLICT",
				fmt.Sprintf("mahak id %d is already bound to local entity %s", result.ExternalID, existing.LocalEntityID),
				result.RawResponse,
			))
		}
		if _, err := s.mappingRepo.Upsert(ctx, item.EntityType, *item.EntityID, result.ExternalID, result.ExternalCode, ""); err != nil {
			// A rebind here means Mahak answered with a different id than the
			// one we already hold. Keep the existing mapping and surface the
			// conflict: the local record stays bound to its original remote
			// identity.
			s.logger.Error("identity mapping upsert failed",
				zap.String("item_id", item.ID.String()),
				zap.Error(err),
			)
			return s.recordFailure(ctx, item, run,
				mahak.NewPermanentError("MAPPING_CONFLICT", err.Error(), result.RawResponse))
		}
	}
	if item.EntityID != nil && item.OperationType == sync.OperationDelete {
		if err := s.mappingRepo.Delete(ctx, item.EntityType, *item.EntityID); err != nil && !errors.Is(err, sync.ErrMappingNotFound) {
			return fmt.Errorf("delete mapping: %w", err)
		}
	}

	if err := s.queueRepo.MarkCompleted(ctx, item.ID, result.RawResponse); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	item.MarkCompleted(result.RawResponse)

	if item.EntityID != nil {
		resolved, err := s.errorRepo.ResolveForEntity(ctx, item.EntityType, *item.EntityID, "resolved by subsequent successful sync")
		if err != nil {
			s.logger.Warn("auto-resolve of error entries failed",
				zap.String("item_id", item.ID.String()),
				zap.Error(err),
			)
		} else if resolved > 0 {
			s.logger.Info("auto-resolved error entries",
				zap.String("item_id", item.ID.String()),
				zap.Int64("resolved", resolved),
			)
		}
	}

	run.Complete(sync.SyncStatusSuccess, 1, 1, 0, string(item.Payload), result.RawResponse, result.RowVersion)
	if err := s.runRepo.Save(ctx, run); err != nil {
		s.logger.Warn("run log save failed", zap.Error(err))
	}

	s.logger.Info("queue item processed",
		zap.String("item_id", item.ID.String()),
		zap.String("queue_type", string(item.QueueType)),
		zap.Int64("mahak_id", result.ExternalID),
	)
	return nil
}

// recordFailure persists the failed attempt: queue retry/terminal state, the
// deduplicated error entry and the run record.
func (s *Service) recordFailure(ctx context.Context, item *sync.QueueItem, run *sync.SyncRun, pushErr error) error {
	// An unconfigured Mahak endpoint is not a failed attempt: defer the item
	// without consuming retry budget, so a backlog accumulated before the
	// integration is set up never goes terminal on its own.
	if errors.Is(pushErr, mahak.ErrNotConfigured) {
		item.Reschedule(s.retryInterval)
		if err := s.queueRepo.UpdateFrom(ctx, item, sync.QueueStatusProcessing); err != nil && !errors.Is(err, sync.ErrQueueClaimLost) {
			return fmt.Errorf("defer item: %w", err)
		}
		s.logger.Warn("mahak endpoint not configured, item deferred",
			zap.String("item_id", item.ID.String()),
		)
		return nil
	}

	permanent := !mahak.IsTransient(pushErr)
	rawResponse := mahak.RawResponse(pushErr)

	item.MarkFailed(pushErr.Error(), rawResponse, permanent, s.retryInterval)
	if err := s.queueRepo.UpdateFrom(ctx, item, sync.QueueStatusProcessing); err != nil {
		if errors.Is(err, sync.ErrQueueClaimLost) {
			// The claim outlived the stale timeout and was reclaimed; whoever
			// holds the item now does its own bookkeeping.
			s.logger.Warn("claim lost before failure could be recorded",
				zap.String("item_id", item.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("persist failed item: %w", err)
	}

	severity := sync.SeverityMedium
	if item.Status == sync.QueueStatusFailed {
		// Out of retries (or permanently rejected): needs an operator
		severity = sync.SeverityHigh
	}
	if _, err := s.errorRepo.Record(ctx, sync.ErrorRecord{
		ErrorType:    "SYNC_PUSH",
		EntityType:   item.EntityType,
		EntityID:     item.EntityID,
		ErrorCode:    mahak.ErrorCode(pushErr),
		Message:      pushErr.Error(),
		Severity:     severity,
		RequestData:  string(item.Payload),
		ResponseData: rawResponse,
	}); err != nil {
		s.logger.Warn("error log record failed", zap.Error(err))
	}

	run.Complete(sync.SyncStatusFailure, 1, 0, 1, string(item.Payload), rawResponse, 0)
	if err := s.runRepo.Save(ctx, run); err != nil {
		s.logger.Warn("run log save failed", zap.Error(err))
	}

	s.logger.Warn("queue item failed",
		zap.String("item_id", item.ID.String()),
		zap.String("queue_type", string(item.QueueType)),
		zap.String("error_code", mahak.ErrorCode(pushErr)),
		zap.Bool("permanent", permanent),
		zap.Int("retry_count", item.RetryCount),
		zap.String("status", string(item.Status)),
	)
	return nil
}

// ---------------------------------------------------------------------------
// Operational Surface
// ---------------------------------------------------------------------------

// GetQueueItem returns one queue item
func (s *Service) GetQueueItem(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	return s.queueRepo.FindByID(ctx, id)
}

// ListQueueItems lists queue items with filtering
func (s *Service) ListQueueItems(ctx context.Context, filter sync.QueueFilter) ([]*sync.QueueItem, int64, error) {
	return s.queueRepo.FindAll(ctx, filter)
}

// QueueStats returns per-status item counts
func (s *Service) QueueStats(ctx context.Context) (QueueStatsResponse, error) {
	counts, err := s.queueRepo.CountByStatus(ctx)
	if err != nil {
		return QueueStatsResponse{}, err
	}
	return QueueStatsResponse{
		Pending:    counts[sync.QueueStatusPending],
		Processing: counts[sync.QueueStatusProcessing],
		Completed:  counts[sync.QueueStatusCompleted],
		Failed:     counts[sync.QueueStatusFailed],
	}, nil
}

// RetryFailedItem re-opens a terminally failed item with a fresh retry budget
func (s *Service) RetryFailedItem(ctx context.Context, id uuid.UUID) (*sync.QueueItem, error) {
	item, err := s.queueRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := item.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.queueRepo.UpdateFrom(ctx, item, sync.QueueStatusFailed); err != nil {
		if errors.Is(err, sync.ErrQueueClaimLost) {
			// A concurrent retry already re-opened it
			return nil, sync.ErrQueueNotTerminal
		}
		return nil, err
	}
	s.logger.Info("failed queue item re-opened", zap.String("item_id", id.String()))
	return item, nil
}

// DeleteQueueItem soft-deletes a terminal item
func (s *Service) DeleteQueueItem(ctx context.Context, id uuid.UUID) error {
	return s.queueRepo.Delete(ctx, id)
}

// ResolveMapping returns the identity mapping for a local entity
func (s *Service) ResolveMapping(ctx context.Context, entityType sync.EntityType, localEntityID uuid.UUID) (*sync.IdentityMapping, error) {
	return s.mappingRepo.Resolve(ctx, entityType, localEntityID)
}

// ListMappings lists identity mappings of one entity type
func (s *Service) ListMappings(ctx context.Context, entityType sync.EntityType, page, pageSize int) ([]*sync.IdentityMapping, int64, error) {
	return s.mappingRepo.FindByEntityType(ctx, entityType, page, pageSize)
}

// ListRuns lists sync run records
func (s *Service) ListRuns(ctx context.Context, filter sync.SyncRunFilter) ([]*sync.SyncRun, int64, error) {
	return s.runRepo.GetLogs(ctx, filter)
}

// ListErrors lists error log entries
func (s *Service) ListErrors(ctx context.Context, filter sync.ErrorLogFilter) ([]*sync.ErrorEntry, int64, error) {
	return s.errorRepo.FindAll(ctx, filter)
}

// ResolveError marks an error entry resolved by an operator
func (s *Service) ResolveError(ctx context.Context, id uuid.UUID, resolvedBy, notes string) error {
	return s.errorRepo.Resolve(ctx, id, resolvedBy, notes)
}

// UnresolvedErrorCounts returns open error counts per severity
func (s *Service) UnresolvedErrorCounts(ctx context.Context) (map[sync.ErrorSeverity]int64, error) {
	return s.errorRepo.CountUnresolved(ctx)
}
