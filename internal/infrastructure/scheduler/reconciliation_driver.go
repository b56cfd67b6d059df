package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/shopino/backend/internal/domain/mahak"
	syncdomain "github.com/shopino/backend/internal/domain/sync"
)

// verifiedEntityTypes are the entity kinds whose mappings are audited
// against Mahak each reconciliation cycle.
var verifiedEntityTypes = []syncdomain.EntityType{
	syncdomain.EntityTypeOrder,
	syncdomain.EntityTypeProduct,
	syncdomain.EntityTypeCategory,
	syncdomain.EntityTypeCustomer,
}

// ReconciliationDriverConfig holds configuration for the reconciliation driver
type ReconciliationDriverConfig struct {
	// Schedule is a standard 5-field cron expression
	Schedule string
	// BatchSize is the number of queue items drained per cycle. Larger than
	// the outgoing driver's batch so a backlog clears faster off-peak.
	BatchSize int
	// StaleClaimTimeout is how long a PROCESSING claim may sit untouched
	// before it is considered abandoned
	StaleClaimTimeout time.Duration
	// VerifyPageSize bounds how many mappings per entity type are checked
	// against Mahak each cycle
	VerifyPageSize int
	// CleanupRetention is how long terminal queue items are kept
	CleanupRetention time.Duration
}

// Validate checks the configuration
func (c ReconciliationDriverConfig) Validate() error {
	if c.Schedule == "" || c.BatchSize <= 0 || c.StaleClaimTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ReconciliationDriver runs on a cron schedule and performs the slow-path
// maintenance of the sync engine: recovering abandoned claims, draining the
// queue with a larger batch, auditing identity mappings against Mahak, and
// pruning old terminal items.
type ReconciliationDriver struct {
	queueRepo   syncdomain.QueueRepository
	mappingRepo syncdomain.IdentityMappingRepository
	runRepo     syncdomain.SyncRunRepository
	errorRepo   syncdomain.ErrorLogRepository
	client      mahak.Client
	processor   Processor
	config      ReconciliationDriverConfig
	logger      *zap.Logger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciliationDriver creates a reconciliation driver
func NewReconciliationDriver(
	queueRepo syncdomain.QueueRepository,
	mappingRepo syncdomain.IdentityMappingRepository,
	runRepo syncdomain.SyncRunRepository,
	errorRepo syncdomain.ErrorLogRepository,
	client mahak.Client,
	processor Processor,
	config ReconciliationDriverConfig,
	log *zap.Logger,
) (*ReconciliationDriver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCronSpec, config.Schedule, err)
	}
	if config.VerifyPageSize <= 0 {
		config.VerifyPageSize = 100
	}
	return &ReconciliationDriver{
		queueRepo:   queueRepo,
		mappingRepo: mappingRepo,
		runRepo:     runRepo,
		errorRepo:   errorRepo,
		client:      client,
		processor:   processor,
		config:      config,
		logger:      log.Named("reconciliation-driver"),
	}, nil
}

// Start registers the cron job and begins scheduling
func (d *ReconciliationDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return ErrDriverAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	c := cron.New()
	if _, err := c.AddFunc(d.config.Schedule, func() {
		d.wg.Add(1)
		defer d.wg.Done()
		d.RunCycle(ctx)
	}); err != nil {
		cancel()
		d.cancel = nil
		return fmt.Errorf("%w: %v", ErrInvalidCronSpec, err)
	}
	c.Start()
	d.cron = c

	d.logger.Info("reconciliation driver started",
		zap.String("schedule", d.config.Schedule),
		zap.Duration("stale_claim_timeout", d.config.StaleClaimTimeout),
		zap.Duration("cleanup_retention", d.config.CleanupRetention),
	)
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish. The given
// context bounds how long to wait.
func (d *ReconciliationDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	c := d.cron
	cancel := d.cancel
	d.cron = nil
	d.cancel = nil
	d.mu.Unlock()

	if c == nil {
		return ErrDriverNotRunning
	}
	c.Stop()
	cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("reconciliation driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle executes one full reconciliation pass. Exported so tests and the
// operational surface can trigger a cycle on demand. Steps are independent:
// a failure in one is logged and the rest still run.
func (d *ReconciliationDriver) RunCycle(ctx context.Context) {
	started := time.Now()
	d.logger.Info("reconciliation cycle started")

	d.reclaimStale(ctx)
	drained := drainDue(ctx, d.queueRepo, d.processor, d.config.BatchSize, d.logger)
	d.verifyMappings(ctx)
	d.cleanup(ctx)

	d.logger.Info("reconciliation cycle finished",
		zap.Int("items_drained", drained),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// reclaimStale returns abandoned PROCESSING claims to PENDING
func (d *ReconciliationDriver) reclaimStale(ctx context.Context) {
	cutoff := time.Now().Add(-d.config.StaleClaimTimeout)
	reclaimed, err := d.queueRepo.ReclaimStale(ctx, cutoff)
	if err != nil {
		d.logger.Error("stale claim recovery failed", zap.Error(err))
		return
	}
	if reclaimed > 0 {
		d.logger.Warn("recovered abandoned claims", zap.Int64("count", reclaimed))
	}
}

// verifyMappings audits a bounded page of mappings per entity type against
// Mahak. A mapping whose remote record is gone gets an error log entry so an
// operator can decide whether to re-push or unbind; the binding itself is
// never touched automatically.
func (d *ReconciliationDriver) verifyMappings(ctx context.Context) {
	for _, entityType := range verifiedEntityTypes {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.verifyEntityType(ctx, entityType)
	}
}

func (d *ReconciliationDriver) verifyEntityType(ctx context.Context, entityType syncdomain.EntityType) {
	run := syncdomain.BeginRun(entityType, nil, syncdomain.SyncTypeFull)

	mappings, _, err := d.mappingRepo.FindByEntityType(ctx, entityType, 1, d.config.VerifyPageSize)
	if err != nil {
		d.logger.Error("mapping listing failed",
			zap.String("entity_type", entityType.String()),
			zap.Error(err),
		)
		run.Complete(syncdomain.SyncStatusFailure, 0, 0, 0, "", err.Error(), 0)
		d.saveRun(ctx, run)
		return
	}
	if len(mappings) == 0 {
		return
	}

	checked, missing := 0, 0
	for _, m := range mappings {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := d.client.Fetch(ctx, string(entityType), m.MahakEntityID)
		if err != nil {
			// Transient lookup trouble: skip, the next cycle retries
			d.logger.Warn("mapping verification fetch failed",
				zap.String("entity_type", entityType.String()),
				zap.Int64("mahak_entity_id", m.MahakEntityID),
				zap.Error(err),
			)
			continue
		}
		checked++
		if result.Found {
			continue
		}

		missing++
		localID := m.LocalEntityID
		if _, err := d.errorRepo.Record(ctx, syncdomain.ErrorRecord{
			ErrorType:  "RECONCILIATION",
			EntityType: entityType,
			EntityID:   &localID,
			ErrorCode:  "REMOTE_RECORD_MISSING",
			Message:    fmt.Sprintf("mapped Mahak record %d no longer exists", m.MahakEntityID),
			Severity:   syncdomain.SeverityHigh,
		}); err != nil {
			d.logger.Error("error log write failed", zap.Error(err))
		}
	}

	status := syncdomain.SyncStatusSuccess
	if missing > 0 {
		status = syncdomain.SyncStatusPartialFailure
	}
	run.Complete(status, checked, checked-missing, missing, "", "", 0)
	d.saveRun(ctx, run)
}

// cleanup prunes terminal queue items past the retention window
func (d *ReconciliationDriver) cleanup(ctx context.Context) {
	if d.config.CleanupRetention <= 0 {
		return
	}
	before := time.Now().Add(-d.config.CleanupRetention)
	pruned, err := d.queueRepo.DeleteTerminalOlderThan(ctx, before)
	if err != nil {
		d.logger.Error("queue cleanup failed", zap.Error(err))
		return
	}
	if pruned > 0 {
		d.logger.Info("pruned terminal queue items", zap.Int64("count", pruned))
	}
}

func (d *ReconciliationDriver) saveRun(ctx context.Context, run *syncdomain.SyncRun) {
	if err := d.runRepo.Save(ctx, run); err != nil {
		d.logger.Error("run log write failed", zap.Error(err))
	}
}
