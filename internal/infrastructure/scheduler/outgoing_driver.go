// Package scheduler contains the two background drivers of the sync engine:
// the outgoing driver, a short-period poller that drains due queue items, and
// the reconciliation driver, a cron job that recovers abandoned claims,
// audits identity mappings against Mahak and prunes old terminal items.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/shopino/backend/internal/domain/sync"
	"github.com/shopino/backend/internal/infrastructure/logger"
)

// Processor pushes one claimed queue item to Mahak and records the outcome
type Processor interface {
	ProcessItem(ctx context.Context, item *syncdomain.QueueItem) error
}

// OutgoingDriverConfig holds configuration for the outgoing driver
type OutgoingDriverConfig struct {
	// BatchSize is the number of items claimed per tick
	BatchSize int
	// Interval is the polling period
	Interval time.Duration
	// StartupDelay postpones the first tick so the process finishes wiring
	// before any Mahak traffic starts
	StartupDelay time.Duration
}

// Validate checks the configuration
func (c OutgoingDriverConfig) Validate() error {
	if c.BatchSize <= 0 || c.Interval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// OutgoingDriver periodically claims due queue items and processes them one
// at a time. Items are isolated from each other: one failing item never
// blocks the rest of the batch.
type OutgoingDriver struct {
	queueRepo syncdomain.QueueRepository
	processor Processor
	config    OutgoingDriverConfig
	logger    *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutgoingDriver creates an outgoing driver
func NewOutgoingDriver(queueRepo syncdomain.QueueRepository, processor Processor, config OutgoingDriverConfig, log *zap.Logger) (*OutgoingDriver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OutgoingDriver{
		queueRepo: queueRepo,
		processor: processor,
		config:    config,
		logger:    log.Named("outgoing-driver"),
	}, nil
}

// Start begins background processing
func (d *OutgoingDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return ErrDriverAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("outgoing driver started",
		zap.Int("batch_size", d.config.BatchSize),
		zap.Duration("interval", d.config.Interval),
		zap.Duration("startup_delay", d.config.StartupDelay),
	)
	return nil
}

// Stop cancels the loop and waits for the in-flight item to finish. The
// given context bounds how long to wait.
func (d *OutgoingDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel == nil {
		return ErrDriverNotRunning
	}
	cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("outgoing driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop ticks until the context is cancelled
func (d *OutgoingDriver) runLoop(ctx context.Context) {
	defer d.wg.Done()

	if d.config.StartupDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.config.StartupDelay):
		}
	}

	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	// First tick immediately after the startup delay
	d.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick claims one batch of due items and processes them sequentially.
// Exported so tests can drive a cycle without the timer.
func (d *OutgoingDriver) Tick(ctx context.Context) {
	drainDue(ctx, d.queueRepo, d.processor, d.config.BatchSize, d.logger)
}

// drainDue claims up to limit due items and processes them one at a time.
// Both drivers share it. A failing item is logged and skipped; cancellation
// is honored between items only. The item in flight runs on a context
// detached from the driver's, so a shutdown never aborts a Mahak call
// mid-request and leaves the remote side in an unknown state; the client's
// own timeout still bounds the call.
func drainDue(ctx context.Context, repo syncdomain.QueueRepository, proc Processor, limit int, log *zap.Logger) int {
	items, err := repo.ClaimDue(ctx, limit, time.Now())
	if err != nil {
		log.Error("claim failed", zap.Error(err))
		return 0
	}
	if len(items) == 0 {
		return 0
	}

	log.Debug("claimed batch", zap.Int("count", len(items)))

	processed := 0
	for _, item := range items {
		select {
		case <-ctx.Done():
			return processed
		default:
		}

		itemCtx, itemLogger := logger.WithQueueItem(context.WithoutCancel(ctx), log, item.ID)
		if err := proc.ProcessItem(itemCtx, item); err != nil {
			itemLogger.Error("item processing failed", zap.Error(err))
			continue
		}
		processed++
	}
	return processed
}
