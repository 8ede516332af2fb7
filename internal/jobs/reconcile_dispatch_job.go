package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ReconcileDispatchJobName is the name of the reconciliation dispatch job
const ReconcileDispatchJobName = "reconcile_dispatch"

// DefaultDispatchBatchSize caps how many pending tasks a single run picks up
const DefaultDispatchBatchSize = 50

// ReconcileDispatchService defines the interface for draining pending
// reconciliation tasks. The interface keeps the job decoupled from the
// service package.
type ReconcileDispatchService interface {
	DispatchPending(ctx context.Context, limit int) error
}

// ReconcileDispatchJob periodically drains the reconciliation task queue,
// pushing conversion fan-out records to downstream billing and lab systems.
type ReconcileDispatchJob struct {
	reconcileService ReconcileDispatchService
	batchSize        int
	logger           *zap.Logger
	timeout          time.Duration
}

// NewReconcileDispatchJob creates a new reconciliation dispatch job.
// The timeout controls how long a single drain run is allowed to take.
func NewReconcileDispatchJob(reconcileService ReconcileDispatchService, batchSize int, logger *zap.Logger, timeout time.Duration) *ReconcileDispatchJob {
	if batchSize <= 0 {
		batchSize = DefaultDispatchBatchSize
	}
	return &ReconcileDispatchJob{
		reconcileService: reconcileService,
		batchSize:        batchSize,
		logger:           logger,
		timeout:          timeout,
	}
}

// Run executes one drain of the reconciliation queue.
// This is called by the scheduler according to the cron expression.
func (j *ReconcileDispatchJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()

	if err := j.reconcileService.DispatchPending(ctx, j.batchSize); err != nil {
		j.logger.Error("reconciliation dispatch failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Debug("reconciliation dispatch completed",
		zap.Duration("duration", time.Since(start)))
}
