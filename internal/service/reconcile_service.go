package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/reconcile"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// ReconcileEndpoint describes one downstream system that must hear about
// conversions.
type ReconcileEndpoint struct {
	Name   string
	Kind   string // "http" or "amqp"
	Target string // URL for http, routing key for amqp
}

// ReconcileService keeps downstream systems eventually consistent with
// conversions. Each side effect is a durable task row dispatched
// asynchronously; a task can fail on its own without touching the conversion
// or its sibling tasks.
type ReconcileService struct {
	taskRepo    *repository.ReconciliationTaskRepository
	dispatchers map[string]reconcile.Dispatcher
	endpoints   []ReconcileEndpoint
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger
}

func NewReconcileService(
	taskRepo *repository.ReconciliationTaskRepository,
	dispatchers map[string]reconcile.Dispatcher,
	endpoints []ReconcileEndpoint,
	maxAttempts int,
	retryDelay time.Duration,
	logger *zap.Logger,
) *ReconcileService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if retryDelay <= 0 {
		retryDelay = time.Minute
	}
	return &ReconcileService{
		taskRepo:    taskRepo,
		dispatchers: dispatchers,
		endpoints:   endpoints,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// EnqueueConversionTasks creates one pending task per configured endpoint.
func (s *ReconcileService) EnqueueConversionTasks(ctx context.Context, sampleID string, payload []byte) error {
	for _, ep := range s.endpoints {
		task := &domain.ReconciliationTask{
			Name:     ep.Name,
			Kind:     ep.Kind,
			Target:   ep.Target,
			Payload:  string(payload),
			Status:   domain.ReconciliationTaskPending,
			SampleID: sampleID,
		}
		if err := s.taskRepo.Create(ctx, task); err != nil {
			return fmt.Errorf("failed to enqueue task %s: %w", ep.Name, err)
		}
	}
	return nil
}

// DispatchPending drains dispatchable tasks. Called from the scheduler and
// kicked opportunistically after each conversion.
func (s *ReconcileService) DispatchPending(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = 50
	}
	tasks, err := s.taskRepo.ListPending(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}

	for i := range tasks {
		task := &tasks[i]
		s.dispatchOne(ctx, task)
	}
	return nil
}

func (s *ReconcileService) dispatchOne(ctx context.Context, task *domain.ReconciliationTask) {
	dispatcher, ok := s.dispatchers[task.Kind]
	if !ok {
		s.failPermanently(ctx, task, fmt.Errorf("no dispatcher for kind %q", task.Kind))
		return
	}

	if err := dispatcher.Dispatch(ctx, task); err != nil {
		s.logger.Warn("reconciliation dispatch failed",
			zap.String("task", task.Name),
			zap.String("sampleId", task.SampleID),
			zap.Int("attempts", task.Attempts+1),
			zap.Error(err))
		if rerr := s.taskRepo.RecordFailure(ctx, task, err, s.maxAttempts, s.retryDelay); rerr != nil {
			s.logger.Error("failed to record dispatch failure",
				zap.String("taskId", task.ID.String()),
				zap.Error(rerr))
		}
		return
	}

	if err := s.taskRepo.MarkSent(ctx, task.ID); err != nil {
		s.logger.Error("failed to mark task sent",
			zap.String("taskId", task.ID.String()),
			zap.Error(err))
		return
	}
	s.logger.Info("reconciliation task delivered",
		zap.String("task", task.Name),
		zap.String("sampleId", task.SampleID))
}

func (s *ReconcileService) failPermanently(ctx context.Context, task *domain.ReconciliationTask, cause error) {
	s.logger.Error("reconciliation task unroutable",
		zap.String("task", task.Name),
		zap.Error(cause))
	if err := s.taskRepo.RecordFailure(ctx, task, cause, 1, s.retryDelay); err != nil {
		s.logger.Error("failed to park unroutable task",
			zap.String("taskId", task.ID.String()),
			zap.Error(err))
	}
}

// Stats returns task counts per delivery state for the dashboard.
func (s *ReconcileService) Stats(ctx context.Context) (pending, sent, failed int64, err error) {
	if pending, err = s.taskRepo.CountByStatus(ctx, domain.ReconciliationTaskPending); err != nil {
		return
	}
	if sent, err = s.taskRepo.CountByStatus(ctx, domain.ReconciliationTaskSent); err != nil {
		return
	}
	failed, err = s.taskRepo.CountByStatus(ctx, domain.ReconciliationTaskFailed)
	return
}
