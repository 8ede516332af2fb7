package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type ReconciliationTaskRepository struct {
	db *gorm.DB
}

func NewReconciliationTaskRepository(db *gorm.DB) *ReconciliationTaskRepository {
	return &ReconciliationTaskRepository{db: db}
}

func (r *ReconciliationTaskRepository) Create(ctx context.Context, task *domain.ReconciliationTask) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

func (r *ReconciliationTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReconciliationTask, error) {
	var task domain.ReconciliationTask
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListPending returns dispatchable tasks, oldest first. Tasks with a future
// dispatch_at are held back.
func (r *ReconciliationTaskRepository) ListPending(ctx context.Context, limit int) ([]domain.ReconciliationTask, error) {
	var tasks []domain.ReconciliationTask
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.ReconciliationTaskPending).
		Where("dispatch_at IS NULL OR dispatch_at <= ?", time.Now()).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// MarkSent records a successful dispatch.
func (r *ReconciliationTaskRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&domain.ReconciliationTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.ReconciliationTaskSent,
			"last_error": "",
		}).Error
}

// RecordFailure bumps the attempt counter and either reschedules the task or,
// when attempts are exhausted, parks it as failed.
func (r *ReconciliationTaskRepository) RecordFailure(ctx context.Context, task *domain.ReconciliationTask, dispatchErr error, maxAttempts int, retryDelay time.Duration) error {
	task.Attempts++
	task.LastError = dispatchErr.Error()
	if task.Attempts >= maxAttempts {
		task.Status = domain.ReconciliationTaskFailed
		task.DispatchAt = nil
	} else {
		next := time.Now().Add(retryDelay * time.Duration(task.Attempts))
		task.DispatchAt = &next
	}
	return r.db.WithContext(ctx).
		Model(&domain.ReconciliationTask{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":      task.Status,
			"attempts":    task.Attempts,
			"last_error":  task.LastError,
			"dispatch_at": task.DispatchAt,
		}).Error
}

// CountByStatus returns the number of tasks in the given state.
func (r *ReconciliationTaskRepository) CountByStatus(ctx context.Context, status domain.ReconciliationTaskStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ReconciliationTask{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
