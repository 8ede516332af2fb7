package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/reconcile"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

// fakeDispatcher records dispatched tasks and fails on demand.
type fakeDispatcher struct {
	calls []string
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, task *domain.ReconciliationTask) error {
	f.calls = append(f.calls, task.Name)
	return f.err
}

func setupReconcileService(t *testing.T, dispatcher reconcile.Dispatcher, endpoints []service.ReconcileEndpoint, maxAttempts int) (*service.ReconcileService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewReconcileService(
		repository.NewReconciliationTaskRepository(db),
		map[string]reconcile.Dispatcher{"http": dispatcher},
		endpoints,
		maxAttempts,
		time.Minute,
		zap.NewNop(),
	)
	return svc, db
}

func twoEndpoints() []service.ReconcileEndpoint {
	return []service.ReconcileEndpoint{
		{Name: "crm-sync", Kind: "http", Target: "https://crm.internal/hooks/conversion"},
		{Name: "warehouse-sync", Kind: "http", Target: "https://dw.internal/hooks/conversion"},
	}
}

func TestEnqueueConversionTasks_OnePerEndpoint(t *testing.T) {
	svc, db := setupReconcileService(t, &fakeDispatcher{}, twoEndpoints(), 3)

	err := svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{"sampleId":"PG260314150405"}`))
	require.NoError(t, err)

	var tasks []domain.ReconciliationTask
	require.NoError(t, db.Find(&tasks).Error)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, domain.ReconciliationTaskPending, task.Status)
		assert.Equal(t, "PG260314150405", task.SampleID)
		assert.Zero(t, task.Attempts)
	}
}

func TestDispatchPending_MarksSent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupReconcileService(t, dispatcher, twoEndpoints(), 3)
	require.NoError(t, svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{}`)))

	require.NoError(t, svc.DispatchPending(context.Background(), 0))

	assert.ElementsMatch(t, []string{"crm-sync", "warehouse-sync"}, dispatcher.calls)

	var sent int64
	require.NoError(t, db.Model(&domain.ReconciliationTask{}).
		Where("status = ?", domain.ReconciliationTaskSent).Count(&sent).Error)
	assert.Equal(t, int64(2), sent)

	// Sent tasks are not picked up again.
	dispatcher.calls = nil
	require.NoError(t, svc.DispatchPending(context.Background(), 0))
	assert.Empty(t, dispatcher.calls)
}

func TestDispatchPending_FailureSchedulesRetry(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("connection refused")}
	svc, db := setupReconcileService(t, dispatcher, twoEndpoints()[:1], 3)
	require.NoError(t, svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{}`)))

	require.NoError(t, svc.DispatchPending(context.Background(), 0))

	var task domain.ReconciliationTask
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, domain.ReconciliationTaskPending, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, "connection refused", task.LastError)
	require.NotNil(t, task.DispatchAt)
	assert.True(t, task.DispatchAt.After(time.Now()), "retry must be pushed into the future")

	// The backoff holds the task back from the next drain.
	dispatcher.calls = nil
	require.NoError(t, svc.DispatchPending(context.Background(), 0))
	assert.Empty(t, dispatcher.calls)
}

func TestDispatchPending_ExhaustedAttemptsParkAsFailed(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("boom")}
	svc, db := setupReconcileService(t, dispatcher, twoEndpoints()[:1], 1)
	require.NoError(t, svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{}`)))

	require.NoError(t, svc.DispatchPending(context.Background(), 0))

	var task domain.ReconciliationTask
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, domain.ReconciliationTaskFailed, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Nil(t, task.DispatchAt)
}

func TestDispatchPending_UnknownKindFailsPermanently(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	endpoints := []service.ReconcileEndpoint{
		{Name: "pager-sync", Kind: "smtp", Target: "ops@progenics.in"},
	}
	svc, db := setupReconcileService(t, dispatcher, endpoints, 5)
	require.NoError(t, svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{}`)))

	require.NoError(t, svc.DispatchPending(context.Background(), 0))

	assert.Empty(t, dispatcher.calls)
	var task domain.ReconciliationTask
	require.NoError(t, db.First(&task).Error)
	assert.Equal(t, domain.ReconciliationTaskFailed, task.Status)
	assert.Contains(t, task.LastError, "smtp")
}

func TestReconcileStats(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc, db := setupReconcileService(t, dispatcher, twoEndpoints(), 3)
	require.NoError(t, svc.EnqueueConversionTasks(context.Background(), "PG260314150405", []byte(`{}`)))
	require.NoError(t, db.Model(&domain.ReconciliationTask{}).
		Where("name = ?", "crm-sync").
		Update("status", domain.ReconciliationTaskSent).Error)

	pending, sent, failed, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	assert.Equal(t, int64(1), sent)
	assert.Zero(t, failed)
}
