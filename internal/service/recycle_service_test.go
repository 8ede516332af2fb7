package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

func setupRecycleService(t *testing.T) (*service.RecycleService, *service.LeadService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	idService := service.NewIDService(leadRepo, sampleRepo, zap.NewNop())

	leadService := service.NewLeadService(
		leadRepo,
		repository.NewLeadStatusHistoryRepository(db),
		repository.NewRecycleRepository(db),
		repository.NewUserRepository(db),
		idService,
		zap.NewNop(),
	)
	recycleService := service.NewRecycleService(
		repository.NewRecycleRepository(db),
		leadRepo,
		sampleRepo,
		zap.NewNop(),
	)
	return recycleService, leadService, db
}

func deletedLeadEntry(t *testing.T, db *gorm.DB, leadService *service.LeadService, uniqueID string) *domain.RecycleEntry {
	t.Helper()
	lead := testutil.CreateTestLead(t, db, uniqueID, domain.LeadStatusCold)
	require.NoError(t, leadService.Delete(context.Background(), lead.ID, "test cleanup"))

	var entry domain.RecycleEntry
	require.NoError(t, db.First(&entry, "entity_id = ?", uniqueID).Error)
	return &entry
}

func TestRecycleRestore_LeadRoundTrip(t *testing.T) {
	recycleService, leadService, db := setupRecycleService(t)
	entry := deletedLeadEntry(t, db, leadService, "26SARCY001")

	require.NoError(t, recycleService.Restore(context.Background(), entry.ID))

	var lead domain.Lead
	require.NoError(t, db.First(&lead, "unique_id = ?", "26SARCY001").Error)
	assert.Equal(t, "Asha Rao", lead.PatientName)
	assert.Equal(t, domain.LeadStatusCold, lead.Status)

	// The entry is gone once the row is back.
	var count int64
	require.NoError(t, db.Model(&domain.RecycleEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRecycleRestore_UnknownEntry(t *testing.T) {
	recycleService, _, _ := setupRecycleService(t)

	err := recycleService.Restore(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRecycleRestore_UnsupportedEntityType(t *testing.T) {
	recycleService, _, db := setupRecycleService(t)

	entry := &domain.RecycleEntry{
		EntityType: "invoices",
		EntityID:   "INV-1",
		Data:       "{}",
	}
	require.NoError(t, db.Create(entry).Error)

	err := recycleService.Restore(context.Background(), entry.ID)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestRecyclePurge(t *testing.T) {
	recycleService, leadService, db := setupRecycleService(t)
	entry := deletedLeadEntry(t, db, leadService, "26SARCY002")

	require.NoError(t, recycleService.Purge(context.Background(), entry.ID))

	var count int64
	require.NoError(t, db.Model(&domain.RecycleEntry{}).Count(&count).Error)
	assert.Zero(t, count)

	// Purged snapshots cannot be restored.
	err := recycleService.Restore(context.Background(), entry.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestRecycleList_FiltersByEntityType(t *testing.T) {
	recycleService, leadService, db := setupRecycleService(t)
	deletedLeadEntry(t, db, leadService, "26SARCY003")
	require.NoError(t, db.Create(&domain.RecycleEntry{
		EntityType: "samples",
		EntityID:   "PG260314150405",
		Data:       "{}",
	}).Error)

	page, err := recycleService.List(context.Background(), "leads", 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "leads", page.Items[0].EntityType)

	all, err := recycleService.List(context.Background(), "", 1, 50)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}
