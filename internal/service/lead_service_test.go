package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

func setupLeadService(t *testing.T) (*service.LeadService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	idService := service.NewIDService(leadRepo, sampleRepo, zap.NewNop())
	svc := service.NewLeadService(
		leadRepo,
		repository.NewLeadStatusHistoryRepository(db),
		repository.NewRecycleRepository(db),
		repository.NewUserRepository(db),
		idService,
		zap.NewNop(),
	)
	return svc, db
}

func TestLeadCreate_GeneratesIdentifier(t *testing.T) {
	svc, db := setupLeadService(t)

	lead, err := svc.Create(context.Background(), &domain.CreateLeadRequest{
		PatientName: "Asha Rao",
		ServiceName: "Whole Exome Sequencing",
		RoleHint:    "sales",
	})
	require.NoError(t, err)

	assert.Len(t, lead.UniqueID, 10)
	assert.Equal(t, "SA", lead.UniqueID[2:4])
	assert.Equal(t, domain.LeadStatusQuoted, lead.Status)
	assert.Equal(t, domain.TestCategoryClinical, lead.TestCategory)

	// Creation is recorded as the first history entry.
	var history []domain.LeadStatusHistory
	require.NoError(t, db.Where("lead_id = ?", lead.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, domain.LeadStatusQuoted, history[0].ToStatus)
}

func TestLeadCreate_KeepsSuppliedIdentifier(t *testing.T) {
	svc, _ := setupLeadService(t)

	lead, err := svc.Create(context.Background(), &domain.CreateLeadRequest{
		UniqueID:    "26SAXYZ123",
		PatientName: "Asha Rao",
	})
	require.NoError(t, err)
	assert.Equal(t, "26SAXYZ123", lead.UniqueID)
}

func TestLeadCreate_RoleFromCreatingUser(t *testing.T) {
	svc, db := setupLeadService(t)

	user := testutil.CreateTestUser(t, db, "gc@progenics.in", domain.UserRoleGeneticCounsellor)
	ctx := auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})

	lead, err := svc.Create(ctx, &domain.CreateLeadRequest{PatientName: "Asha Rao"})
	require.NoError(t, err)
	assert.Equal(t, "GC", lead.UniqueID[2:4])
	require.NotNil(t, lead.CreatedByID)
	assert.Equal(t, user.ID, *lead.CreatedByID)
}

func TestLeadCreate_DiscoveryCategory(t *testing.T) {
	svc, _ := setupLeadService(t)

	lead, err := svc.Create(context.Background(), &domain.CreateLeadRequest{
		PatientName:  "Asha Rao",
		TestCategory: "discovery",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TestCategoryDiscovery, lead.TestCategory)
}

func TestLeadUpdateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.LeadStatus
		to      string
		wantErr error
	}{
		{"quoted to cold", domain.LeadStatusQuoted, "cold", nil},
		{"cold to hot", domain.LeadStatusCold, "hot", nil},
		{"hot to won", domain.LeadStatusHot, "won", nil},
		{"won to closed", domain.LeadStatusWon, "closed", nil},
		{"quoted skipping to won", domain.LeadStatusQuoted, "won", service.ErrInvalidTransition},
		{"cold back to quoted", domain.LeadStatusCold, "quoted", service.ErrInvalidTransition},
		{"converted is terminal", domain.LeadStatusConverted, "closed", service.ErrInvalidTransition},
		{"closed is terminal", domain.LeadStatusClosed, "hot", service.ErrInvalidTransition},
		{"converted unreachable by status update", domain.LeadStatusWon, "converted", service.ErrInvalidTransition},
		{"unknown status", domain.LeadStatusQuoted, "lukewarm", service.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := setupLeadService(t)
			lead := testutil.CreateTestLead(t, db, "26SATRN001", tt.from)

			updated, err := svc.UpdateStatus(context.Background(), lead.ID, &domain.UpdateLeadStatusRequest{
				Status: tt.to,
				Note:   "pipeline review",
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.LeadStatus(tt.to), updated.Status)

			var history []domain.LeadStatusHistory
			require.NoError(t, db.Where("lead_id = ?", lead.ID).Find(&history).Error)
			require.Len(t, history, 1)
			assert.Equal(t, tt.from, history[0].FromStatus)
			assert.Equal(t, domain.LeadStatus(tt.to), history[0].ToStatus)
			assert.Equal(t, "pipeline review", history[0].Note)
		})
	}
}

func TestLeadUpdate_PartialFields(t *testing.T) {
	svc, db := setupLeadService(t)
	lead := testutil.CreateTestLead(t, db, "26SAAAA001", domain.LeadStatusQuoted)

	city := "Bengaluru"
	amount := "45000"
	updated, err := svc.Update(context.Background(), lead.ID, &domain.UpdateLeadRequest{
		City:         &city,
		AmountQuoted: &amount,
		GenePanel:    []string{"BRCA1", "BRCA2"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bengaluru", updated.City)
	assert.Equal(t, "45000", updated.AmountQuoted)
	assert.Equal(t, []string{"BRCA1", "BRCA2"}, []string(updated.GenePanel))
	// Untouched fields survive.
	assert.Equal(t, "Asha Rao", updated.PatientName)
	assert.Equal(t, domain.LeadStatusQuoted, updated.Status)
}

func TestLeadDelete_MovesToRecycleBin(t *testing.T) {
	svc, db := setupLeadService(t)
	lead := testutil.CreateTestLead(t, db, "26SAAAA002", domain.LeadStatusCold)

	require.NoError(t, svc.Delete(context.Background(), lead.ID, "duplicate entry"))

	_, err := svc.GetByID(context.Background(), lead.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	var entries []domain.RecycleEntry
	require.NoError(t, db.Where("entity_type = ?", "leads").Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "26SAAAA002", entries[0].EntityID)
	assert.Equal(t, "duplicate entry", entries[0].Reason)
	assert.Contains(t, entries[0].Data, "Asha Rao")
}

func TestLeadDelete_NotFound(t *testing.T) {
	svc, db := setupLeadService(t)
	lead := testutil.CreateTestLead(t, db, "26SAAAA003", domain.LeadStatusQuoted)
	require.NoError(t, svc.Delete(context.Background(), lead.ID, ""))

	err := svc.Delete(context.Background(), lead.ID, "")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLeadHistory(t *testing.T) {
	svc, db := setupLeadService(t)
	lead := testutil.CreateTestLead(t, db, "26SAAAA004", domain.LeadStatusQuoted)

	_, err := svc.UpdateStatus(context.Background(), lead.ID, &domain.UpdateLeadStatusRequest{Status: "cold"})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), lead.ID, &domain.UpdateLeadStatusRequest{Status: "hot"})
	require.NoError(t, err)

	entries, err := svc.History(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLeadPipeline(t *testing.T) {
	svc, db := setupLeadService(t)
	testutil.CreateTestLead(t, db, "26SAAAA005", domain.LeadStatusQuoted)
	testutil.CreateTestLead(t, db, "26SAAAA006", domain.LeadStatusQuoted)
	testutil.CreateTestLead(t, db, "26SAAAA007", domain.LeadStatusHot)
	testutil.CreateTestLead(t, db, "26SAAAA008", domain.LeadStatusConverted)

	counts, err := svc.Pipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Quoted)
	assert.Equal(t, int64(1), counts.Hot)
	assert.Equal(t, int64(1), counts.Converted)
	assert.Zero(t, counts.Cold)
}

func TestLeadList_Pagination(t *testing.T) {
	svc, db := setupLeadService(t)
	for i := 0; i < 5; i++ {
		testutil.CreateTestLead(t, db, "26SAAAB00"+string(rune('0'+i)), domain.LeadStatusQuoted)
	}

	page, err := svc.List(context.Background(), &domain.LeadListFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages)
}

func TestLeadList_StatusFilter(t *testing.T) {
	svc, db := setupLeadService(t)
	testutil.CreateTestLead(t, db, "26SAAAC001", domain.LeadStatusQuoted)
	testutil.CreateTestLead(t, db, "26SAAAC002", domain.LeadStatusHot)

	page, err := svc.List(context.Background(), &domain.LeadListFilter{Status: "hot"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.LeadStatusHot, page.Items[0].Status)
}
