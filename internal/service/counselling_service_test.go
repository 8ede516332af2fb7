package service_test

import (
	"context"
	"testing"
	"time"

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

func setupCounsellingService(t *testing.T) (*service.CounsellingService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewCounsellingService(repository.NewGeneticCounsellingRepository(db), zap.NewNop())
	return svc, db
}

func createCounsellingFixture(t *testing.T, db *gorm.DB, sampleID string) *domain.GeneticCounselling {
	t.Helper()
	lead := testutil.CreateTestLead(t, db, "26SA"+sampleID[8:], domain.LeadStatusConverted)
	session := &domain.GeneticCounselling{
		SampleID:       sampleID,
		LeadID:         lead.ID,
		PatientName:    lead.PatientName,
		ServiceName:    lead.ServiceName,
		ApprovalStatus: domain.ApprovalStatusPending,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func TestCounsellingAssignAndApprove(t *testing.T) {
	svc, db := setupCounsellingService(t)
	session := createCounsellingFixture(t, db, "PG260314150405")

	scheduled := time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC)
	assigned, err := svc.Assign(context.Background(), session.ID, &domain.AssignCounsellorRequest{
		GCName:        "Dr. Meera Nair",
		ScheduledDate: &scheduled,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Meera Nair", assigned.GCName)
	require.NotNil(t, assigned.ScheduledDate)

	approved, err := svc.Approve(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusApproved, approved.ApprovalStatus)
}

func TestCounsellingApprove_RequiresAssignment(t *testing.T) {
	svc, db := setupCounsellingService(t)
	session := createCounsellingFixture(t, db, "PG260314150406")

	_, err := svc.Approve(context.Background(), session.ID)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestCounsellingApprove_OnlyPendingSessions(t *testing.T) {
	svc, db := setupCounsellingService(t)
	session := createCounsellingFixture(t, db, "PG260314150407")
	require.NoError(t, db.Model(session).Updates(map[string]interface{}{
		"gc_name":         "Dr. Meera Nair",
		"approval_status": domain.ApprovalStatusApproved,
	}).Error)

	_, err := svc.Approve(context.Background(), session.ID)
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	_, err = svc.Assign(context.Background(), session.ID, &domain.AssignCounsellorRequest{GCName: "Dr. A"})
	assert.ErrorIs(t, err, service.ErrInvalidStatus)
}

func TestCounsellingListPending(t *testing.T) {
	svc, db := setupCounsellingService(t)
	createCounsellingFixture(t, db, "PG260314150408")
	done := createCounsellingFixture(t, db, "PG260314150409")
	require.NoError(t, db.Model(done).Update("approval_status", domain.ApprovalStatusApproved).Error)

	pending, err := svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "PG260314150408", pending[0].SampleID)
}

func TestCounsellingGetByID_NotFound(t *testing.T) {
	svc, _ := setupCounsellingService(t)

	_, err := svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}
