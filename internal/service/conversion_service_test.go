package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
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

func setupConversionService(t *testing.T, endpoints []service.ReconcileEndpoint) (*service.ConversionService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	leadRepo := repository.NewLeadRepository(db)
	sampleRepo := repository.NewSampleRepository(db)
	idService := service.NewIDService(leadRepo, sampleRepo, zap.NewNop())

	var reconcileService *service.ReconcileService
	if endpoints != nil {
		reconcileService = service.NewReconcileService(
			repository.NewReconciliationTaskRepository(db),
			map[string]reconcile.Dispatcher{},
			endpoints,
			3,
			time.Minute,
			zap.NewNop(),
		)
	}

	svc := service.NewConversionService(
		db,
		leadRepo,
		repository.NewLeadStatusHistoryRepository(db),
		idService,
		reconcileService,
		nil,
		zap.NewNop(),
	)
	return svc, db
}

func TestConvert_CreatesFanOutRecords(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV001", domain.LeadStatusWon)

	result, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{
		Amount:      "30000",
		SampleType:  "blood",
		TrackingID:  "AWB-1001",
		CourierName: "BlueDart",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.LeadStatusConverted, result.Lead.Status)
	require.NotNil(t, result.Lead.ConvertedAt)

	require.NotNil(t, result.Sample)
	assert.True(t, strings.HasPrefix(result.Sample.SampleID, "PG"))
	assert.Len(t, result.Sample.SampleID, 14)
	assert.Equal(t, domain.SampleStatusPickupScheduled, result.Sample.Status, "status defaults to pickup_scheduled")
	assert.Equal(t, "0", result.Sample.PaidAmount, "paid amount defaults to zero")
	assert.Equal(t, lead.PatientName, result.Sample.PatientName)
	assert.Equal(t, "blood", result.Sample.SampleType)

	require.NotNil(t, result.FinanceRecord)
	assert.Equal(t, "30000", result.FinanceRecord.Amount)
	assert.Equal(t, "30000", result.FinanceRecord.TotalAmount, "total defaults to amount")
	assert.Equal(t, domain.PaymentStatusPending, result.FinanceRecord.PaymentStatus)

	require.NotNil(t, result.LabProcessing)
	assert.Equal(t, domain.QCStatusPending, result.LabProcessing.QCStatus)
	assert.False(t, result.LabProcessing.LibraryPrepared)

	assert.Nil(t, result.GeneticCounselling, "no counselling unless requested or flagged")

	// Conversion is recorded in the status history.
	var history []domain.LeadStatusHistory
	require.NoError(t, db.Where("lead_id = ?", lead.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, domain.LeadStatusWon, history[0].FromStatus)
	assert.Equal(t, domain.LeadStatusConverted, history[0].ToStatus)
	assert.Contains(t, history[0].Note, result.Sample.SampleID)
}

func TestConvert_DiscoveryLeadGetsDGSample(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV002", domain.LeadStatusWon)
	require.NoError(t, db.Model(lead).Update("test_category", domain.TestCategoryDiscovery).Error)

	result, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "15000"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Sample.SampleID, "DG"))
}

func TestConvert_CallerSuppliedSampleState(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV010", domain.LeadStatusWon)

	// A lead converted after the courier already collected the sample comes
	// in with a later status and an advance payment.
	result, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{
		Amount:     "1000",
		Status:     string(domain.SampleStatusPickedUp),
		PaidAmount: "500",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SampleStatusPickedUp, result.Sample.Status)
	assert.Equal(t, "500", result.Sample.PaidAmount)

	var stored domain.Sample
	require.NoError(t, db.Where("sample_id = ?", result.Sample.SampleID).First(&stored).Error)
	assert.Equal(t, domain.SampleStatusPickedUp, stored.Status)
	assert.Equal(t, "500", stored.PaidAmount)

	// Settlement tracking still starts from zero paid.
	assert.Equal(t, "0", result.FinanceRecord.PaidAmount)
	assert.Equal(t, domain.PaymentStatusPending, result.FinanceRecord.PaymentStatus)
}

func TestConvert_RejectsUnknownSampleStatus(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV011", domain.LeadStatusWon)

	_, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{
		Amount: "1000",
		Status: "misplaced",
	})
	require.ErrorIs(t, err, service.ErrInvalidStatus)

	var fresh domain.Lead
	require.NoError(t, db.First(&fresh, "id = ?", lead.ID).Error)
	assert.Equal(t, domain.LeadStatusWon, fresh.Status, "rejected conversion leaves the lead untouched")
}

func TestConvert_SecondConversionRejected(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV012", domain.LeadStatusWon)

	_, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "1000"})
	require.NoError(t, err)

	// The status flip only matches rows still in won, so a repeat conversion
	// cannot fan out a second time.
	_, err = svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "1000"})
	require.ErrorIs(t, err, service.ErrLeadNotConvertible)

	var samples int64
	require.NoError(t, db.Model(&domain.Sample{}).Where("lead_id = ?", lead.ID).Count(&samples).Error)
	assert.EqualValues(t, 1, samples)
}

func TestConvert_ExplicitCounsellingFlag(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV003", domain.LeadStatusWon)

	req := &domain.ConvertLeadRequest{Amount: "30000"}
	req.SetCreateGC(true)

	result, err := svc.Convert(context.Background(), lead.ID, req)
	require.NoError(t, err)
	require.NotNil(t, result.GeneticCounselling)
	assert.Equal(t, domain.ApprovalStatusPending, result.GeneticCounselling.ApprovalStatus)
	assert.Empty(t, result.GeneticCounselling.GCName)
	assert.Equal(t, result.Sample.SampleID, result.GeneticCounselling.SampleID)
}

func TestConvert_CounsellingInferredFromService(t *testing.T) {
	svc, db := setupConversionService(t, nil)

	// A WES service plus the intake flag triggers a counselling placeholder.
	flagged := testutil.CreateTestLead(t, db, "26SACNV004", domain.LeadStatusWon)
	require.NoError(t, db.Model(flagged).Updates(map[string]interface{}{
		"service_name":                "Clinical WES",
		"genetic_counsellor_required": true,
	}).Error)

	result, err := svc.Convert(context.Background(), flagged.ID, &domain.ConvertLeadRequest{Amount: "30000"})
	require.NoError(t, err)
	assert.NotNil(t, result.GeneticCounselling)

	// The same service without the flag does not.
	unflagged := testutil.CreateTestLead(t, db, "26SACNV005", domain.LeadStatusWon)
	require.NoError(t, db.Model(unflagged).Update("service_name", "Clinical WES").Error)
	result, err = svc.Convert(context.Background(), unflagged.ID, &domain.ConvertLeadRequest{Amount: "30000"})
	require.NoError(t, err)
	assert.Nil(t, result.GeneticCounselling)
}

func TestConvert_RejectsNonWonLead(t *testing.T) {
	for _, status := range []domain.LeadStatus{
		domain.LeadStatusQuoted,
		domain.LeadStatusCold,
		domain.LeadStatusHot,
		domain.LeadStatusConverted,
		domain.LeadStatusClosed,
	} {
		t.Run(string(status), func(t *testing.T) {
			svc, db := setupConversionService(t, nil)
			lead := testutil.CreateTestLead(t, db, "26SACNV006", status)

			_, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "30000"})
			assert.ErrorIs(t, err, service.ErrLeadNotConvertible)
		})
	}
}

func TestConvert_UnknownLead(t *testing.T) {
	svc, _ := setupConversionService(t, nil)

	_, err := svc.Convert(context.Background(), uuid.New(), &domain.ConvertLeadRequest{Amount: "30000"})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.EqualError(t, err, "resource not found: Lead not found")
}

func TestConvert_RequiresAmount(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV007", domain.LeadStatusWon)

	_, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "   "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = svc.Convert(context.Background(), lead.ID, nil)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestConvert_RollsBackOnFailure(t *testing.T) {
	svc, db := setupConversionService(t, nil)
	lead := testutil.CreateTestLead(t, db, "26SACNV008", domain.LeadStatusWon)

	// Fault injection: dropping the lab processing table makes the third
	// insert fail after the lead flip and the first two inserts succeeded.
	require.NoError(t, db.Migrator().DropTable(&domain.LabProcessing{}))

	_, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "30000"})
	require.Error(t, err)

	var reloaded domain.Lead
	require.NoError(t, db.First(&reloaded, "id = ?", lead.ID).Error)
	assert.Equal(t, domain.LeadStatusWon, reloaded.Status, "lead must stay won after rollback")
	assert.Nil(t, reloaded.ConvertedAt)

	var sampleCount, financeCount int64
	require.NoError(t, db.Model(&domain.Sample{}).Count(&sampleCount).Error)
	require.NoError(t, db.Model(&domain.FinanceRecord{}).Count(&financeCount).Error)
	assert.Zero(t, sampleCount)
	assert.Zero(t, financeCount)
}

func TestConvert_EnqueuesReconciliationTasks(t *testing.T) {
	endpoints := []service.ReconcileEndpoint{
		{Name: "crm-sync", Kind: "http", Target: "https://crm.internal/hooks/conversion"},
		{Name: "accounting-sync", Kind: "amqp", Target: "lims.conversions"},
	}
	svc, db := setupConversionService(t, endpoints)
	lead := testutil.CreateTestLead(t, db, "26SACNV009", domain.LeadStatusWon)

	result, err := svc.Convert(context.Background(), lead.ID, &domain.ConvertLeadRequest{Amount: "30000"})
	require.NoError(t, err)

	var tasks []domain.ReconciliationTask
	require.NoError(t, db.Find(&tasks).Error)
	require.Len(t, tasks, 2)
	names := make([]string, 0, len(tasks))
	for _, task := range tasks {
		names = append(names, task.Name)
		assert.Equal(t, domain.ReconciliationTaskPending, task.Status)
		assert.Equal(t, result.Sample.SampleID, task.SampleID)
		assert.Contains(t, task.Payload, lead.UniqueID)
		assert.Contains(t, task.Payload, result.Sample.SampleID)
	}
	assert.ElementsMatch(t, []string{"crm-sync", "accounting-sync"}, names)
}
