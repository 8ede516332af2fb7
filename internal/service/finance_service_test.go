package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

func setupFinanceService(t *testing.T) (*service.FinanceService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewFinanceService(
		repository.NewFinanceRepository(db),
		repository.NewSampleRepository(db),
		zap.NewNop(),
	)
	return svc, db
}

func createFinanceFixture(t *testing.T, db *gorm.DB, sampleID, total string) *domain.FinanceRecord {
	t.Helper()
	lead := testutil.CreateTestLead(t, db, "26SA"+sampleID[8:], domain.LeadStatusConverted)
	testutil.CreateTestSample(t, db, sampleID, lead.ID)

	record := &domain.FinanceRecord{
		SampleID:      sampleID,
		LeadID:        lead.ID,
		Amount:        total,
		TotalAmount:   total,
		PaidAmount:    "0",
		PaymentStatus: domain.PaymentStatusPending,
		PatientName:   "Asha Rao",
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestRecordPayment_PartialThenSettled(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150405", "30000")

	record, err := svc.RecordPayment(context.Background(), "PG260314150405", &domain.RecordPaymentRequest{
		Amount:        "10000",
		InvoiceNumber: "INV-2026-041",
	})
	require.NoError(t, err)
	assert.Equal(t, "10000.00", record.PaidAmount)
	assert.Equal(t, domain.PaymentStatusPartial, record.PaymentStatus)
	assert.Equal(t, "INV-2026-041", record.InvoiceNumber)

	record, err = svc.RecordPayment(context.Background(), "PG260314150405", &domain.RecordPaymentRequest{Amount: "20000"})
	require.NoError(t, err)
	assert.Equal(t, "30000.00", record.PaidAmount)
	assert.Equal(t, domain.PaymentStatusPaid, record.PaymentStatus)
	assert.Equal(t, "INV-2026-041", record.InvoiceNumber, "invoice number survives later payments")
}

func TestRecordPayment_ExactSettlementWithCents(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150415", "18750.80")

	// Two instalments whose cent values have no exact float64 form must
	// still land exactly on the total and settle the record.
	_, err := svc.RecordPayment(context.Background(), "PG260314150415", &domain.RecordPaymentRequest{Amount: "18750.10"})
	require.NoError(t, err)

	record, err := svc.RecordPayment(context.Background(), "PG260314150415", &domain.RecordPaymentRequest{Amount: "0.70"})
	require.NoError(t, err)
	assert.Equal(t, "18750.80", record.PaidAmount)
	assert.Equal(t, domain.PaymentStatusPaid, record.PaymentStatus)
}

func TestRecordPayment_OverpaymentIsSettled(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150406", "30000")

	record, err := svc.RecordPayment(context.Background(), "PG260314150406", &domain.RecordPaymentRequest{Amount: "35000"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, record.PaymentStatus)
}

func TestRecordPayment_MirrorsPaidAmountOntoSample(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150407", "30000")

	_, err := svc.RecordPayment(context.Background(), "PG260314150407", &domain.RecordPaymentRequest{Amount: "12500.50"})
	require.NoError(t, err)

	var sample domain.Sample
	require.NoError(t, db.First(&sample, "sample_id = ?", "PG260314150407").Error)
	assert.Equal(t, "12500.50", sample.PaidAmount)
}

func TestRecordPayment_RejectsBadAmounts(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150408", "30000")

	for _, amount := range []string{"abc", "-100", "0"} {
		t.Run(amount, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), "PG260314150408", &domain.RecordPaymentRequest{Amount: amount})
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
}

func TestRecordPayment_UnknownSample(t *testing.T) {
	svc, _ := setupFinanceService(t)

	_, err := svc.RecordPayment(context.Background(), "PG000000000000", &domain.RecordPaymentRequest{Amount: "100"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListUnsettled(t *testing.T) {
	svc, db := setupFinanceService(t)
	createFinanceFixture(t, db, "PG260314150409", "30000")
	settled := createFinanceFixture(t, db, "PG260314150410", "20000")
	require.NoError(t, db.Model(settled).Updates(map[string]interface{}{
		"paid_amount":    "20000",
		"payment_status": domain.PaymentStatusPaid,
	}).Error)

	page, err := svc.ListUnsettled(context.Background(), 1, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "PG260314150409", page.Items[0].SampleID)
	assert.Equal(t, int64(1), page.Total)
}
