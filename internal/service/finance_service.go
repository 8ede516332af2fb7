package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// FinanceService tracks billing for converted samples. Amounts travel as
// decimal strings and are accrued with exact decimal arithmetic; a malformed
// value fails loudly instead of rounding silently.
type FinanceService struct {
	financeRepo *repository.FinanceRepository
	sampleRepo  *repository.SampleRepository
	logger      *zap.Logger
}

func NewFinanceService(
	financeRepo *repository.FinanceRepository,
	sampleRepo *repository.SampleRepository,
	logger *zap.Logger,
) *FinanceService {
	return &FinanceService{
		financeRepo: financeRepo,
		sampleRepo:  sampleRepo,
		logger:      logger,
	}
}

func (s *FinanceService) GetBySampleID(ctx context.Context, sampleID string) (*domain.FinanceRecord, error) {
	record, err := s.financeRepo.GetBySampleID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get finance record: %w", err)
	}
	return record, nil
}

// RecordPayment registers a payment and recomputes the payment status. The
// paid amount is mirrored onto the sample so lab views show settlement state
// without a join.
func (s *FinanceService) RecordPayment(ctx context.Context, sampleID string, req *domain.RecordPaymentRequest) (*domain.FinanceRecord, error) {
	payment, err := parseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, req.Amount)
	}
	if !payment.IsPositive() {
		return nil, fmt.Errorf("%w: payment must be positive", ErrInvalidInput)
	}

	record, err := s.GetBySampleID(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	paid, err := parseAmount(record.PaidAmount)
	if err != nil {
		return nil, fmt.Errorf("finance record %s has malformed paid amount: %w", sampleID, err)
	}
	total, err := parseAmount(record.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("finance record %s has malformed total amount: %w", sampleID, err)
	}

	paid = paid.Add(payment)
	record.PaidAmount = formatAmount(paid)
	if req.InvoiceNumber != "" {
		record.InvoiceNumber = req.InvoiceNumber
	}
	switch {
	case paid.GreaterThanOrEqual(total):
		record.PaymentStatus = domain.PaymentStatusPaid
	case paid.IsPositive():
		record.PaymentStatus = domain.PaymentStatusPartial
	default:
		record.PaymentStatus = domain.PaymentStatusPending
	}

	if err := s.financeRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update finance record: %w", err)
	}

	if err := s.sampleRepo.UpdateFields(ctx, sampleID, map[string]interface{}{
		"paid_amount": record.PaidAmount,
	}); err != nil {
		s.logger.Warn("failed to mirror paid amount onto sample",
			zap.String("sampleId", sampleID),
			zap.Error(err))
	}

	return record, nil
}

// ListUnsettled returns finance records with an outstanding balance.
func (s *FinanceService) ListUnsettled(ctx context.Context, page, pageSize int) (*domain.ListResponse[domain.FinanceRecord], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	records, total, err := s.financeRepo.ListUnsettled(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsettled records: %w", err)
	}

	return &domain.ListResponse[domain.FinanceRecord]{
		Items:      records,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
