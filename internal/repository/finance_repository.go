package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type FinanceRepository struct {
	db *gorm.DB
}

func NewFinanceRepository(db *gorm.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

func (r *FinanceRepository) Create(ctx context.Context, record *domain.FinanceRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *FinanceRepository) GetBySampleID(ctx context.Context, sampleID string) (*domain.FinanceRecord, error) {
	var record domain.FinanceRecord
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *FinanceRepository) Update(ctx context.Context, record *domain.FinanceRecord) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error
}

// ListUnsettled returns finance records that still have an outstanding balance.
func (r *FinanceRepository) ListUnsettled(ctx context.Context, page, pageSize int) ([]domain.FinanceRecord, int64, error) {
	var records []domain.FinanceRecord
	var total int64

	query := r.db.WithContext(ctx).
		Model(&domain.FinanceRecord{}).
		Where("payment_status IN ?", []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPartial})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at ASC").Offset(offset).Limit(pageSize).Find(&records).Error

	return records, total, err
}

// CountUnsettled counts finance records awaiting full payment.
func (r *FinanceRepository) CountUnsettled(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.FinanceRecord{}).
		Where("payment_status IN ?", []domain.PaymentStatus{domain.PaymentStatusPending, domain.PaymentStatusPartial}).
		Count(&count).Error
	return count, err
}
