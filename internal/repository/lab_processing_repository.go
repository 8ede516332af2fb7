package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type LabProcessingRepository struct {
	db *gorm.DB
}

func NewLabProcessingRepository(db *gorm.DB) *LabProcessingRepository {
	return &LabProcessingRepository{db: db}
}

func (r *LabProcessingRepository) Create(ctx context.Context, record *domain.LabProcessing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(record).Error
}

func (r *LabProcessingRepository) GetBySampleID(ctx context.Context, sampleID string) (*domain.LabProcessing, error) {
	var record domain.LabProcessing
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *LabProcessingRepository) Update(ctx context.Context, record *domain.LabProcessing) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(record).Error
}

// ListPendingQC returns lab records awaiting a quality-control verdict.
func (r *LabProcessingRepository) ListPendingQC(ctx context.Context) ([]domain.LabProcessing, error) {
	var records []domain.LabProcessing
	err := r.db.WithContext(ctx).
		Where("qc_status = ?", domain.QCStatusPending).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}
