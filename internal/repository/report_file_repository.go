package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type ReportFileRepository struct {
	db *gorm.DB
}

func NewReportFileRepository(db *gorm.DB) *ReportFileRepository {
	return &ReportFileRepository{db: db}
}

func (r *ReportFileRepository) Create(ctx context.Context, file *domain.ReportFile) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(file).Error
}

func (r *ReportFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReportFile, error) {
	var file domain.ReportFile
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *ReportFileRepository) ListBySampleID(ctx context.Context, sampleID string) ([]domain.ReportFile, error) {
	var files []domain.ReportFile
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

func (r *ReportFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.ReportFile{}, "id = ?", id).Error
}
