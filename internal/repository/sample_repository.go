package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

// SampleFilters narrows sample listings
type SampleFilters struct {
	Status       string
	TestCategory string
	Organization string
	Search       string
}

type SampleRepository struct {
	db *gorm.DB
}

func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Create(ctx context.Context, sample *domain.Sample) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sample).Error
}

// GetBySampleID looks a sample up by its human-readable identifier.
func (r *SampleRepository) GetBySampleID(ctx context.Context, sampleID string) (*domain.Sample, error) {
	var sample domain.Sample
	err := r.db.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		First(&sample).Error
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// SampleIDExists reports whether a generated sample identifier is already taken.
func (r *SampleRepository) SampleIDExists(ctx context.Context, sampleID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Sample{}).
		Where("sample_id = ?", sampleID).
		Count(&count).Error
	return count > 0, err
}

func (r *SampleRepository) Update(ctx context.Context, sample *domain.Sample) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(sample).Error
}

func (r *SampleRepository) UpdateFields(ctx context.Context, sampleID string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Sample{}).
		Where("sample_id = ?", sampleID).
		Updates(fields).Error
}

func (r *SampleRepository) Delete(ctx context.Context, sampleID string) error {
	return r.db.WithContext(ctx).Delete(&domain.Sample{}, "sample_id = ?", sampleID).Error
}

func (r *SampleRepository) List(ctx context.Context, page, pageSize int, filters *SampleFilters) ([]domain.Sample, int64, error) {
	var samples []domain.Sample
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Sample{})
	if filters != nil {
		if filters.Status != "" {
			query = query.Where("status = ?", filters.Status)
		}
		if filters.TestCategory != "" {
			query = query.Where("test_category = ?", filters.TestCategory)
		}
		if filters.Organization != "" {
			query = query.Where("organization = ?", filters.Organization)
		}
		if filters.Search != "" {
			pattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where(
				"LOWER(sample_id) LIKE ? OR LOWER(patient_name) LIKE ?",
				pattern, pattern,
			)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&samples).Error

	return samples, total, err
}

// CountByStatus returns the number of samples in the given pipeline status.
func (r *SampleRepository) CountByStatus(ctx context.Context, status domain.SampleStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Sample{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
