package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type RecycleRepository struct {
	db *gorm.DB
}

func NewRecycleRepository(db *gorm.DB) *RecycleRepository {
	return &RecycleRepository{db: db}
}

func (r *RecycleRepository) Create(ctx context.Context, entry *domain.RecycleEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *RecycleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecycleEntry, error) {
	var entry domain.RecycleEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *RecycleRepository) List(ctx context.Context, entityType string, page, pageSize int) ([]domain.RecycleEntry, int64, error) {
	var entries []domain.RecycleEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.RecycleEntry{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&entries).Error

	return entries, total, err
}

func (r *RecycleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.RecycleEntry{}, "id = ?", id).Error
}
