package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type LeadStatusHistoryRepository struct {
	db *gorm.DB
}

func NewLeadStatusHistoryRepository(db *gorm.DB) *LeadStatusHistoryRepository {
	return &LeadStatusHistoryRepository{db: db}
}

func (r *LeadStatusHistoryRepository) Create(ctx context.Context, entry *domain.LeadStatusHistory) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

func (r *LeadStatusHistoryRepository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.LeadStatusHistory, error) {
	var entries []domain.LeadStatusHistory
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
