package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type GeneticCounsellingRepository struct {
	db *gorm.DB
}

func NewGeneticCounsellingRepository(db *gorm.DB) *GeneticCounsellingRepository {
	return &GeneticCounsellingRepository{db: db}
}

func (r *GeneticCounsellingRepository) Create(ctx context.Context, session *domain.GeneticCounselling) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *GeneticCounsellingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneticCounselling, error) {
	var session domain.GeneticCounselling
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GeneticCounsellingRepository) GetBySampleID(ctx context.Context, sampleID string) (*domain.GeneticCounselling, error) {
	var session domain.GeneticCounselling
	err := r.db.WithContext(ctx).Where("sample_id = ?", sampleID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GeneticCounsellingRepository) Update(ctx context.Context, session *domain.GeneticCounselling) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error
}

// ListByApprovalStatus returns sessions in the given approval state.
func (r *GeneticCounsellingRepository) ListByApprovalStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.GeneticCounselling, error) {
	var sessions []domain.GeneticCounselling
	err := r.db.WithContext(ctx).
		Where("approval_status = ?", status).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// CountPending counts sessions awaiting approval.
func (r *GeneticCounsellingRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.GeneticCounselling{}).
		Where("approval_status = ?", domain.ApprovalStatusPending).
		Count(&count).Error
	return count, err
}
