package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// CounsellingService manages the genetic counselling queue created by
// conversions.
type CounsellingService struct {
	gcRepo *repository.GeneticCounsellingRepository
	logger *zap.Logger
}

func NewCounsellingService(gcRepo *repository.GeneticCounsellingRepository, logger *zap.Logger) *CounsellingService {
	return &CounsellingService{gcRepo: gcRepo, logger: logger}
}

func (s *CounsellingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneticCounselling, error) {
	session, err := s.gcRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get counselling session: %w", err)
	}
	return session, nil
}

// ListPending returns sessions awaiting approval, oldest first.
func (s *CounsellingService) ListPending(ctx context.Context) ([]domain.GeneticCounselling, error) {
	sessions, err := s.gcRepo.ListByApprovalStatus(ctx, domain.ApprovalStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sessions: %w", err)
	}
	return sessions, nil
}

// Assign names a counsellor for a pending session.
func (s *CounsellingService) Assign(ctx context.Context, id uuid.UUID, req *domain.AssignCounsellorRequest) (*domain.GeneticCounselling, error) {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ApprovalStatus != domain.ApprovalStatusPending {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidStatus, session.ApprovalStatus)
	}

	session.GCName = req.GCName
	session.ScheduledDate = req.ScheduledDate
	if err := s.gcRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to assign counsellor: %w", err)
	}
	return session, nil
}

// Approve moves a session with an assigned counsellor to approved.
func (s *CounsellingService) Approve(ctx context.Context, id uuid.UUID) (*domain.GeneticCounselling, error) {
	session, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.ApprovalStatus != domain.ApprovalStatusPending {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidStatus, session.ApprovalStatus)
	}
	if session.GCName == "" {
		return nil, fmt.Errorf("%w: no counsellor assigned", ErrInvalidInput)
	}

	session.ApprovalStatus = domain.ApprovalStatusApproved
	if err := s.gcRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to approve session: %w", err)
	}
	return session, nil
}
