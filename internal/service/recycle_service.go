package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// RecycleService lists, restores and purges the JSON snapshots written when
// rows are deleted.
type RecycleService struct {
	recycleRepo *repository.RecycleRepository
	leadRepo    *repository.LeadRepository
	sampleRepo  *repository.SampleRepository
	logger      *zap.Logger
}

func NewRecycleService(
	recycleRepo *repository.RecycleRepository,
	leadRepo *repository.LeadRepository,
	sampleRepo *repository.SampleRepository,
	logger *zap.Logger,
) *RecycleService {
	return &RecycleService{
		recycleRepo: recycleRepo,
		leadRepo:    leadRepo,
		sampleRepo:  sampleRepo,
		logger:      logger,
	}
}

func (s *RecycleService) List(ctx context.Context, entityType string, page, pageSize int) (*domain.ListResponse[domain.RecycleEntry], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	entries, total, err := s.recycleRepo.List(ctx, entityType, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list recycle entries: %w", err)
	}

	return &domain.ListResponse[domain.RecycleEntry]{
		Items:      entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// Restore re-inserts a snapshot and removes the recycle entry. Only entity
// types with a restore path are supported.
func (s *RecycleService) Restore(ctx context.Context, id uuid.UUID) error {
	entry, err := s.recycleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get recycle entry: %w", err)
	}

	switch entry.EntityType {
	case "leads":
		var lead domain.Lead
		if err := json.Unmarshal([]byte(entry.Data), &lead); err != nil {
			return fmt.Errorf("%w: snapshot is not a lead", ErrInvalidInput)
		}
		if err := s.leadRepo.Create(ctx, &lead); err != nil {
			return fmt.Errorf("failed to restore lead: %w", err)
		}
	case "samples":
		var sample domain.Sample
		if err := json.Unmarshal([]byte(entry.Data), &sample); err != nil {
			return fmt.Errorf("%w: snapshot is not a sample", ErrInvalidInput)
		}
		if err := s.sampleRepo.Create(ctx, &sample); err != nil {
			return fmt.Errorf("failed to restore sample: %w", err)
		}
	default:
		return fmt.Errorf("%w: no restore path for entity type %q", ErrInvalidInput, entry.EntityType)
	}

	if err := s.recycleRepo.Delete(ctx, id); err != nil {
		// The row is restored; a stale recycle entry is an annoyance, not a
		// failure.
		s.logger.Warn("restored entity but failed to remove recycle entry",
			zap.String("entryId", id.String()),
			zap.Error(err))
	}
	return nil
}

// Purge permanently removes a recycle entry.
func (s *RecycleService) Purge(ctx context.Context, id uuid.UUID) error {
	if _, err := s.recycleRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get recycle entry: %w", err)
	}
	return s.recycleRepo.Delete(ctx, id)
}
