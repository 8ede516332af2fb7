package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// sampleStatusOrder positions each pipeline status. Samples normally move
// forward; moving backward is allowed for corrections but skipping ahead more
// than one step is not.
var sampleStatusOrder = map[domain.SampleStatus]int{
	domain.SampleStatusPickupScheduled: 0,
	domain.SampleStatusPickedUp:        1,
	domain.SampleStatusReceived:        2,
	domain.SampleStatusInLab:           3,
	domain.SampleStatusSequencing:      4,
	domain.SampleStatusBioinformatics:  5,
	domain.SampleStatusReportReady:     6,
	domain.SampleStatusDelivered:       7,
}

type SampleService struct {
	sampleRepo  *repository.SampleRepository
	labRepo     *repository.LabProcessingRepository
	recycleRepo *repository.RecycleRepository
	logger      *zap.Logger
}

func NewSampleService(
	sampleRepo *repository.SampleRepository,
	labRepo *repository.LabProcessingRepository,
	recycleRepo *repository.RecycleRepository,
	logger *zap.Logger,
) *SampleService {
	return &SampleService{
		sampleRepo:  sampleRepo,
		labRepo:     labRepo,
		recycleRepo: recycleRepo,
		logger:      logger,
	}
}

func (s *SampleService) GetBySampleID(ctx context.Context, sampleID string) (*domain.Sample, error) {
	sample, err := s.sampleRepo.GetBySampleID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}
	return sample, nil
}

func (s *SampleService) List(ctx context.Context, page, pageSize int, filters *repository.SampleFilters) (*domain.ListResponse[domain.Sample], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	samples, total, err := s.sampleRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}

	return &domain.ListResponse[domain.Sample]{
		Items:      samples,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// UpdateStatus moves a sample along the processing pipeline.
func (s *SampleService) UpdateStatus(ctx context.Context, sampleID string, req *domain.UpdateSampleStatusRequest) (*domain.Sample, error) {
	newStatus := domain.SampleStatus(req.Status)
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	sample, err := s.GetBySampleID(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	if sampleStatusOrder[newStatus] > sampleStatusOrder[sample.Status]+1 {
		return nil, fmt.Errorf("%w: %s -> %s skips pipeline steps", ErrInvalidTransition, sample.Status, newStatus)
	}

	fields := map[string]interface{}{"status": newStatus}
	switch newStatus {
	case domain.SampleStatusReceived:
		now := time.Now()
		fields["received_date"] = &now
	}

	if err := s.sampleRepo.UpdateFields(ctx, sampleID, fields); err != nil {
		return nil, fmt.Errorf("failed to update sample status: %w", err)
	}

	return s.GetBySampleID(ctx, sampleID)
}

// Delete snapshots the sample into the recycle bin and removes it.
func (s *SampleService) Delete(ctx context.Context, sampleID, reason string) error {
	sample, err := s.GetBySampleID(ctx, sampleID)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(sample)
	if err != nil {
		s.logger.Warn("failed to snapshot sample for recycle bin, deleting anyway",
			zap.String("sampleId", sampleID),
			zap.Error(err))
	} else {
		entry := &domain.RecycleEntry{
			EntityType: "samples",
			EntityID:   sample.SampleID,
			Data:       string(snapshot),
			Reason:     reason,
		}
		if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
			uid := userCtx.UserID
			entry.DeletedByID = &uid
		}
		if err := s.recycleRepo.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write recycle entry, deleting anyway",
				zap.String("sampleId", sampleID),
				zap.Error(err))
		}
	}

	if err := s.sampleRepo.Delete(ctx, sampleID); err != nil {
		return fmt.Errorf("failed to delete sample: %w", err)
	}
	return nil
}

// GetLab returns the lab processing record for a sample.
func (s *SampleService) GetLab(ctx context.Context, sampleID string) (*domain.LabProcessing, error) {
	record, err := s.labRepo.GetBySampleID(ctx, sampleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lab processing record: %w", err)
	}
	return record, nil
}

// UpdateLab applies wet-lab progress updates to a sample's processing record.
func (s *SampleService) UpdateLab(ctx context.Context, sampleID string, req *domain.UpdateLabProcessingRequest) (*domain.LabProcessing, error) {
	record, err := s.GetLab(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	if req.QCStatus != nil {
		status := domain.QCStatus(*req.QCStatus)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.QCStatus)
		}
		record.QCStatus = status
		if status != domain.QCStatusPending {
			now := time.Now()
			record.QCCompletedAt = &now
		}
	}
	if req.QCNotes != nil {
		record.QCNotes = *req.QCNotes
	}
	if req.LibraryPrepared != nil {
		record.LibraryPrepared = *req.LibraryPrepared
	}
	if req.IsOutsourced != nil {
		record.IsOutsourced = *req.IsOutsourced
	}
	if req.OutsourcedTo != nil {
		record.OutsourcedTo = *req.OutsourcedTo
	}
	if req.Platform != nil {
		record.Platform = *req.Platform
	}
	if req.SequencingRunID != nil {
		record.SequencingRunID = *req.SequencingRunID
	}

	if err := s.labRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update lab processing record: %w", err)
	}
	return record, nil
}
