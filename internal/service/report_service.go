package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/storage"
)

// ReportService stores and serves report artifacts for samples. Bytes live
// in blob storage; metadata rows carry the sample's human-readable
// identifier.
type ReportService struct {
	reportRepo *repository.ReportFileRepository
	sampleRepo *repository.SampleRepository
	store      storage.Storage
	logger     *zap.Logger
}

func NewReportService(
	reportRepo *repository.ReportFileRepository,
	sampleRepo *repository.SampleRepository,
	store storage.Storage,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		sampleRepo: sampleRepo,
		store:      store,
		logger:     logger,
	}
}

// Upload stores a report file against a sample.
func (s *ReportService) Upload(ctx context.Context, sampleID, filename, contentType string, data io.Reader) (*domain.ReportFile, error) {
	if _, err := s.sampleRepo.GetBySampleID(ctx, sampleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sample: %w", err)
	}

	storagePath, size, err := s.store.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store report file: %w", err)
	}

	file := &domain.ReportFile{
		SampleID:    sampleID,
		FileName:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
	}
	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
		uid := userCtx.UserID
		file.UploadedByID = &uid
	}

	if err := s.reportRepo.Create(ctx, file); err != nil {
		// Orphaned blob cleanup is best effort.
		if derr := s.store.Delete(ctx, storagePath); derr != nil {
			s.logger.Warn("failed to clean up orphaned report blob",
				zap.String("storagePath", storagePath),
				zap.Error(derr))
		}
		return nil, fmt.Errorf("failed to record report file: %w", err)
	}

	return file, nil
}

// Download opens a stored report file for reading.
func (s *ReportService) Download(ctx context.Context, id uuid.UUID) (*domain.ReportFile, io.ReadCloser, error) {
	file, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get report file: %w", err)
	}

	reader, err := s.store.Download(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open report file: %w", err)
	}
	return file, reader, nil
}

// ListBySample returns report metadata for a sample.
func (s *ReportService) ListBySample(ctx context.Context, sampleID string) ([]domain.ReportFile, error) {
	files, err := s.reportRepo.ListBySampleID(ctx, sampleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list report files: %w", err)
	}
	return files, nil
}
