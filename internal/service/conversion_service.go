package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// Conversion failure messages surfaced to API clients.
var (
	ErrConvertLeadNotFound = fmt.Errorf("%w: Lead not found", ErrNotFound)
)

// ConversionService turns a won lead into its downstream records in one
// atomic step: the lead flips to converted and a sample, a finance record, a
// lab processing record and, when needed, a genetic counselling placeholder
// are created together or not at all.
type ConversionService struct {
	db               *gorm.DB
	leadRepo         *repository.LeadRepository
	historyRepo      *repository.LeadStatusHistoryRepository
	idService        *IDService
	reconcileService *ReconcileService
	notifications    *NotificationService
	logger           *zap.Logger
}

func NewConversionService(
	db *gorm.DB,
	leadRepo *repository.LeadRepository,
	historyRepo *repository.LeadStatusHistoryRepository,
	idService *IDService,
	reconcileService *ReconcileService,
	notifications *NotificationService,
	logger *zap.Logger,
) *ConversionService {
	return &ConversionService{
		db:               db,
		leadRepo:         leadRepo,
		historyRepo:      historyRepo,
		idService:        idService,
		reconcileService: reconcileService,
		notifications:    notifications,
		logger:           logger,
	}
}

// Convert performs the won -> converted transition for a lead.
func (s *ConversionService) Convert(ctx context.Context, leadID uuid.UUID, req *domain.ConvertLeadRequest) (*domain.ConversionResult, error) {
	if req == nil || strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidInput)
	}

	// Early existence check so callers get a clean 404 without paying for a
	// transaction. The status gate is re-checked inside the transaction.
	if _, err := s.leadRepo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConvertLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	now := time.Now()
	result := &domain.ConversionResult{}
	var oldStatus domain.LeadStatus

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-fetch inside the transaction: two concurrent conversions of the
		// same lead must not both pass the status gate.
		var lead domain.Lead
		if err := tx.Where("id = ?", leadID).First(&lead).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrConvertLeadNotFound
			}
			return fmt.Errorf("failed to get lead: %w", err)
		}
		if lead.Status != domain.LeadStatusWon {
			return ErrLeadNotConvertible
		}
		oldStatus = lead.Status

		// The flip re-checks won in its WHERE clause. A concurrent
		// conversion that committed after our snapshot makes this update
		// match zero rows instead of double-converting.
		flip := tx.Model(&domain.Lead{}).
			Where("id = ? AND status = ?", lead.ID, domain.LeadStatusWon).
			Updates(map[string]interface{}{
				"status":       domain.LeadStatusConverted,
				"converted_at": now,
			})
		if flip.Error != nil {
			return fmt.Errorf("failed to mark lead converted: %w", flip.Error)
		}
		if flip.RowsAffected == 0 {
			return ErrLeadNotConvertible
		}

		// The sample identifier takes the unchecked fast path; the unique
		// index on samples.sample_id rejects a same-second duplicate and
		// rolls the whole conversion back.
		sampleID := s.idService.UnsafeSampleID(lead.TestCategory)

		totalAmount := req.TotalAmount
		if totalAmount == "" {
			totalAmount = req.Amount
		}
		sampleStatus := domain.SampleStatusPickupScheduled
		if req.Status != "" {
			sampleStatus = domain.SampleStatus(req.Status)
			if !sampleStatus.IsValid() {
				return fmt.Errorf("%w: %s", ErrInvalidStatus, req.Status)
			}
		}
		samplePaid := req.PaidAmount
		if samplePaid == "" {
			samplePaid = "0"
		}

		sample := &domain.Sample{
			SampleID:     sampleID,
			LeadID:       lead.ID,
			Status:       sampleStatus,
			PatientName:  lead.PatientName,
			Organization: lead.Organization,
			ServiceName:  lead.ServiceName,
			TestCategory: lead.TestCategory,
			SampleType:   req.SampleType,
			Amount:       req.Amount,
			PaidAmount:   samplePaid,
			TrackingID:   req.TrackingID,
			CourierName:  req.CourierName,
			PickupDate:   req.PickupDate,
		}
		if err := tx.Create(sample).Error; err != nil {
			return fmt.Errorf("failed to create sample: %w", err)
		}

		finance := &domain.FinanceRecord{
			SampleID:      sampleID,
			LeadID:        lead.ID,
			Amount:        req.Amount,
			TotalAmount:   totalAmount,
			PaidAmount:    "0",
			PaymentStatus: domain.PaymentStatusPending,
			Organization:  lead.Organization,
			ClinicianName: lead.ClinicianName,
			PatientName:   lead.PatientName,
			ServiceName:   lead.ServiceName,
		}
		if err := tx.Create(finance).Error; err != nil {
			return fmt.Errorf("failed to create finance record: %w", err)
		}

		lab := &domain.LabProcessing{
			SampleID:        sampleID,
			LeadID:          lead.ID,
			QCStatus:        domain.QCStatusPending,
			LibraryPrepared: false,
			IsOutsourced:    false,
			ServiceName:     lead.ServiceName,
			SampleType:      req.SampleType,
		}
		if err := tx.Create(lab).Error; err != nil {
			return fmt.Errorf("failed to create lab processing record: %w", err)
		}

		var counselling *domain.GeneticCounselling
		if needsCounselling(&lead, req) {
			counselling = &domain.GeneticCounselling{
				SampleID:       sampleID,
				LeadID:         lead.ID,
				PatientName:    lead.PatientName,
				ServiceName:    lead.ServiceName,
				GCName:         "",
				ApprovalStatus: domain.ApprovalStatusPending,
			}
			if err := tx.Create(counselling).Error; err != nil {
				return fmt.Errorf("failed to create genetic counselling record: %w", err)
			}
		}

		lead.Status = domain.LeadStatusConverted
		lead.ConvertedAt = &now
		result.Lead = &lead
		result.Sample = sample
		result.FinanceRecord = finance
		result.LabProcessing = lab
		result.GeneticCounselling = counselling
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit side effects: advisory, individually failable, never part
	// of the conversion outcome.
	s.recordConversionHistory(ctx, result.Lead, oldStatus, result.Sample.SampleID)
	s.notifyConversion(ctx, result)
	s.enqueueReconciliation(ctx, result)

	return result, nil
}

// needsCounselling decides whether a counselling placeholder is created:
// either the caller asked for one, or the service looks counselling-relevant
// and the lead was flagged for a counsellor at intake.
func needsCounselling(lead *domain.Lead, req *domain.ConvertLeadRequest) bool {
	if req.CreateGC() {
		return true
	}
	relevant := strings.Contains(strings.ToLower(lead.ServiceName), "wes") ||
		strings.Contains(strings.ToLower(lead.FollowUp), "gc")
	return relevant && lead.GeneticCounsellorRequired
}

func (s *ConversionService) recordConversionHistory(ctx context.Context, lead *domain.Lead, oldStatus domain.LeadStatus, sampleID string) {
	entry := &domain.LeadStatusHistory{
		LeadID:     lead.ID,
		FromStatus: oldStatus,
		ToStatus:   domain.LeadStatusConverted,
		Note:       "converted to sample " + sampleID,
	}
	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
		uid := userCtx.UserID
		entry.ChangedByID = &uid
	}
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record conversion history",
			zap.String("leadId", lead.ID.String()),
			zap.Error(err))
	}
}

func (s *ConversionService) notifyConversion(ctx context.Context, result *domain.ConversionResult) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.NotifyConversion(ctx, result); err != nil {
		s.logger.Warn("failed to send conversion notification",
			zap.String("sampleId", result.Sample.SampleID),
			zap.Error(err))
	}
}

func (s *ConversionService) enqueueReconciliation(ctx context.Context, result *domain.ConversionResult) {
	if s.reconcileService == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"sampleId":    result.Sample.SampleID,
		"leadId":      result.Lead.ID,
		"uniqueId":    result.Lead.UniqueID,
		"patientName": result.Lead.PatientName,
		"serviceName": result.Lead.ServiceName,
		"amount":      result.FinanceRecord.Amount,
		"convertedAt": result.Lead.ConvertedAt,
	})
	if err != nil {
		s.logger.Warn("failed to build reconciliation payload", zap.Error(err))
		return
	}
	if err := s.reconcileService.EnqueueConversionTasks(ctx, result.Sample.SampleID, payload); err != nil {
		s.logger.Warn("failed to enqueue reconciliation tasks",
			zap.String("sampleId", result.Sample.SampleID),
			zap.Error(err))
	}
}
