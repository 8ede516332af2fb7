package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// validStatusTransitions defines the lead lifecycle. Converted is reachable
// only through the conversion orchestrator, never through UpdateStatus.
var validStatusTransitions = map[domain.LeadStatus][]domain.LeadStatus{
	domain.LeadStatusQuoted:    {domain.LeadStatusCold, domain.LeadStatusClosed},
	domain.LeadStatusCold:      {domain.LeadStatusHot, domain.LeadStatusClosed},
	domain.LeadStatusHot:       {domain.LeadStatusWon, domain.LeadStatusClosed},
	domain.LeadStatusWon:       {domain.LeadStatusClosed},
	domain.LeadStatusConverted: {}, // Terminal state
	domain.LeadStatusClosed:    {}, // Terminal state
}

type LeadService struct {
	leadRepo    *repository.LeadRepository
	historyRepo *repository.LeadStatusHistoryRepository
	recycleRepo *repository.RecycleRepository
	userRepo    *repository.UserRepository
	idService   *IDService
	logger      *zap.Logger
}

func NewLeadService(
	leadRepo *repository.LeadRepository,
	historyRepo *repository.LeadStatusHistoryRepository,
	recycleRepo *repository.RecycleRepository,
	userRepo *repository.UserRepository,
	idService *IDService,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leadRepo:    leadRepo,
		historyRepo: historyRepo,
		recycleRepo: recycleRepo,
		userRepo:    userRepo,
		idService:   idService,
		logger:      logger,
	}
}

// Create registers a new lead. When no identifier is supplied, one is
// generated with a role code resolved from, in order: the request's role
// hint, the creating user's role, the lead type, and finally admin.
func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Lead, error) {
	lead := &domain.Lead{
		UniqueID:      req.UniqueID,
		Status:        domain.LeadStatusQuoted,
		PatientName:   req.PatientName,
		PatientAge:    req.PatientAge,
		PatientGender: req.PatientGender,
		ClinicianName: req.ClinicianName,
		Organization:  req.Organization,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		City:          req.City,
		ServiceName:   req.ServiceName,
		TestCategory:  domain.TestCategoryClinical,
		GenePanel:     req.GenePanel,
		AmountQuoted:  req.AmountQuoted,
		FollowUp:      req.FollowUp,
		LeadType:      req.LeadType,
		Source:        req.Source,

		GeneticCounsellorRequired: req.GeneticCounsellorRequired,
	}
	if domain.TestCategory(req.TestCategory).IsValid() {
		lead.TestCategory = domain.TestCategory(req.TestCategory)
	}

	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
		id := userCtx.UserID
		lead.CreatedByID = &id
	}

	if lead.UniqueID == "" {
		uniqueID, err := s.idService.GenerateLeadID(ctx, s.resolveRole(ctx, req, lead))
		if err != nil {
			return nil, fmt.Errorf("failed to generate lead ID: %w", err)
		}
		lead.UniqueID = uniqueID
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.recordHistory(ctx, lead.ID, "", domain.LeadStatusQuoted, "lead created")

	return lead, nil
}

// resolveRole picks the role code source for identifier generation.
func (s *LeadService) resolveRole(ctx context.Context, req *domain.CreateLeadRequest, lead *domain.Lead) string {
	if req.RoleHint != "" {
		return req.RoleHint
	}
	if lead.CreatedByID != nil {
		user, err := s.userRepo.GetByID(ctx, *lead.CreatedByID)
		if err != nil {
			s.logger.Warn("failed to resolve creating user for lead ID role",
				zap.String("userId", lead.CreatedByID.String()),
				zap.Error(err))
		} else {
			return string(user.Role)
		}
	}
	if lead.LeadType != "" {
		return lead.LeadType
	}
	return string(domain.UserRoleAdmin)
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

func (s *LeadService) List(ctx context.Context, filter *domain.LeadListFilter) (*domain.ListResponse[domain.Lead], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	leads, total, err := s.leadRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return &domain.ListResponse[domain.Lead]{
		Items:      leads,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

// Update applies a partial update. Status and identifier are immutable here;
// status moves through UpdateStatus and conversion only.
func (s *LeadService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	lead, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyString(&lead.PatientName, req.PatientName)
	applyString(&lead.PatientAge, req.PatientAge)
	applyString(&lead.PatientGender, req.PatientGender)
	applyString(&lead.ClinicianName, req.ClinicianName)
	applyString(&lead.Organization, req.Organization)
	applyString(&lead.ContactEmail, req.ContactEmail)
	applyString(&lead.ContactPhone, req.ContactPhone)
	applyString(&lead.City, req.City)
	applyString(&lead.ServiceName, req.ServiceName)
	applyString(&lead.AmountQuoted, req.AmountQuoted)
	applyString(&lead.FollowUp, req.FollowUp)
	applyString(&lead.LeadType, req.LeadType)
	applyString(&lead.Source, req.Source)
	if req.GenePanel != nil {
		lead.GenePanel = req.GenePanel
	}
	if req.GeneticCounsellorRequired != nil {
		lead.GeneticCounsellorRequired = *req.GeneticCounsellorRequired
	}

	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead: %w", err)
	}
	return lead, nil
}

// UpdateStatus moves a lead to a new lifecycle status, enforcing the
// transition table.
func (s *LeadService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateLeadStatusRequest) (*domain.Lead, error) {
	newStatus := domain.LeadStatus(req.Status)
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	lead, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isValidTransition(lead.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, lead.Status, newStatus)
	}

	oldStatus := lead.Status
	lead.Status = newStatus
	if err := s.leadRepo.Update(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to update lead status: %w", err)
	}

	s.recordHistory(ctx, lead.ID, oldStatus, newStatus, req.Note)

	return lead, nil
}

func isValidTransition(from, to domain.LeadStatus) bool {
	validNext, ok := validStatusTransitions[from]
	if !ok {
		return false
	}
	for _, status := range validNext {
		if status == to {
			return true
		}
	}
	return false
}

// Delete snapshots the lead into the recycle bin and removes it. A snapshot
// failure is logged and the delete proceeds; the row is then unrecoverable
// but the operation stays available.
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID, reason string) error {
	lead, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	snapshot, err := json.Marshal(lead)
	if err != nil {
		s.logger.Warn("failed to snapshot lead for recycle bin, deleting anyway",
			zap.String("leadId", id.String()),
			zap.Error(err))
	} else {
		entry := &domain.RecycleEntry{
			EntityType: "leads",
			EntityID:   lead.UniqueID,
			Data:       string(snapshot),
			Reason:     reason,
		}
		if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
			uid := userCtx.UserID
			entry.DeletedByID = &uid
		}
		if err := s.recycleRepo.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to write recycle entry, deleting anyway",
				zap.String("leadId", id.String()),
				zap.Error(err))
		}
	}

	if err := s.leadRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// History returns the status transitions recorded for a lead.
func (s *LeadService) History(ctx context.Context, id uuid.UUID) ([]domain.LeadStatusHistory, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.historyRepo.ListByLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead history: %w", err)
	}
	return entries, nil
}

// Pipeline returns lead counts per lifecycle status.
func (s *LeadService) Pipeline(ctx context.Context) (*domain.PipelineCounts, error) {
	counts, err := s.leadRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	return &domain.PipelineCounts{
		Quoted:    counts[domain.LeadStatusQuoted],
		Cold:      counts[domain.LeadStatusCold],
		Hot:       counts[domain.LeadStatusHot],
		Won:       counts[domain.LeadStatusWon],
		Converted: counts[domain.LeadStatusConverted],
		Closed:    counts[domain.LeadStatusClosed],
	}, nil
}

// recordHistory writes a status history row. History is advisory; a failure
// is logged and never fails the parent operation.
func (s *LeadService) recordHistory(ctx context.Context, leadID uuid.UUID, from, to domain.LeadStatus, note string) {
	entry := &domain.LeadStatusHistory{
		LeadID:     leadID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if userCtx, ok := auth.FromContext(ctx); ok && userCtx.UserID != uuid.Nil {
		uid := userCtx.UserID
		entry.ChangedByID = &uid
	}
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record lead status history",
			zap.String("leadId", leadID.String()),
			zap.String("toStatus", string(to)),
			zap.Error(err))
	}
}
