package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Progenics2025/LIMS-sub000/internal/datawarehouse"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// DashboardService aggregates pipeline and operations figures for the
// overview screen.
type DashboardService struct {
	leadRepo    *repository.LeadRepository
	sampleRepo  *repository.SampleRepository
	financeRepo *repository.FinanceRepository
	gcRepo      *repository.GeneticCounsellingRepository
	warehouse   *datawarehouse.Client
	logger      *zap.Logger
}

func NewDashboardService(
	leadRepo *repository.LeadRepository,
	sampleRepo *repository.SampleRepository,
	financeRepo *repository.FinanceRepository,
	gcRepo *repository.GeneticCounsellingRepository,
	warehouse *datawarehouse.Client,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		leadRepo:    leadRepo,
		sampleRepo:  sampleRepo,
		financeRepo: financeRepo,
		gcRepo:      gcRepo,
		warehouse:   warehouse,
		logger:      logger,
	}
}

func (s *DashboardService) Metrics(ctx context.Context) (*domain.DashboardMetrics, error) {
	counts, err := s.leadRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	metrics := &domain.DashboardMetrics{
		Pipeline: domain.PipelineCounts{
			Quoted:    counts[domain.LeadStatusQuoted],
			Cold:      counts[domain.LeadStatusCold],
			Hot:       counts[domain.LeadStatusHot],
			Won:       counts[domain.LeadStatusWon],
			Converted: counts[domain.LeadStatusConverted],
			Closed:    counts[domain.LeadStatusClosed],
		},
	}
	for _, c := range counts {
		metrics.TotalLeads += c
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	if metrics.ConvertedThisWeek, err = s.leadRepo.CountConvertedSince(ctx, weekAgo); err != nil {
		return nil, fmt.Errorf("failed to count recent conversions: %w", err)
	}

	inLab, err := s.sampleRepo.CountByStatus(ctx, domain.SampleStatusInLab)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples in lab: %w", err)
	}
	sequencing, err := s.sampleRepo.CountByStatus(ctx, domain.SampleStatusSequencing)
	if err != nil {
		return nil, fmt.Errorf("failed to count samples sequencing: %w", err)
	}
	metrics.SamplesInLab = inLab + sequencing

	if metrics.PendingPayments, err = s.financeRepo.CountUnsettled(ctx); err != nil {
		return nil, fmt.Errorf("failed to count unsettled finance records: %w", err)
	}
	if metrics.PendingCounselling, err = s.gcRepo.CountPending(ctx); err != nil {
		return nil, fmt.Errorf("failed to count pending counselling: %w", err)
	}

	// Legacy warehouse figures are best effort.
	if s.warehouse != nil {
		summary, err := s.warehouse.GetInvoiceSummary(ctx)
		if err != nil {
			s.logger.Warn("failed to load legacy invoice summary", zap.Error(err))
		} else {
			metrics.LegacyInvoiceTotal = summary.OutstandingAmount
		}
	}

	return metrics, nil
}
