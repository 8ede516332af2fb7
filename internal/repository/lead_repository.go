package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// DB exposes the underlying handle for services that open transactions.
func (r *LeadRepository) DB() *gorm.DB {
	return r.db
}

func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	// Omit associations to avoid GORM trying to validate related records
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(lead).Error
}

func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").
		Where("id = ?", id).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepository) GetByUniqueID(ctx context.Context, uniqueID string) (*domain.Lead, error) {
	var lead domain.Lead
	err := r.db.WithContext(ctx).
		Where("unique_id = ?", uniqueID).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// UniqueIDExists reports whether a generated lead identifier is already taken.
func (r *LeadRepository) UniqueIDExists(ctx context.Context, uniqueID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("unique_id = ?", uniqueID).
		Count(&count).Error
	return count > 0, err
}

func (r *LeadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(lead).Error
}

// UpdateFields applies a partial update without touching the rest of the row.
func (r *LeadRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *LeadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Lead{}, "id = ?", id).Error
}

func (r *LeadRepository) List(ctx context.Context, filter *domain.LeadListFilter) ([]domain.Lead, int64, error) {
	var leads []domain.Lead
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Lead{})
	query = r.applyFilters(query, filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.applySorting(query, filter)

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Offset(offset).Limit(filter.PageSize).Find(&leads).Error

	return leads, total, err
}

func (r *LeadRepository) applyFilters(query *gorm.DB, filter *domain.LeadListFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TestCategory != "" {
		query = query.Where("test_category = ?", filter.TestCategory)
	}
	if filter.Organization != "" {
		query = query.Where("organization = ?", filter.Organization)
	}
	if filter.CreatedByID != nil {
		query = query.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(patient_name) LIKE ? OR LOWER(organization) LIKE ? OR LOWER(unique_id) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	return query
}

func (r *LeadRepository) applySorting(query *gorm.DB, filter *domain.LeadListFilter) *gorm.DB {
	column := "created_at"
	switch filter.SortBy {
	case "updatedAt":
		column = "updated_at"
	case "patientName":
		column = "patient_name"
	case "organization":
		column = "organization"
	case "status":
		column = "status"
	case "amountQuoted":
		column = "amount_quoted"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	return query.Order(column + " " + order)
}

// CountByStatus returns the number of leads per lifecycle status.
func (r *LeadRepository) CountByStatus(ctx context.Context) (map[domain.LeadStatus]int64, error) {
	type row struct {
		Status domain.LeadStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&domain.Lead{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.LeadStatus]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// CountConvertedSince counts leads converted at or after the cutoff.
func (r *LeadRepository) CountConvertedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("status = ? AND converted_at >= ?", domain.LeadStatusConverted, cutoff).
		Count(&count).Error
	return count, err
}

// WithTransaction runs fn inside a database transaction.
func (r *LeadRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
