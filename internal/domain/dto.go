package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Request and response DTOs for the REST API

// CreateLeadRequest is the payload for registering a new lead
type CreateLeadRequest struct {
	UniqueID      string   `json:"uniqueId,omitempty"`
	PatientName   string   `json:"patientName" validate:"max=200"`
	PatientAge    string   `json:"patientAge,omitempty" validate:"max=10"`
	PatientGender string   `json:"patientGender,omitempty" validate:"max=20"`
	ClinicianName string   `json:"clinicianName,omitempty" validate:"max=200"`
	Organization  string   `json:"organization,omitempty" validate:"max=200"`
	ContactEmail  string   `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone  string   `json:"contactPhone,omitempty" validate:"max=30"`
	City          string   `json:"city,omitempty" validate:"max=100"`
	ServiceName   string   `json:"serviceName,omitempty" validate:"max=200"`
	TestCategory  string   `json:"testCategory,omitempty" validate:"omitempty,oneof=clinical discovery"`
	GenePanel     []string `json:"genePanel,omitempty"`
	AmountQuoted  string   `json:"amountQuoted,omitempty" validate:"omitempty,numeric"`
	FollowUp      string   `json:"followUp,omitempty"`
	LeadType      string   `json:"leadType,omitempty" validate:"max=50"`
	Source        string   `json:"source,omitempty" validate:"max=100"`

	GeneticCounsellorRequired bool `json:"geneticCounsellorRequired"`

	// RoleHint overrides the role code used for identifier generation.
	RoleHint string `json:"roleHint,omitempty" validate:"max=30"`
}

// UpdateLeadRequest carries partial updates for a lead; nil fields are left
// untouched
type UpdateLeadRequest struct {
	PatientName   *string  `json:"patientName,omitempty"`
	PatientAge    *string  `json:"patientAge,omitempty"`
	PatientGender *string  `json:"patientGender,omitempty"`
	ClinicianName *string  `json:"clinicianName,omitempty"`
	Organization  *string  `json:"organization,omitempty"`
	ContactEmail  *string  `json:"contactEmail,omitempty" validate:"omitempty,email"`
	ContactPhone  *string  `json:"contactPhone,omitempty"`
	City          *string  `json:"city,omitempty"`
	ServiceName   *string  `json:"serviceName,omitempty"`
	GenePanel     []string `json:"genePanel,omitempty"`
	AmountQuoted  *string  `json:"amountQuoted,omitempty" validate:"omitempty,numeric"`
	FollowUp      *string  `json:"followUp,omitempty"`
	LeadType      *string  `json:"leadType,omitempty"`
	Source        *string  `json:"source,omitempty"`

	GeneticCounsellorRequired *bool `json:"geneticCounsellorRequired,omitempty"`
}

// UpdateLeadStatusRequest moves a lead to a new lifecycle status
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// ConvertLeadRequest is the payload for converting a won lead. The genetic
// counselling flag has accumulated three spellings across API clients; all
// are accepted.
type ConvertLeadRequest struct {
	Amount      string     `json:"amount" validate:"required,numeric"`
	TotalAmount string     `json:"totalAmount,omitempty" validate:"omitempty,numeric"`
	PaidAmount  string     `json:"paidAmount,omitempty" validate:"omitempty,numeric"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=pickup_scheduled picked_up received in_lab sequencing bioinformatics report_ready delivered"`
	SampleType  string     `json:"sampleType,omitempty" validate:"max=50"`
	TrackingID  string     `json:"trackingId,omitempty" validate:"max=100"`
	CourierName string     `json:"courierName,omitempty" validate:"max=100"`
	PickupDate  *time.Time `json:"pickupDate,omitempty"`

	createGC bool
}

// convertLeadAliases mirrors ConvertLeadRequest with every accepted spelling
// of the counselling flag.
type convertLeadAliases struct {
	Amount      string     `json:"amount"`
	TotalAmount string     `json:"totalAmount"`
	PaidAmount  string     `json:"paidAmount"`
	Status      string     `json:"status"`
	SampleType  string     `json:"sampleType"`
	TrackingID  string     `json:"trackingId"`
	CourierName string     `json:"courierName"`
	PickupDate  *time.Time `json:"pickupDate"`

	CreateGeneticCounselling *bool `json:"createGeneticCounselling"`
	CreateGc                 *bool `json:"createGc"`
	CreateGeneticSnake       *bool `json:"create_genetic_counselling"`
}

// UnmarshalJSON folds the counselling flag aliases into a single value.
func (r *ConvertLeadRequest) UnmarshalJSON(data []byte) error {
	var a convertLeadAliases
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Amount = a.Amount
	r.TotalAmount = a.TotalAmount
	r.PaidAmount = a.PaidAmount
	r.Status = a.Status
	r.SampleType = a.SampleType
	r.TrackingID = a.TrackingID
	r.CourierName = a.CourierName
	r.PickupDate = a.PickupDate
	for _, f := range []*bool{a.CreateGeneticCounselling, a.CreateGc, a.CreateGeneticSnake} {
		if f != nil && *f {
			r.createGC = true
		}
	}
	return nil
}

// CreateGC reports whether the caller explicitly requested a counselling record.
func (r *ConvertLeadRequest) CreateGC() bool { return r.createGC }

// SetCreateGC sets the explicit counselling flag. Used by tests and internal
// callers that build the request in code rather than from JSON.
func (r *ConvertLeadRequest) SetCreateGC(v bool) { r.createGC = v }

// ConversionResult bundles everything created by a successful conversion
type ConversionResult struct {
	Lead               *Lead               `json:"lead"`
	Sample             *Sample             `json:"sample"`
	FinanceRecord      *FinanceRecord      `json:"financeRecord"`
	LabProcessing      *LabProcessing      `json:"labProcessing"`
	GeneticCounselling *GeneticCounselling `json:"geneticCounselling,omitempty"`
}

// UpdateSampleStatusRequest moves a sample along the processing pipeline
type UpdateSampleStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty"`
}

// RecordPaymentRequest registers a payment against a finance record
type RecordPaymentRequest struct {
	Amount        string `json:"amount" validate:"required,numeric"`
	InvoiceNumber string `json:"invoiceNumber,omitempty" validate:"max=50"`
}

// UpdateLabProcessingRequest carries wet-lab progress updates
type UpdateLabProcessingRequest struct {
	QCStatus        *string `json:"qcStatus,omitempty" validate:"omitempty,oneof=pending passed failed"`
	QCNotes         *string `json:"qcNotes,omitempty"`
	LibraryPrepared *bool   `json:"libraryPrepared,omitempty"`
	IsOutsourced    *bool   `json:"isOutsourced,omitempty"`
	OutsourcedTo    *string `json:"outsourcedTo,omitempty"`
	Platform        *string `json:"platform,omitempty"`
	SequencingRunID *string `json:"sequencingRunId,omitempty"`
}

// AssignCounsellorRequest assigns a named counsellor to a pending session
type AssignCounsellorRequest struct {
	GCName        string     `json:"gcName" validate:"required,max=200"`
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
}

// RequestOTPRequest starts an email OTP login
type RequestOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest completes an email OTP login
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// AuthTokenResponse is returned after a successful OTP verification
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

// LeadListFilter narrows lead listings
type LeadListFilter struct {
	Status       string
	TestCategory string
	Organization string
	Search       string
	CreatedByID  *uuid.UUID
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// ListResponse is the standard paginated envelope
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

// PipelineCounts aggregates leads per lifecycle status
type PipelineCounts struct {
	Quoted    int64 `json:"quoted"`
	Cold      int64 `json:"cold"`
	Hot       int64 `json:"hot"`
	Won       int64 `json:"won"`
	Converted int64 `json:"converted"`
	Closed    int64 `json:"closed"`
}

// DashboardMetrics is the aggregate view served to the dashboard
type DashboardMetrics struct {
	Pipeline          PipelineCounts `json:"pipeline"`
	TotalLeads        int64          `json:"totalLeads"`
	ConvertedThisWeek int64          `json:"convertedThisWeek"`
	SamplesInLab      int64          `json:"samplesInLab"`
	PendingPayments   int64          `json:"pendingPayments"`
	PendingCounselling int64         `json:"pendingCounselling"`

	// Populated from the legacy billing warehouse when it is configured.
	LegacyInvoiceTotal string `json:"legacyInvoiceTotal,omitempty"`
}
