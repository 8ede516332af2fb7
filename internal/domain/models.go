package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// BeforeCreate assigns the primary key in Go so the same models work on
// Postgres and on the SQLite driver used in tests.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// LeadStatus represents the lifecycle status of a sales lead
type LeadStatus string

const (
	LeadStatusQuoted    LeadStatus = "quoted"
	LeadStatusCold      LeadStatus = "cold"
	LeadStatusHot       LeadStatus = "hot"
	LeadStatusWon       LeadStatus = "won"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusClosed    LeadStatus = "closed"
)

// IsValid checks if the lead status is valid
func (s LeadStatus) IsValid() bool {
	switch s {
	case LeadStatusQuoted, LeadStatusCold, LeadStatusHot,
		LeadStatusWon, LeadStatusConverted, LeadStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusConverted || s == LeadStatusClosed
}

// TestCategory distinguishes clinical diagnostics from discovery research
type TestCategory string

const (
	TestCategoryClinical  TestCategory = "clinical"
	TestCategoryDiscovery TestCategory = "discovery"
)

// IsValid checks if the test category is valid
func (c TestCategory) IsValid() bool {
	return c == TestCategoryClinical || c == TestCategoryDiscovery
}

// UserRole represents the functional role of a LIMS user
type UserRole string

const (
	UserRoleAdmin             UserRole = "admin"
	UserRoleSales             UserRole = "sales"
	UserRoleLabTechnician     UserRole = "lab_technician"
	UserRoleBioinformatician  UserRole = "bioinformatician"
	UserRoleGeneticCounsellor UserRole = "genetic_counsellor"
	UserRoleFinance           UserRole = "finance"
	UserRoleSupport           UserRole = "support"
)

// IsValid checks if the user role is valid
func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleSales, UserRoleLabTechnician,
		UserRoleBioinformatician, UserRoleGeneticCounsellor,
		UserRoleFinance, UserRoleSupport:
		return true
	}
	return false
}

// User represents a LIMS user account
type User struct {
	BaseModel
	Email    string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name     string   `gorm:"type:varchar(200);not null" json:"name"`
	Role     UserRole `gorm:"type:varchar(30);not null;default:'sales'" json:"role"`
	Phone    string   `gorm:"type:varchar(30)" json:"phone,omitempty"`
	IsActive bool     `gorm:"not null;default:true;column:is_active" json:"isActive"`
}

// Lead represents a genetic-testing sales lead
type Lead struct {
	BaseModel
	UniqueID string     `gorm:"type:varchar(20);uniqueIndex;not null;column:unique_id" json:"uniqueId"`
	Status   LeadStatus `gorm:"type:varchar(20);not null;default:'quoted';index" json:"status"`

	// Patient and requester identity
	PatientName   string `gorm:"type:varchar(200)" json:"patientName,omitempty"`
	PatientAge    string `gorm:"type:varchar(10)" json:"patientAge,omitempty"`
	PatientGender string `gorm:"type:varchar(20)" json:"patientGender,omitempty"`
	ClinicianName string `gorm:"type:varchar(200);column:clinician_name" json:"clinicianName,omitempty"`
	Organization  string `gorm:"type:varchar(200)" json:"organization,omitempty"`
	ContactEmail  string `gorm:"type:varchar(255);column:contact_email" json:"contactEmail,omitempty"`
	ContactPhone  string `gorm:"type:varchar(30);column:contact_phone" json:"contactPhone,omitempty"`
	City          string `gorm:"type:varchar(100)" json:"city,omitempty"`

	// Commercial fields
	ServiceName  string         `gorm:"type:varchar(200);column:service_name" json:"serviceName,omitempty"`
	TestCategory TestCategory   `gorm:"type:varchar(20);not null;default:'clinical';column:test_category" json:"testCategory"`
	GenePanel    pq.StringArray `gorm:"type:text[];column:gene_panel" json:"genePanel,omitempty"`
	AmountQuoted string         `gorm:"type:numeric(12,2);column:amount_quoted" json:"amountQuoted,omitempty"`
	FollowUp     string         `gorm:"type:text;column:follow_up" json:"followUp,omitempty"`
	LeadType     string         `gorm:"type:varchar(50);column:lead_type" json:"leadType,omitempty"`
	Source       string         `gorm:"type:varchar(100)" json:"source,omitempty"`

	GeneticCounsellorRequired bool `gorm:"not null;default:false;column:genetic_counsellor_required" json:"geneticCounsellorRequired"`

	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id" json:"createdById,omitempty"`
	CreatedBy   *User      `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	ConvertedAt *time.Time `gorm:"column:converted_at" json:"convertedAt,omitempty"`
}

// LeadStatusHistory tracks status transitions for a lead
type LeadStatusHistory struct {
	BaseModel
	LeadID      uuid.UUID  `gorm:"type:uuid;not null;index;column:lead_id" json:"leadId"`
	Lead        *Lead      `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	FromStatus  LeadStatus `gorm:"type:varchar(20);column:from_status" json:"fromStatus"`
	ToStatus    LeadStatus `gorm:"type:varchar(20);not null;column:to_status" json:"toStatus"`
	ChangedByID *uuid.UUID `gorm:"type:uuid;column:changed_by_id" json:"changedById,omitempty"`
	Note        string     `gorm:"type:text" json:"note,omitempty"`
}

// SampleStatus represents the position of a sample in the processing pipeline
type SampleStatus string

const (
	SampleStatusPickupScheduled SampleStatus = "pickup_scheduled"
	SampleStatusPickedUp        SampleStatus = "picked_up"
	SampleStatusReceived        SampleStatus = "received"
	SampleStatusInLab           SampleStatus = "in_lab"
	SampleStatusSequencing      SampleStatus = "sequencing"
	SampleStatusBioinformatics  SampleStatus = "bioinformatics"
	SampleStatusReportReady     SampleStatus = "report_ready"
	SampleStatusDelivered       SampleStatus = "delivered"
)

// IsValid checks if the sample status is valid
func (s SampleStatus) IsValid() bool {
	switch s {
	case SampleStatusPickupScheduled, SampleStatusPickedUp, SampleStatusReceived,
		SampleStatusInLab, SampleStatusSequencing, SampleStatusBioinformatics,
		SampleStatusReportReady, SampleStatusDelivered:
		return true
	}
	return false
}

// Sample represents a physical specimen created when a lead converts
type Sample struct {
	BaseModel
	SampleID string       `gorm:"type:varchar(20);uniqueIndex;not null;column:sample_id" json:"sampleId"`
	LeadID   uuid.UUID    `gorm:"type:uuid;not null;index;column:lead_id" json:"leadId"`
	Lead     *Lead        `gorm:"foreignKey:LeadID" json:"lead,omitempty"`
	Status   SampleStatus `gorm:"type:varchar(30);not null;default:'pickup_scheduled';index" json:"status"`

	PatientName  string       `gorm:"type:varchar(200)" json:"patientName,omitempty"`
	Organization string       `gorm:"type:varchar(200)" json:"organization,omitempty"`
	ServiceName  string       `gorm:"type:varchar(200);column:service_name" json:"serviceName,omitempty"`
	TestCategory TestCategory `gorm:"type:varchar(20);column:test_category" json:"testCategory,omitempty"`
	SampleType   string       `gorm:"type:varchar(50);column:sample_type" json:"sampleType,omitempty"`

	Amount     string `gorm:"type:numeric(12,2)" json:"amount,omitempty"`
	PaidAmount string `gorm:"type:numeric(12,2);default:0;column:paid_amount" json:"paidAmount"`

	// Logistics pass-through from the conversion request
	TrackingID   string     `gorm:"type:varchar(100);column:tracking_id" json:"trackingId,omitempty"`
	CourierName  string     `gorm:"type:varchar(100);column:courier_name" json:"courierName,omitempty"`
	PickupDate   *time.Time `gorm:"column:pickup_date" json:"pickupDate,omitempty"`
	ReceivedDate *time.Time `gorm:"column:received_date" json:"receivedDate,omitempty"`
}

// PaymentStatus represents how much of a finance record has been settled
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPartial || s == PaymentStatusPaid
}

// FinanceRecord tracks billing for a converted sample. SampleID holds the
// human-readable sample identifier, which is how finance staff look rows up.
type FinanceRecord struct {
	BaseModel
	SampleID string    `gorm:"type:varchar(20);uniqueIndex;not null;column:sample_id" json:"sampleId"`
	LeadID   uuid.UUID `gorm:"type:uuid;not null;index;column:lead_id" json:"leadId"`

	Amount        string        `gorm:"type:numeric(12,2)" json:"amount"`
	TotalAmount   string        `gorm:"type:numeric(12,2);column:total_amount" json:"totalAmount"`
	PaidAmount    string        `gorm:"type:numeric(12,2);default:0;column:paid_amount" json:"paidAmount"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';column:payment_status" json:"paymentStatus"`
	InvoiceNumber string        `gorm:"type:varchar(50);column:invoice_number" json:"invoiceNumber,omitempty"`

	Organization  string `gorm:"type:varchar(200)" json:"organization,omitempty"`
	ClinicianName string `gorm:"type:varchar(200);column:clinician_name" json:"clinicianName,omitempty"`
	PatientName   string `gorm:"type:varchar(200)" json:"patientName,omitempty"`
	ServiceName   string `gorm:"type:varchar(200);column:service_name" json:"serviceName,omitempty"`
}

// QCStatus represents the quality-control verdict for a lab processing record
type QCStatus string

const (
	QCStatusPending QCStatus = "pending"
	QCStatusPassed  QCStatus = "passed"
	QCStatusFailed  QCStatus = "failed"
)

// IsValid checks if the QC status is valid
func (s QCStatus) IsValid() bool {
	return s == QCStatusPending || s == QCStatusPassed || s == QCStatusFailed
}

// LabProcessing tracks wet-lab work for a converted sample
type LabProcessing struct {
	BaseModel
	SampleID string    `gorm:"type:varchar(20);uniqueIndex;not null;column:sample_id" json:"sampleId"`
	LeadID   uuid.UUID `gorm:"type:uuid;not null;index;column:lead_id" json:"leadId"`

	QCStatus        QCStatus `gorm:"type:varchar(20);not null;default:'pending';column:qc_status" json:"qcStatus"`
	LibraryPrepared bool     `gorm:"not null;default:false;column:library_prepared" json:"libraryPrepared"`
	IsOutsourced    bool     `gorm:"not null;default:false;column:is_outsourced" json:"isOutsourced"`

	ServiceName    string     `gorm:"type:varchar(200);column:service_name" json:"serviceName,omitempty"`
	SampleType     string     `gorm:"type:varchar(50);column:sample_type" json:"sampleType,omitempty"`
	Platform       string     `gorm:"type:varchar(100)" json:"platform,omitempty"`
	QCNotes        string     `gorm:"type:text;column:qc_notes" json:"qcNotes,omitempty"`
	QCCompletedAt  *time.Time `gorm:"column:qc_completed_at" json:"qcCompletedAt,omitempty"`
	OutsourcedTo   string     `gorm:"type:varchar(200);column:outsourced_to" json:"outsourcedTo,omitempty"`
	SequencingRunID string    `gorm:"type:varchar(100);column:sequencing_run_id" json:"sequencingRunId,omitempty"`
}

// ApprovalStatus represents whether a counselling session has been approved
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// IsValid checks if the approval status is valid
func (s ApprovalStatus) IsValid() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusApproved || s == ApprovalStatusRejected
}

// GeneticCounselling is the optional counselling placeholder created when a
// converting lead needs a counsellor
type GeneticCounselling struct {
	BaseModel
	SampleID string    `gorm:"type:varchar(20);uniqueIndex;not null;column:sample_id" json:"sampleId"`
	LeadID   uuid.UUID `gorm:"type:uuid;not null;index;column:lead_id" json:"leadId"`

	PatientName    string         `gorm:"type:varchar(200)" json:"patientName,omitempty"`
	ServiceName    string         `gorm:"type:varchar(200);column:service_name" json:"serviceName,omitempty"`
	GCName         string         `gorm:"type:varchar(200);column:gc_name" json:"gcName"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'pending';column:approval_status" json:"approvalStatus"`
	ScheduledDate  *time.Time     `gorm:"column:scheduled_date" json:"scheduledDate,omitempty"`
	SessionNotes   string         `gorm:"type:text;column:session_notes" json:"sessionNotes,omitempty"`
}

// RecycleEntry is a JSON snapshot of a deleted row, kept so deletions can be
// reviewed and restored
type RecycleEntry struct {
	BaseModel
	EntityType  string     `gorm:"type:varchar(50);not null;index;column:entity_type" json:"entityType"`
	EntityID    string     `gorm:"type:varchar(50);not null;column:entity_id" json:"entityId"`
	Data        string     `gorm:"type:jsonb;not null" json:"data"`
	DeletedByID *uuid.UUID `gorm:"type:uuid;column:deleted_by_id" json:"deletedById,omitempty"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`
}

// ReconciliationTaskStatus represents the delivery state of a downstream task
type ReconciliationTaskStatus string

const (
	ReconciliationTaskPending ReconciliationTaskStatus = "pending"
	ReconciliationTaskSent    ReconciliationTaskStatus = "sent"
	ReconciliationTaskFailed  ReconciliationTaskStatus = "failed"
)

// ReconciliationTask is a durable record of one downstream side effect of a
// conversion. Tasks are dispatched asynchronously and may fail independently
// without affecting the conversion that enqueued them.
type ReconciliationTask struct {
	BaseModel
	Name       string                   `gorm:"type:varchar(100);not null" json:"name"`
	Kind       string                   `gorm:"type:varchar(20);not null;default:'http'" json:"kind"`
	Target     string                   `gorm:"type:varchar(500);not null" json:"target"`
	Payload    string                   `gorm:"type:jsonb;not null" json:"payload"`
	Status     ReconciliationTaskStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts   int                      `gorm:"not null;default:0" json:"attempts"`
	LastError  string                   `gorm:"type:text;column:last_error" json:"lastError,omitempty"`
	SampleID   string                   `gorm:"type:varchar(20);index;column:sample_id" json:"sampleId,omitempty"`
	DispatchAt *time.Time               `gorm:"column:dispatch_at" json:"dispatchAt,omitempty"`
}

// ReportFile stores metadata for an uploaded report artifact; the bytes live
// in blob storage under StoragePath
type ReportFile struct {
	BaseModel
	SampleID     string     `gorm:"type:varchar(20);not null;index;column:sample_id" json:"sampleId"`
	FileName     string     `gorm:"type:varchar(255);not null;column:file_name" json:"fileName"`
	ContentType  string     `gorm:"type:varchar(100);column:content_type" json:"contentType"`
	Size         int64      `gorm:"not null;default:0" json:"size"`
	StoragePath  string     `gorm:"type:varchar(500);not null;column:storage_path" json:"storagePath"`
	UploadedByID *uuid.UUID `gorm:"type:uuid;column:uploaded_by_id" json:"uploadedById,omitempty"`
}

// Notification represents an in-app notification for a user
type Notification struct {
	BaseModel
	UserID  uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	Type    string    `gorm:"type:varchar(50);not null" json:"type"`
	Title   string    `gorm:"type:varchar(200);not null" json:"title"`
	Message string    `gorm:"type:text" json:"message,omitempty"`
	Link    string    `gorm:"type:varchar(500)" json:"link,omitempty"`
	IsRead  bool      `gorm:"not null;default:false;column:is_read" json:"isRead"`
}
