// Package testutil provides shared helpers for database-backed tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

// SetupTestDB opens an isolated in-memory SQLite database and migrates the
// full schema. Each call returns a fresh database, so tests do not share
// state.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	// A single connection keeps every query on the same in-memory database;
	// a second pooled connection would see an empty schema.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&domain.User{},
		&domain.Lead{},
		&domain.LeadStatusHistory{},
		&domain.Sample{},
		&domain.FinanceRecord{},
		&domain.LabProcessing{},
		&domain.GeneticCounselling{},
		&domain.RecycleEntry{},
		&domain.ReconciliationTask{},
		&domain.ReportFile{},
		&domain.Notification{},
	)
	require.NoError(t, err, "failed to migrate test schema")

	return db
}

// CreateTestUser inserts a user with the given role.
func CreateTestUser(t *testing.T, db *gorm.DB, email string, role domain.UserRole) *domain.User {
	t.Helper()

	user := &domain.User{
		Email:    email,
		Name:     "Test User",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestLead inserts a lead in the given status.
func CreateTestLead(t *testing.T, db *gorm.DB, uniqueID string, status domain.LeadStatus) *domain.Lead {
	t.Helper()

	lead := &domain.Lead{
		UniqueID:     uniqueID,
		Status:       status,
		PatientName:  "Asha Rao",
		ServiceName:  "Whole Exome Sequencing",
		TestCategory: domain.TestCategoryClinical,
		Organization: "City Hospital",
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

// CreateTestSample inserts a sample linked to a lead.
func CreateTestSample(t *testing.T, db *gorm.DB, sampleID string, leadID uuid.UUID) *domain.Sample {
	t.Helper()

	sample := &domain.Sample{
		SampleID:    sampleID,
		LeadID:      leadID,
		Status:      domain.SampleStatusPickupScheduled,
		PatientName: "Asha Rao",
		Amount:      "25000.00",
		PaidAmount:  "0",
	}
	require.NoError(t, db.Create(sample).Error)
	return sample
}
