package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/service"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

func setupNotificationService(t *testing.T) (*service.NotificationService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		zap.NewNop(),
	)
	return svc, db
}

func userCtx(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
}

func TestNotifyConversion_ReachesCreatorAndLabTeam(t *testing.T) {
	svc, db := setupNotificationService(t)

	creator := testutil.CreateTestUser(t, db, "sales@progenics.in", domain.UserRoleSales)
	lab := testutil.CreateTestUser(t, db, "lab@progenics.in", domain.UserRoleLabTechnician)
	testutil.CreateTestUser(t, db, "finance@progenics.in", domain.UserRoleFinance)

	lead := testutil.CreateTestLead(t, db, "26SANTF001", domain.LeadStatusConverted)
	require.NoError(t, db.Model(lead).Update("created_by_id", creator.ID).Error)
	lead.CreatedByID = &creator.ID

	sample := testutil.CreateTestSample(t, db, "PG260314150405", lead.ID)

	err := svc.NotifyConversion(context.Background(), &domain.ConversionResult{Lead: lead, Sample: sample})
	require.NoError(t, err)

	var notifications []domain.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 2)

	recipients := map[uuid.UUID]bool{}
	for _, n := range notifications {
		recipients[n.UserID] = true
		assert.Equal(t, "lead_converted", n.Type)
		assert.Contains(t, n.Message, "26SANTF001")
		assert.Contains(t, n.Message, "PG260314150405")
		assert.False(t, n.IsRead)
	}
	assert.True(t, recipients[creator.ID])
	assert.True(t, recipients[lab.ID])
}

func TestNotificationList_ScopedToCaller(t *testing.T) {
	svc, db := setupNotificationService(t)

	alice := testutil.CreateTestUser(t, db, "alice@progenics.in", domain.UserRoleSales)
	bob := testutil.CreateTestUser(t, db, "bob@progenics.in", domain.UserRoleSales)
	require.NoError(t, svc.CreateForUser(context.Background(), alice.ID, "info", "For Alice", "", ""))
	require.NoError(t, svc.CreateForUser(context.Background(), bob.ID, "info", "For Bob", "", ""))

	page, err := svc.ListForCurrentUser(userCtx(alice), 1, 20, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "For Alice", page.Items[0].Title)
}

func TestNotificationList_RequiresAuth(t *testing.T) {
	svc, _ := setupNotificationService(t)

	_, err := svc.ListForCurrentUser(context.Background(), 1, 20, false)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestNotificationMarkRead(t *testing.T) {
	svc, db := setupNotificationService(t)

	user := testutil.CreateTestUser(t, db, "alice@progenics.in", domain.UserRoleSales)
	require.NoError(t, svc.CreateForUser(context.Background(), user.ID, "info", "Hello", "", ""))

	var notification domain.Notification
	require.NoError(t, db.First(&notification).Error)

	count, err := svc.UnreadCount(userCtx(user))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkRead(userCtx(user), notification.ID))

	count, err = svc.UnreadCount(userCtx(user))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationMarkRead_OtherUsersNotification(t *testing.T) {
	svc, db := setupNotificationService(t)

	alice := testutil.CreateTestUser(t, db, "alice@progenics.in", domain.UserRoleSales)
	bob := testutil.CreateTestUser(t, db, "bob@progenics.in", domain.UserRoleSales)
	require.NoError(t, svc.CreateForUser(context.Background(), alice.ID, "info", "For Alice", "", ""))

	var notification domain.Notification
	require.NoError(t, db.First(&notification).Error)

	err := svc.MarkRead(userCtx(bob), notification.ID)
	assert.ErrorIs(t, err, service.ErrNotificationNotOwned)
}

func TestNotificationMarkAllRead(t *testing.T) {
	svc, db := setupNotificationService(t)

	user := testutil.CreateTestUser(t, db, "alice@progenics.in", domain.UserRoleSales)
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CreateForUser(context.Background(), user.ID, "info", "Hello", "", ""))
	}

	require.NoError(t, svc.MarkAllRead(userCtx(user)))

	count, err := svc.UnreadCount(userCtx(user))
	require.NoError(t, err)
	assert.Zero(t, count)
}
