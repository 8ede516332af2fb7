package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
	"github.com/Progenics2025/LIMS-sub000/internal/testutil"
)

type recordingSender struct {
	to   string
	code string
	err  error
}

func (r *recordingSender) SendOTP(to, code string) error {
	r.to = to
	r.code = code
	return r.err
}

func setupOTPService(t *testing.T) (*OTPService, *OTPStore, *recordingSender, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	store := NewOTPStore()
	sender := &recordingSender{}
	issuer := auth.NewTokenIssuer("test-secret", "lims-test", time.Hour)
	svc := NewOTPService(store, sender, repository.NewUserRepository(db), issuer, zap.NewNop())
	return svc, store, sender, db
}

func TestOTPStore_PutAndConsume(t *testing.T) {
	store := NewOTPStore()
	store.Put("user@example.com", "123456")

	require.NoError(t, store.Consume("user@example.com", "123456"))

	// Single use: the same code must not verify twice.
	assert.ErrorIs(t, store.Consume("user@example.com", "123456"), ErrOTPInvalid)
}

func TestOTPStore_EmailNormalization(t *testing.T) {
	store := NewOTPStore()
	store.Put("  User@Example.COM ", "654321")

	assert.NoError(t, store.Consume("user@example.com", "654321"))
}

func TestOTPStore_WrongCode(t *testing.T) {
	store := NewOTPStore()
	store.Put("user@example.com", "123456")

	assert.ErrorIs(t, store.Consume("user@example.com", "000000"), ErrOTPInvalid)

	// A failed attempt burns the code.
	assert.ErrorIs(t, store.Consume("user@example.com", "123456"), ErrOTPInvalid)
}

func TestOTPStore_Expiry(t *testing.T) {
	store := NewOTPStore()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	store.Put("user@example.com", "123456")
	at = at.Add(otpTTL + time.Second)

	assert.ErrorIs(t, store.Consume("user@example.com", "123456"), ErrOTPExpired)
}

func TestOTPStore_ReplacesPreviousCode(t *testing.T) {
	store := NewOTPStore()
	store.Put("user@example.com", "111111")
	store.Put("user@example.com", "222222")

	assert.ErrorIs(t, store.Consume("user@example.com", "111111"), ErrOTPInvalid)
}

func TestOTPStore_Sweep(t *testing.T) {
	store := NewOTPStore()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	store.Put("stale@example.com", "111111")
	at = at.Add(otpTTL + time.Minute)
	store.Put("fresh@example.com", "222222")

	assert.Equal(t, 1, store.Sweep())
	assert.NoError(t, store.Consume("fresh@example.com", "222222"))
}

func TestRequestOTP_SendsCodeToActiveUser(t *testing.T) {
	svc, store, sender, db := setupOTPService(t)

	user := testutil.CreateTestUser(t, db, "asha@progenics.in", domain.UserRoleSales)

	require.NoError(t, svc.RequestOTP(context.Background(), "ASHA@progenics.in"))

	assert.Equal(t, user.Email, sender.to)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), sender.code)
	assert.NoError(t, store.Consume(user.Email, sender.code))
}

func TestRequestOTP_UnknownEmail(t *testing.T) {
	svc, _, sender, _ := setupOTPService(t)

	err := svc.RequestOTP(context.Background(), "nobody@progenics.in")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, sender.code, "no code should be issued for unknown addresses")
}

func TestRequestOTP_InactiveUser(t *testing.T) {
	svc, _, _, db := setupOTPService(t)

	user := testutil.CreateTestUser(t, db, "gone@progenics.in", domain.UserRoleSupport)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	err := svc.RequestOTP(context.Background(), "gone@progenics.in")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestVerifyOTP_IssuesToken(t *testing.T) {
	svc, store, _, db := setupOTPService(t)

	user := testutil.CreateTestUser(t, db, "asha@progenics.in", domain.UserRoleSales)
	store.Put(user.Email, "123456")

	resp, err := svc.VerifyOTP(context.Background(), user.Email, "123456")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	assert.Equal(t, user.ID, resp.User.ID)

	issuer := auth.NewTokenIssuer("test-secret", "lims-test", time.Hour)
	uc, err := issuer.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, uc.UserID)
	assert.Equal(t, domain.UserRoleSales, uc.Role)
}

func TestVerifyOTP_RejectsBadCode(t *testing.T) {
	svc, store, _, db := setupOTPService(t)

	user := testutil.CreateTestUser(t, db, "asha@progenics.in", domain.UserRoleSales)
	store.Put(user.Email, "123456")

	_, err := svc.VerifyOTP(context.Background(), user.Email, "999999")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}
