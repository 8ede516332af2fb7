package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Progenics2025/LIMS-sub000/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Email:     "asha@progenics.in",
		Name:      "Asha Rao",
		Role:      domain.UserRoleSales,
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "lims-test", time.Hour)
	user := testUser()

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	uc, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, uc.UserID)
	assert.Equal(t, user.Email, uc.Email)
	assert.Equal(t, user.Name, uc.DisplayName)
	assert.Equal(t, domain.UserRoleSales, uc.Role)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "lims-test", -time.Minute)

	token, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "lims-test", time.Hour)
	other := NewTokenIssuer("another-secret", "lims-test", time.Hour)

	token, _, err := issuer.Issue(testUser())
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "lims-test", time.Hour)

	_, err := issuer.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserContext_Roles(t *testing.T) {
	uc := &UserContext{Role: domain.UserRoleFinance}

	assert.True(t, uc.HasRole(domain.UserRoleFinance))
	assert.False(t, uc.HasRole(domain.UserRoleSales))
	assert.True(t, uc.HasAnyRole(domain.UserRoleAdmin, domain.UserRoleFinance))
	assert.False(t, uc.IsAdmin())

	admin := &UserContext{Role: domain.UserRoleAdmin}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.HasAnyRole(domain.UserRoleSales), "role gates list admin explicitly")
}
