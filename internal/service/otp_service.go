package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

const otpTTL = 5 * time.Minute

// OTPSender delivers a login code to a user. The production implementation
// sends email; tests inject a recorder.
type OTPSender interface {
	SendOTP(to, code string) error
}

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore holds issued login codes. It is injected into the service so its
// lifetime is explicit and tests can construct isolated instances.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

func NewOTPStore() *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		now:     time.Now,
	}
}

// Put stores a code for an email, replacing any previous one.
func (s *OTPStore) Put(email, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[normalizeEmail(email)] = otpEntry{
		code:      code,
		expiresAt: s.now().Add(otpTTL),
	}
}

// Consume verifies and removes a code. Codes are single-use: a successful or
// expired lookup deletes the entry either way.
func (s *OTPStore) Consume(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	entry, ok := s.entries[key]
	if !ok {
		return ErrOTPInvalid
	}
	delete(s.entries, key)

	if s.now().After(entry.expiresAt) {
		return ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return ErrOTPInvalid
	}
	return nil
}

// Sweep drops expired entries. Called periodically by the scheduler.
func (s *OTPStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	now := s.now()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OTPService implements the email one-time-code login flow.
type OTPService struct {
	store    *OTPStore
	sender   OTPSender
	userRepo *repository.UserRepository
	issuer   *auth.TokenIssuer
	logger   *zap.Logger
}

func NewOTPService(
	store *OTPStore,
	sender OTPSender,
	userRepo *repository.UserRepository,
	issuer *auth.TokenIssuer,
	logger *zap.Logger,
) *OTPService {
	return &OTPService{
		store:    store,
		sender:   sender,
		userRepo: userRepo,
		issuer:   issuer,
		logger:   logger,
	}
}

// RequestOTP issues a six-digit code to a known, active user.
func (s *OTPService) RequestOTP(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if !user.IsActive {
		return ErrPermissionDenied
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	s.store.Put(user.Email, code)

	if err := s.sender.SendOTP(user.Email, code); err != nil {
		return fmt.Errorf("failed to send login code: %w", err)
	}
	s.logger.Info("login code issued", zap.String("email", user.Email))
	return nil
}

// VerifyOTP checks a code and returns a signed session token.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) (*domain.AuthTokenResponse, error) {
	if err := s.store.Consume(email, code); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &domain.AuthTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
