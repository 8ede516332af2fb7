package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Progenics2025/LIMS-sub000/internal/auth"
	"github.com/Progenics2025/LIMS-sub000/internal/domain"
	"github.com/Progenics2025/LIMS-sub000/internal/repository"
)

// ErrNotificationNotOwned is returned when trying to access a notification owned by another user
var ErrNotificationNotOwned = errors.New("notification does not belong to current user")

// NotificationService handles business logic for in-app notifications
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	userRepo         *repository.UserRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		logger:           logger,
	}
}

// CreateForUser creates a notification for a specific user
func (s *NotificationService) CreateForUser(ctx context.Context, userID uuid.UUID, notificationType, title, message, link string) error {
	notification := &domain.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// NotifyConversion tells the lead creator and the lab team that a lead has
// become a sample.
func (s *NotificationService) NotifyConversion(ctx context.Context, result *domain.ConversionResult) error {
	title := "Lead converted"
	message := fmt.Sprintf("Lead %s converted to sample %s", result.Lead.UniqueID, result.Sample.SampleID)
	link := "/samples/" + result.Sample.SampleID

	recipients := map[uuid.UUID]bool{}
	if result.Lead.CreatedByID != nil {
		recipients[*result.Lead.CreatedByID] = true
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if u.IsActive && u.Role == domain.UserRoleLabTechnician {
			recipients[u.ID] = true
		}
	}

	for userID := range recipients {
		if err := s.CreateForUser(ctx, userID, "lead_converted", title, message, link); err != nil {
			s.logger.Warn("failed to notify user of conversion",
				zap.String("userId", userID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// ListForCurrentUser returns the caller's notifications.
func (s *NotificationService) ListForCurrentUser(ctx context.Context, page, pageSize int, unreadOnly bool) (*domain.ListResponse[domain.Notification], error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userCtx.UserID, page, pageSize, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return &domain.ListResponse[domain.Notification]{
		Items:      notifications,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// UnreadCount returns the caller's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}
	return s.notificationRepo.CountUnread(ctx, userCtx.UserID)
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	notification, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}
	if notification.UserID != userCtx.UserID {
		return ErrNotificationNotOwned
	}

	return s.notificationRepo.MarkRead(ctx, id)
}

// MarkAllRead marks all of the caller's notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	return s.notificationRepo.MarkAllRead(ctx, userCtx.UserID)
}
