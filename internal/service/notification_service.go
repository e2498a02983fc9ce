package service

import (
	"context"

	"faithfulcity/internal/feed"
	"faithfulcity/internal/mail"
	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/validation"

	"github.com/google/uuid"
)

// Announcer emails family members about announcements.
type Announcer interface {
	Enabled() bool
	SendAnnouncement(ctx context.Context, to []mail.Recipient, a mail.Announcement) error
}

type CreateNotificationInput struct {
	FamilyID string
	Title    string
	Message  string
	Type     models.NotificationType
}

// NotificationService records family notifications and fans them out.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	familyRepo       repository.FamilyRepository
	feed             FeedPublisher
	announcer        Announcer
}

// NewNotificationService wires the service. feed and announcer may be nil.
func NewNotificationService(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	familyRepo repository.FamilyRepository,
	feed FeedPublisher,
	announcer Announcer,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		familyRepo:       familyRepo,
		feed:             publisherOrNoop(feed),
		announcer:        announcer,
	}
}

func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	if in.Type == "" {
		in.Type = models.NotificationTypeGeneral
	}
	if !in.Type.Valid() {
		return nil, models.NewValidationError("Invalid notification type")
	}
	title, err := validation.CleanText("title", in.Title, validation.MaxTitleLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	message, err := validation.CleanOptionalText("message", in.Message, validation.MaxPostLength)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	n := &models.Notification{
		ID:       uuid.NewString(),
		FamilyID: in.FamilyID,
		Title:    title,
		Message:  message,
		Type:     in.Type,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.familyRepo.InvalidateStats(ctx, n.FamilyID)
	s.feed.Publish(ctx, n.FamilyID, feed.TopicNotifications)

	if n.Type == models.NotificationTypeAnnouncement {
		s.emailFamily(ctx, n)
	}
	return n, nil
}

// emailFamily is best effort: failures are logged and never undo the notification.
func (s *NotificationService) emailFamily(ctx context.Context, n *models.Notification) {
	if s.announcer == nil || !s.announcer.Enabled() {
		return
	}
	members, err := s.userRepo.ListByFamily(ctx, n.FamilyID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "announcement email skipped: members unavailable", "error", err)
		return
	}
	if len(members) == 0 {
		return
	}
	familyName := n.FamilyID
	if family, err := s.familyRepo.GetByID(ctx, n.FamilyID); err == nil {
		familyName = family.Name
	}

	to := make([]mail.Recipient, 0, len(members))
	for _, m := range members {
		to = append(to, mail.Recipient{Email: m.Email, Name: m.DisplayName})
	}
	if err := s.announcer.SendAnnouncement(ctx, to, mail.Announcement{
		FamilyName: familyName,
		Title:      n.Title,
		Message:    n.Message,
	}); err != nil {
		middleware.Logger.WarnContext(ctx, "announcement email failed",
			"notification_id", n.ID, "error", err)
	}
}

// ListByFamily returns the newest notifications of a family.
func (s *NotificationService) ListByFamily(ctx context.Context, familyID string) ([]models.Notification, error) {
	items, err := s.notificationRepo.ListByFamily(ctx, familyID)
	return degradeList(ctx, "notifications", items, err)
}

func (s *NotificationService) Get(ctx context.Context, id string) (*models.Notification, error) {
	return s.notificationRepo.GetByID(ctx, id)
}

// MarkRead flags the notification as read. Marking twice is harmless.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.notificationRepo.MarkRead(ctx, id); err != nil {
		return nil, err
	}
	n.IsRead = true
	s.familyRepo.InvalidateStats(ctx, n.FamilyID)
	s.feed.Publish(ctx, n.FamilyID, feed.TopicNotifications)
	return n, nil
}
