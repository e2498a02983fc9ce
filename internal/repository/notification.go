package repository

import (
	"context"
	"time"

	"faithfulcity/internal/models"

	"gorm.io/gorm"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByFamily(ctx context.Context, familyID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository returns a new NotificationRepository implementation.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return classify(err, "Notification", n.ID)
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, classify(err, "Notification", id)
	}
	return &n, nil
}

// ListByFamily returns the newest NotificationWindow notifications of the family.
func (r *notificationRepository) ListByFamily(ctx context.Context, familyID string) ([]models.Notification, error) {
	var items []models.Notification
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).Find(&items).Error; err != nil {
		return nil, classify(err, "Notification", familyID)
	}
	return newestFirst(items, func(n *models.Notification) time.Time { return n.CreatedAt }, NotificationWindow), nil
}

// MarkRead sets is_read. There is no path back to unread.
func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return classify(err, "Notification", id)
	}
	if n == 0 {
		return models.NewNotFoundError("Notification", id)
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error; err != nil {
		return classify(err, "Notification", id)
	}
	return nil
}
