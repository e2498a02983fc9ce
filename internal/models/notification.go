package models

import "time"

// NotificationType classifies the system event behind a notification.
type NotificationType string

const (
	NotificationTypeAnnouncement NotificationType = "announcement"
	NotificationTypeMedia        NotificationType = "media"
	NotificationTypeGeneral      NotificationType = "general"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeAnnouncement, NotificationTypeMedia, NotificationTypeGeneral:
		return true
	}
	return false
}

// Notification is a family-wide event message. IsRead only moves false -> true.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:64" json:"id"`
	FamilyID  string           `gorm:"size:64;not null;index" json:"family_id"`
	Title     string           `gorm:"size:120;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Type      NotificationType `gorm:"type:varchar(20);not null;default:'general'" json:"type"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Notification) TableName() string {
	return "notifications"
}
