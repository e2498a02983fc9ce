package models

import "time"

// MaxFamilyAdmins caps how many admins a single family may have.
const MaxFamilyAdmins = 2

// Family is one of the fixed community groupings members join.
type Family struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:120;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"size:512" json:"image_url"`
	MemberCount int       `gorm:"not null;default:0" json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Family) TableName() string {
	return "families"
}

// FamilyStats summarizes a family for its admin dashboard. RecentActivity
// holds the newest posts without their comments.
type FamilyStats struct {
	FamilyID            string `json:"family_id"`
	MemberCount         int64  `json:"member_count"`
	AdminCount          int64  `json:"admin_count"`
	PostCount           int64  `json:"post_count"`
	MediaCount          int64  `json:"media_count"`
	PhotoCount          int64  `json:"photo_count"`
	AudioCount          int64  `json:"audio_count"`
	UnreadNotifications int64  `json:"unread_notifications"`
	RecentActivity      []Post `json:"recent_activity"`
}
