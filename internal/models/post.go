package models

import (
	"slices"
	"time"
)

// PostType classifies a family post.
type PostType string

const (
	PostTypeAnnouncement  PostType = "announcement"
	PostTypeDiscussion    PostType = "discussion"
	PostTypePrayerRequest PostType = "prayer-request"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeAnnouncement, PostTypeDiscussion, PostTypePrayerRequest:
		return true
	}
	return false
}

// Post is a family-scoped message. Likes holds each user id at most once.
type Post struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	FamilyID   string     `gorm:"size:64;not null;index" json:"family_id"`
	AuthorID   string     `gorm:"size:64;not null" json:"author_id"`
	AuthorName string     `gorm:"size:60" json:"author_name"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Type       PostType   `gorm:"type:varchar(20);not null;default:'discussion'" json:"type"`
	Likes      StringList `gorm:"type:text" json:"likes"`
	Comments   []Comment  `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// LikedBy reports whether userID is in the likes set.
func (p *Post) LikedBy(userID string) bool {
	return slices.Contains(p.Likes, userID)
}

// Comment is an immutable entry in a post's comment sequence.
type Comment struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	PostID     string    `gorm:"size:64;not null;index" json:"post_id"`
	AuthorID   string    `gorm:"size:64;not null" json:"author_id"`
	AuthorName string    `gorm:"size:60" json:"author_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}
