package models

import "time"

// MediaType distinguishes photos from audio recordings.
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeAudio MediaType = "audio"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypePhoto || t == MediaTypeAudio
}

// Media is the metadata record of an uploaded blob. URL never changes once set.
type Media struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	FamilyID    string     `gorm:"size:64;not null;index" json:"family_id"`
	Type        MediaType  `gorm:"type:varchar(10);not null" json:"type"`
	Title       string     `gorm:"size:120;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	URL         string     `gorm:"size:1024;not null" json:"url"`
	StoragePath string     `gorm:"size:512;not null" json:"-"`
	ContentType string     `gorm:"size:100" json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	UploadedBy  string     `gorm:"size:64;not null" json:"uploaded_by"`
	UploadedAt  time.Time  `gorm:"not null" json:"uploaded_at"`
	Tags        StringList `gorm:"type:text" json:"tags"`
}

// TableName specifies the table name for GORM.
func (Media) TableName() string {
	return "media"
}
