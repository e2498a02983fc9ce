package models

import "time"

// UserRole defines a member's role inside their family.
type UserRole string

const (
	// RoleAdmin can moderate the family they belong to.
	RoleAdmin UserRole = "admin"
	// RoleMember is the default role.
	RoleMember UserRole = "member"
)

// User is the profile record of an authenticated principal.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"size:60;not null" json:"display_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FamilyID     string    `gorm:"size:64;index" json:"family_id,omitempty"`
	Role         UserRole  `gorm:"type:varchar(20);not null;default:'member';index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// IsAdminOf reports whether the user administers the given family.
func (u *User) IsAdminOf(familyID string) bool {
	return u != nil && u.Role == RoleAdmin && u.FamilyID != "" && u.FamilyID == familyID
}

// BelongsTo reports whether the user is a member of the given family.
func (u *User) BelongsTo(familyID string) bool {
	return u != nil && u.FamilyID != "" && u.FamilyID == familyID
}
