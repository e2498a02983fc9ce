package repository

import (
	"context"
	"fmt"

	"faithfulcity/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListByFamily(ctx context.Context, familyID string) ([]models.User, error)
	ListAdmins(ctx context.Context, familyID string) ([]models.User, error)
	CountAdmins(ctx context.Context, familyID string) (int64, error)
	SetFamily(ctx context.Context, userID, familyID string) error
	ClearFamily(ctx context.Context, userID string) error
	SetRole(ctx context.Context, userID string, role models.UserRole) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return classify(err, "User", user.ID)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, classify(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).Limit(1).Find(&users).Error; err != nil {
		return nil, classify(err, "User", email)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *userRepository) ListByFamily(ctx context.Context, familyID string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("family_id = ?", familyID).Find(&users).Error; err != nil {
		return nil, classify(err, "User", familyID)
	}
	return users, nil
}

func (r *userRepository) ListAdmins(ctx context.Context, familyID string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("family_id = ? AND role = ?", familyID, models.RoleAdmin).
		Find(&users).Error; err != nil {
		return nil, classify(err, "User", familyID)
	}
	return users, nil
}

func (r *userRepository) CountAdmins(ctx context.Context, familyID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("family_id = ? AND role = ?", familyID, models.RoleAdmin).
		Count(&n).Error; err != nil {
		return 0, classify(err, "User", familyID)
	}
	return n, nil
}

func (r *userRepository) updateColumn(ctx context.Context, userID, column string, value any) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, value)
	if res.Error != nil {
		return classify(res.Error, "User", userID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", userID)
	}
	return nil
}

func (r *userRepository) SetFamily(ctx context.Context, userID, familyID string) error {
	return r.updateColumn(ctx, userID, "family_id", familyID)
}

func (r *userRepository) ClearFamily(ctx context.Context, userID string) error {
	return r.updateColumn(ctx, userID, "family_id", "")
}

func (r *userRepository) SetRole(ctx context.Context, userID string, role models.UserRole) error {
	return r.updateColumn(ctx, userID, "role", role)
}
