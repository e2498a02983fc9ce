package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

// Session is an authenticated principal plus the bearer token proving it.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	AsAdmin     bool
}

// IdentityService registers and authenticates users and revokes their sessions.
type IdentityService struct {
	userRepo repository.UserRepository
	rdb      *redis.Client
}

// NewIdentityService creates the service. rdb may be nil, in which case
// sign-out cannot revoke tokens server side.
func NewIdentityService(userRepo repository.UserRepository, rdb *redis.Client) *IdentityService {
	return &IdentityService{userRepo: userRepo, rdb: rdb}
}

func (s *IdentityService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewAuthError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewAuthError(err.Error())
	}
	name := strings.TrimSpace(validation.SanitizeText(in.DisplayName))
	if err := validation.ValidateDisplayName(name); err != nil {
		return nil, models.NewAuthError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewAuthError("An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	role := models.RoleMember
	if in.AsAdmin {
		role = models.RoleAdmin
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewAuthError("An account with this email already exists")
		}
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user signed up", "new_user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *IdentityService) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewAuthError(invalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewAuthError(invalidCredentials)
	}
	return user, nil
}

// SignOut revokes the token id until the token would have expired anyway.
// Revoking twice, or revoking an expired token, is a no-op.
func (s *IdentityService) SignOut(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.rdb == nil || tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, middleware.RevokedTokenKey(tokenID), "1", ttl).Err(); err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

// CurrentProfile loads the profile record of the signed-in user.
func (s *IdentityService) CurrentProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}
