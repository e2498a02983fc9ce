package service

import (
	"context"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"
	"faithfulcity/internal/observability"
	"faithfulcity/internal/repository"
	"faithfulcity/internal/validation"
)

// UpdateFamilyInput carries the editable family fields. Nil fields are left alone.
type UpdateFamilyInput struct {
	Name        *string
	Description *string
	ImageURL    *string
}

// MembershipService manages family membership and admin roles.
type MembershipService struct {
	userRepo   repository.UserRepository
	familyRepo repository.FamilyRepository
}

func NewMembershipService(userRepo repository.UserRepository, familyRepo repository.FamilyRepository) *MembershipService {
	return &MembershipService{userRepo: userRepo, familyRepo: familyRepo}
}

func (s *MembershipService) ListFamilies(ctx context.Context) ([]models.Family, error) {
	families, err := s.familyRepo.List(ctx)
	return degradeList(ctx, "families", families, err)
}

func (s *MembershipService) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	return s.familyRepo.GetByID(ctx, familyID)
}

// JoinFamily sets the user's family and bumps the family's member count by
// one. Joining the same family twice counts twice. A user already in another
// family must be removed first. An admin joins only while the family is below
// models.MaxFamilyAdmins; like Promote, the check and the write are separate.
func (s *MembershipService) JoinFamily(ctx context.Context, userID, familyID string) (*models.Family, error) {
	if _, err := s.familyRepo.GetByID(ctx, familyID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.FamilyID != "" && user.FamilyID != familyID {
		return nil, models.NewForbiddenError("You already belong to another family")
	}
	if user.Role == models.RoleAdmin && user.FamilyID != familyID {
		count, err := s.userRepo.CountAdmins(ctx, familyID)
		if err != nil {
			return nil, err
		}
		if count >= models.MaxFamilyAdmins {
			observability.AdminLimitRejections.Inc()
			return nil, models.NewAdminLimitError(familyID)
		}
	}

	if err := s.userRepo.SetFamily(ctx, userID, familyID); err != nil {
		return nil, err
	}
	if err := s.familyRepo.IncrementMemberCount(ctx, familyID); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user joined family", "family_id", familyID, "role", user.Role)
	return s.familyRepo.GetByID(ctx, familyID)
}

func (s *MembershipService) ListMembers(ctx context.Context, familyID string) ([]models.User, error) {
	members, err := s.userRepo.ListByFamily(ctx, familyID)
	return degradeList(ctx, "users", members, err)
}

func (s *MembershipService) ListAdmins(ctx context.Context, familyID string) ([]models.User, error) {
	admins, err := s.userRepo.ListAdmins(ctx, familyID)
	return degradeList(ctx, "users", admins, err)
}

// Promote makes the user an admin unless the family already has
// models.MaxFamilyAdmins of them. The count and the update are separate
// statements, so two concurrent promotions can both pass the check.
func (s *MembershipService) Promote(ctx context.Context, userID, familyID string) error {
	count, err := s.userRepo.CountAdmins(ctx, familyID)
	if err != nil {
		return err
	}
	if count >= models.MaxFamilyAdmins {
		observability.AdminLimitRejections.Inc()
		return models.NewAdminLimitError(familyID)
	}
	if err := s.userRepo.SetRole(ctx, userID, models.RoleAdmin); err != nil {
		return err
	}
	s.familyRepo.InvalidateStats(ctx, familyID)
	return nil
}

// Demote sets the role back to member, whatever it was.
func (s *MembershipService) Demote(ctx context.Context, userID, familyID string) error {
	if err := s.userRepo.SetRole(ctx, userID, models.RoleMember); err != nil {
		return err
	}
	s.familyRepo.InvalidateStats(ctx, familyID)
	return nil
}

// RemoveMember clears the user's family and demotes them, so admin rights
// never follow a user into another family. The family's member count is left
// unchanged.
func (s *MembershipService) RemoveMember(ctx context.Context, userID, familyID string) error {
	if err := s.userRepo.ClearFamily(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.SetRole(ctx, userID, models.RoleMember); err != nil {
		return err
	}
	s.familyRepo.InvalidateStats(ctx, familyID)
	middleware.Logger.InfoContext(ctx, "member removed from family", "target_user_id", userID, "family_id", familyID)
	return nil
}

func (s *MembershipService) UpdateFamilyInfo(ctx context.Context, familyID string, in UpdateFamilyInput) (*models.Family, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name, err := validation.CleanText("name", *in.Name, validation.MaxTitleLength)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		updates["name"] = name
	}
	if in.Description != nil {
		desc, err := validation.CleanOptionalText("description", *in.Description, validation.MaxCommentLength)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		updates["description"] = desc
	}
	if in.ImageURL != nil {
		imageURL, err := validation.CleanOptionalURL("image_url", *in.ImageURL)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		updates["image_url"] = imageURL
	}
	if len(updates) == 0 {
		return nil, models.NewValidationError("No fields to update")
	}
	return s.familyRepo.UpdateInfo(ctx, familyID, updates)
}

// Stats summarizes a family for its admin dashboard.
func (s *MembershipService) Stats(ctx context.Context, familyID string) (*models.FamilyStats, error) {
	return s.familyRepo.Stats(ctx, familyID)
}
