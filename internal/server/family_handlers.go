package server

import (
	"context"

	"faithfulcity/internal/models"
	"faithfulcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateFamilyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// GetFamilies handles GET /api/families
// @Summary List families
// @Description Directory of all families, answered empty while the store is unreachable
// @Tags families
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Family
// @Router /families [get]
func (s *Server) GetFamilies(c *fiber.Ctx) error {
	families, err := s.membershipService.ListFamilies(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(families)
}

// GetFamily handles GET /api/families/:familyId
// @Summary Get family
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {object} models.Family
// @Failure 404 {object} models.ErrorResponse
// @Router /families/{familyId} [get]
func (s *Server) GetFamily(c *fiber.Ctx) error {
	familyID, ok := param(c, "familyId")
	if !ok {
		return nil
	}
	family, err := s.membershipService.GetFamily(c.UserContext(), familyID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(family)
}

// JoinFamily handles POST /api/families/:familyId/join
// @Summary Join family
// @Description Moves the caller into the family and counts one more member. Joining again counts again.
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {object} models.Family
// @Failure 404 {object} models.ErrorResponse
// @Router /families/{familyId}/join [post]
func (s *Server) JoinFamily(c *fiber.Ctx) error {
	familyID, ok := param(c, "familyId")
	if !ok {
		return nil
	}
	family, err := s.membershipService.JoinFamily(c.UserContext(), userID(c), familyID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(family)
}

// GetFamilyMembers handles GET /api/families/:familyId/members
// @Summary List members
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/members [get]
func (s *Server) GetFamilyMembers(c *fiber.Ctx) error {
	members, err := s.membershipService.ListMembers(c.UserContext(), c.Params("familyId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(members)
}

// GetFamilyAdmins handles GET /api/families/:familyId/admins
// @Summary List admins
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {array} models.User
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/admins [get]
func (s *Server) GetFamilyAdmins(c *fiber.Ctx) error {
	admins, err := s.membershipService.ListAdmins(c.UserContext(), c.Params("familyId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(admins)
}

// GetFamilyStats handles GET /api/families/:familyId/stats
// @Summary Family statistics
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {object} models.FamilyStats
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/stats [get]
func (s *Server) GetFamilyStats(c *fiber.Ctx) error {
	stats, err := s.membershipService.Stats(c.UserContext(), c.Params("familyId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(stats)
}

// UpdateFamily handles PUT /api/families/:familyId
// @Summary Update family info
// @Description Family admins may change the name, description and image URL
// @Tags families
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param request body updateFamilyRequest true "Fields to change"
// @Success 200 {object} models.Family
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId} [put]
func (s *Server) UpdateFamily(c *fiber.Ctx) error {
	var req updateFamilyRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	family, err := s.membershipService.UpdateFamilyInfo(c.UserContext(), c.Params("familyId"), service.UpdateFamilyInput{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(family)
}

// PromoteMember handles POST /api/families/:familyId/members/:userId/promote
// @Summary Promote member to admin
// @Description A family has at most two admins
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /families/{familyId}/members/{userId}/promote [post]
func (s *Server) PromoteMember(c *fiber.Ctx) error {
	return s.changeMember(c, s.membershipService.Promote)
}

// DemoteMember handles POST /api/families/:familyId/members/:userId/demote
// @Summary Demote admin to member
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /families/{familyId}/members/{userId}/demote [post]
func (s *Server) DemoteMember(c *fiber.Ctx) error {
	return s.changeMember(c, s.membershipService.Demote)
}

// RemoveMember handles DELETE /api/families/:familyId/members/:userId
// @Summary Remove member from family
// @Description Clears the member's family. The member count is not decremented.
// @Tags families
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param userId path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /families/{familyId}/members/{userId} [delete]
func (s *Server) RemoveMember(c *fiber.Ctx) error {
	return s.changeMember(c, s.membershipService.RemoveMember)
}

// changeMember applies op to a member of the :familyId family and answers
// with the member's updated profile.
func (s *Server) changeMember(c *fiber.Ctx, op func(ctx context.Context, userID, familyID string) error) error {
	familyID := c.Params("familyId")
	targetID, ok := param(c, "userId")
	if !ok {
		return nil
	}

	ctx := c.UserContext()
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !target.BelongsTo(familyID) {
		return models.RespondWithAppError(c, models.NewNotFoundError("Family member", targetID))
	}

	if err := op(ctx, targetID, familyID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	updated, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(updated)
}
