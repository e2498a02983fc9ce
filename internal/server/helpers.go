package server

import (
	"strings"

	"faithfulcity/internal/middleware"
	"faithfulcity/internal/models"

	"github.com/gofiber/fiber/v2"
)

const currentUserKey = "currentUser"

// userID returns the authenticated principal set by the auth middleware.
func userID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}

// currentUser loads the caller's profile once per request.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	if u, ok := c.Locals(currentUserKey).(*models.User); ok {
		return u, nil
	}
	id := userID(c)
	if id == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	u, err := s.identityService.CurrentProfile(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	c.Locals(currentUserKey, u)
	return u, nil
}

// param returns a trimmed route parameter, answering 400 when it is empty.
func param(c *fiber.Ctx, name string) (string, bool) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+name))
		return "", false
	}
	return v, true
}

// requireFamily admits the caller when allow accepts them for the :familyId route.
func (s *Server) requireFamily(c *fiber.Ctx, allow func(*models.User, string) bool, message string) error {
	familyID, ok := param(c, "familyId")
	if !ok {
		return nil
	}
	u, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if !allow(u, familyID) {
		return models.RespondWithError(c, fiber.StatusForbidden, models.NewForbiddenError(message))
	}
	c.SetUserContext(middleware.WithFamily(c.UserContext(), familyID))
	return c.Next()
}

// requireMember admits members of the :familyId family.
func (s *Server) requireMember(c *fiber.Ctx) error {
	return s.requireFamily(c, (*models.User).BelongsTo, "You are not a member of this family")
}

// requireAdmin admits admins of the :familyId family.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	return s.requireFamily(c, (*models.User).IsAdminOf, "Family admin access required")
}

// authorizeFamily is requireMember for resources addressed by their own id.
func (s *Server) authorizeFamily(c *fiber.Ctx, familyID string) (*models.User, error) {
	u, err := s.currentUser(c)
	if err != nil {
		return nil, err
	}
	if !u.BelongsTo(familyID) {
		return nil, models.NewForbiddenError("You are not a member of this family")
	}
	c.SetUserContext(middleware.WithFamily(c.UserContext(), familyID))
	return u, nil
}
