package server

import (
	"faithfulcity/internal/models"
	"faithfulcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createNotificationRequest struct {
	Title   string                  `json:"title"`
	Message string                  `json:"message"`
	Type    models.NotificationType `json:"type"`
}

// GetFamilyNotifications handles GET /api/families/:familyId/notifications
// @Summary List family notifications
// @Description The 10 newest notifications of the family
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {array} models.Notification
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/notifications [get]
func (s *Server) GetFamilyNotifications(c *fiber.Ctx) error {
	items, err := s.notificationService.ListByFamily(c.UserContext(), c.Params("familyId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(items)
}

// CreateNotification handles POST /api/families/:familyId/notifications
// @Summary Create notification
// @Description Family admins post notifications. Announcements are also emailed when email is configured.
// @Tags notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param request body createNotificationRequest true "Notification"
// @Success 201 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/notifications [post]
func (s *Server) CreateNotification(c *fiber.Ctx) error {
	var req createNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	n, err := s.notificationService.Create(c.UserContext(), service.CreateNotificationInput{
		FamilyID: c.Params("familyId"),
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}

// MarkNotificationRead handles POST /api/notifications/:notificationId/read
// @Summary Mark notification read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param notificationId path string true "Notification ID"
// @Success 200 {object} models.Notification
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /notifications/{notificationId}/read [post]
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, ok := param(c, "notificationId")
	if !ok {
		return nil
	}
	ctx := c.UserContext()
	n, err := s.notificationService.Get(ctx, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	if _, err := s.authorizeFamily(c, n.FamilyID); err != nil {
		return models.RespondWithAppError(c, err)
	}

	n, err = s.notificationService.MarkRead(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(n)
}
