package server

import (
	"strings"

	"faithfulcity/internal/models"
	"faithfulcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFamilyMedia handles GET /api/families/:familyId/media
// @Summary List family media
// @Description All media of the family, newest first
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param type query string false "photo or audio"
// @Success 200 {array} models.Media
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/media [get]
func (s *Server) GetFamilyMedia(c *fiber.Ctx) error {
	mediaType := models.MediaType(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	items, err := s.mediaService.List(c.UserContext(), c.Params("familyId"), mediaType)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(items)
}

// UploadMedia handles POST /api/families/:familyId/media
// @Summary Upload media
// @Description Stores an image or audio file and records its metadata
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param file formData file true "Image or audio file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param tags formData string false "Comma separated tags"
// @Success 201 {object} models.Media
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /families/{familyId}/media [post]
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}
	defer func() { _ = file.Close() }()

	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	media, err := s.mediaService.Upload(c.UserContext(), service.UploadMediaInput{
		FamilyID:    c.Params("familyId"),
		UploadedBy:  user.ID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Tags:        splitTags(c.FormValue("tags")),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(media)
}

// GetMedia handles GET /api/media/:mediaId
// @Summary Get media
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param mediaId path string true "Media ID"
// @Success 200 {object} models.Media
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /media/{mediaId} [get]
func (s *Server) GetMedia(c *fiber.Ctx) error {
	media, _, ok := s.loadMedia(c)
	if !ok {
		return nil
	}
	return c.JSON(media)
}

// DeleteMedia handles DELETE /api/media/:mediaId
// @Summary Delete media
// @Description Removes the stored file, then the record. Family admins and the uploader may delete.
// @Tags media
// @Produce json
// @Security BearerAuth
// @Param mediaId path string true "Media ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /media/{mediaId} [delete]
func (s *Server) DeleteMedia(c *fiber.Ctx) error {
	media, user, ok := s.loadMedia(c)
	if !ok {
		return nil
	}
	if media.UploadedBy != user.ID && !user.IsAdminOf(media.FamilyID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Only the uploader or a family admin can delete this media"))
	}
	if err := s.mediaService.Delete(c.UserContext(), media.ID); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) loadMedia(c *fiber.Ctx) (*models.Media, *models.User, bool) {
	mediaID, ok := param(c, "mediaId")
	if !ok {
		return nil, nil, false
	}
	media, err := s.mediaService.Get(c.UserContext(), mediaID)
	if err != nil {
		_ = models.RespondWithAppError(c, err)
		return nil, nil, false
	}
	user, err := s.authorizeFamily(c, media.FamilyID)
	if err != nil {
		_ = models.RespondWithAppError(c, err)
		return nil, nil, false
	}
	return media, user, true
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
