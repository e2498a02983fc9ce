package server

import (
	"faithfulcity/internal/models"
	"faithfulcity/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content string          `json:"content"`
	Type    models.PostType `json:"type"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// GetFamilyPosts handles GET /api/families/:familyId/posts
// @Summary List family posts
// @Description The 20 newest posts of the family with their comments
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Success 200 {array} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/posts [get]
func (s *Server) GetFamilyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListByFamily(c.UserContext(), c.Params("familyId"))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/families/:familyId/posts
// @Summary Create post
// @Description Announcements also notify the family
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param familyId path string true "Family ID"
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /families/{familyId}/posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		FamilyID:   c.Params("familyId"),
		AuthorID:   user.ID,
		AuthorName: user.DisplayName,
		Content:    req.Content,
		Type:       req.Type,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /api/posts/:postId
// @Summary Get post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, ok := s.loadPost(c)
	if !ok {
		return nil
	}
	return c.JSON(post)
}

// LikePost handles POST /api/posts/:postId/like
// @Summary Toggle like
// @Description Likes the post, or unlikes it when the caller already liked it
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	post, ok := s.loadPost(c)
	if !ok {
		return nil
	}
	updated, err := s.postService.ToggleLike(c.UserContext(), post.ID, userID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(updated)
}

// CreateComment handles POST /api/posts/:postId/comments
// @Summary Comment on post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path string true "Post ID"
// @Param request body createCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{postId}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	post, ok := s.loadPost(c)
	if !ok {
		return nil
	}
	user, err := s.currentUser(c)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	comment, err := s.postService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:     post.ID,
		AuthorID:   user.ID,
		AuthorName: user.DisplayName,
		Content:    req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// loadPost fetches :postId and checks the caller belongs to its family. On
// failure the response is already written.
func (s *Server) loadPost(c *fiber.Ctx) (*models.Post, bool) {
	postID, ok := param(c, "postId")
	if !ok {
		return nil, false
	}
	post, err := s.postService.Get(c.UserContext(), postID)
	if err != nil {
		_ = models.RespondWithAppError(c, err)
		return nil, false
	}
	if _, err := s.authorizeFamily(c, post.FamilyID); err != nil {
		_ = models.RespondWithAppError(c, err)
		return nil, false
	}
	return post, true
}
