package server

import (
	"faithfulcity/internal/models"

	"github.com/gofiber/fiber/v2"
)

type gradeQuizRequest struct {
	// One option index per question; -1 when the timer ran out.
	Answers []int `json:"answers"`
}

// GetQuiz handles GET /api/quiz
// @Summary Bible quiz questions
// @Description Questions without their answers, plus the per-question time limit
// @Tags quiz
// @Produce json
// @Success 200 {object} quiz.Bank
// @Router /quiz [get]
func (s *Server) GetQuiz(c *fiber.Ctx) error {
	return c.JSON(s.quiz.Public())
}

// GradeQuiz handles POST /api/quiz/grade
// @Summary Grade a quiz attempt
// @Tags quiz
// @Accept json
// @Produce json
// @Param request body gradeQuizRequest true "Answers in question order"
// @Success 200 {object} quiz.Result
// @Failure 400 {object} models.ErrorResponse
// @Router /quiz/grade [post]
func (s *Server) GradeQuiz(c *fiber.Ctx) error {
	var req gradeQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	result, err := s.quiz.Grade(req.Answers)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(result)
}
