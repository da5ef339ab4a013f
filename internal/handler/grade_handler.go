package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/response"
)

type gradeService interface {
	ListExercises(ctx context.Context, courseID string) ([]models.Exercise, error)
	StudentGrades(ctx context.Context, courseID, studentID string) ([]models.Grade, error)
	RecordGrade(ctx context.Context, instructorID string, req dto.RecordGradeRequest) (*models.Grade, error)
	Certify(ctx context.Context, studentID string) (*models.Student, error)
}

// GradeHandler exposes grading and certification endpoints.
type GradeHandler struct {
	grades gradeService
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// ListExercises godoc
// @Summary List a course's exercise sequence
// @Tags Grades
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/exercises [get]
func (h *GradeHandler) ListExercises(c *gin.Context) {
	exercises, err := h.grades.ListExercises(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exercises, nil)
}

// StudentGrades godoc
// @Summary List a student's grades in a course
// @Tags Grades
// @Produce json
// @Param courseId query string true "Course ID"
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *GradeHandler) StudentGrades(c *gin.Context) {
	grades, err := h.grades.StudentGrades(c.Request.Context(), c.Query("courseId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Record godoc
// @Summary Record a session grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	grade, err := h.grades.RecordGrade(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, grade)
}

// Certify godoc
// @Summary Certify a student who passed the graduation exercise
// @Tags Grades
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/certify [post]
func (h *GradeHandler) Certify(c *gin.Context) {
	student, err := h.grades.Certify(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
