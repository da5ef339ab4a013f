package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/response"
)

type availabilityService interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error)
	View(ctx context.Context, studentID string) (*dto.StudentAvailabilityView, error)
	PostSlot(ctx context.Context, studentID string, req dto.PostSlotRequest) (*models.Slot, error)
	DeleteSlot(ctx context.Context, studentID, slotID string) error
}

type studentReader interface {
	Get(ctx context.Context, id string) (*models.Student, error)
}

// AvailabilityHandler exposes the student-facing slot endpoints.
type AvailabilityHandler struct {
	availability availabilityService
	students     studentReader
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityService, students studentReader) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, students: students}
}

// resolveStudent enforces that students only touch their own snapshot while
// staff roles may act on any student id.
func (h *AvailabilityHandler) resolveStudent(c *gin.Context, studentID string) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	if claims.Role != models.RoleStudent {
		return studentID, true
	}
	student, err := h.students.Get(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	if student.UserID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own availability"))
		return "", false
	}
	return studentID, true
}

// List godoc
// @Summary List availability slots
// @Tags Availability
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param studentId query string false "Filter by student"
// @Param week query int false "ISO week"
// @Param year query int false "ISO year"
// @Param status query string false "POSTED or BOOKED"
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	var filter models.SlotFilter
	filter.CourseID = c.Query("courseId")
	filter.StudentID = c.Query("studentId")
	if week, err := strconv.Atoi(c.Query("week")); err == nil {
		filter.Week = week
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	filter.Status = models.SlotStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	slots, pagination, err := h.availability.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// View godoc
// @Summary Student availability page: posting gate plus posted slots
// @Tags Availability
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/availability [get]
func (h *AvailabilityHandler) View(c *gin.Context) {
	studentID, ok := h.resolveStudent(c, c.Param("id"))
	if !ok {
		return
	}
	view, err := h.availability.View(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// PostSlot godoc
// @Summary Post a new availability slot
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.PostSlotRequest true "Slot window"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/slots [post]
func (h *AvailabilityHandler) PostSlot(c *gin.Context) {
	studentID, ok := h.resolveStudent(c, c.Param("id"))
	if !ok {
		return
	}
	var req dto.PostSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	slot, err := h.availability.PostSlot(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// DeleteSlot godoc
// @Summary Withdraw a posted slot
// @Tags Availability
// @Param id path string true "Student ID"
// @Param slotId path string true "Slot ID"
// @Success 204
// @Router /students/{id}/slots/{slotId} [delete]
func (h *AvailabilityHandler) DeleteSlot(c *gin.Context) {
	studentID, ok := h.resolveStudent(c, c.Param("id"))
	if !ok {
		return
	}
	if err := h.availability.DeleteSlot(c.Request.Context(), studentID, c.Param("slotId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
