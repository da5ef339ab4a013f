package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/service"
	appErrors "github.com/skyward/fts-api/pkg/errors"
	"github.com/skyward/fts-api/pkg/response"
)

type dashboardService interface {
	InstructorDashboard(ctx context.Context, courseID string) (*dto.InstructorDashboardResponse, bool, error)
}

// DashboardHandler exposes the instructor booking queue.
type DashboardHandler struct {
	dashboards dashboardService
	metrics    *service.MetricsService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards dashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, metrics: metrics}
}

// Instructor godoc
// @Summary Priority-ordered student queue for a course
// @Tags Dashboard
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/courses/{courseId} [get]
func (h *DashboardHandler) Instructor(c *gin.Context) {
	courseID := c.Param("courseId")
	if courseID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courseId is required"))
		return
	}

	started := time.Now()
	dashboard, cached, err := h.dashboards.InstructorDashboard(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		if cached {
			h.metrics.CacheHit()
		} else {
			h.metrics.CacheMiss()
			// a miss means the snapshot was rebuilt from the database
			h.metrics.ObserveDBQuery(time.Since(started))
		}
	}
	response.JSON(c, http.StatusOK, dashboard, nil, map[string]interface{}{"cache_hit": cached})
}
