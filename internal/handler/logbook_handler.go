package handler

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/response"
)

type logbookService interface {
	List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntry, *models.Pagination, error)
	TotalTime(ctx context.Context, courseID, studentID string) (string, error)
	Export(ctx context.Context, courseID, studentID, format string) (*dto.LogbookExportResponse, error)
	OpenDownload(token string) (*os.File, error)
}

// LogbookHandler exposes logbook reads, exports and signed downloads.
type LogbookHandler struct {
	logbook logbookService
}

// NewLogbookHandler constructs LogbookHandler.
func NewLogbookHandler(logbook logbookService) *LogbookHandler {
	return &LogbookHandler{logbook: logbook}
}

// List godoc
// @Summary List logbook entries
// @Tags Logbook
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param studentId query string false "Filter by student"
// @Param from query string false "From date (RFC3339)"
// @Param to query string false "To date (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /logbook [get]
func (h *LogbookHandler) List(c *gin.Context) {
	var filter models.LogbookFilter
	filter.CourseID = c.Query("courseId")
	filter.StudentID = c.Query("studentId")
	if raw := c.Query("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &ts
		}
	}
	if raw := c.Query("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.logbook.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := map[string]interface{}{}
	if filter.CourseID != "" && filter.StudentID != "" {
		if total, err := h.logbook.TotalTime(c.Request.Context(), filter.CourseID, filter.StudentID); err == nil {
			meta["total_time"] = total
		}
	}
	response.JSON(c, http.StatusOK, entries, pagination, meta)
}

// Export godoc
// @Summary Export a student's logbook as CSV or PDF
// @Tags Logbook
// @Produce json
// @Param courseId query string true "Course ID"
// @Param studentId query string true "Student ID"
// @Param format query string true "csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /logbook/export [post]
func (h *LogbookHandler) Export(c *gin.Context) {
	result, err := h.logbook.Export(c.Request.Context(), c.Query("courseId"), c.Query("studentId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download an exported logbook file via signed token
// @Tags Logbook
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /logbook/downloads/{token} [get]
func (h *LogbookHandler) Download(c *gin.Context) {
	file, err := h.logbook.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(info.Name()))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
