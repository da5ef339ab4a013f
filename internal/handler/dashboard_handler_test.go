package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/skyward/fts-api/internal/dto"
)

type fakeDashboardSrv struct {
	resp       *dto.InstructorDashboardResponse
	err        error
	hit        bool
	lastCourse string
}

func (f *fakeDashboardSrv) InstructorDashboard(_ context.Context, courseID string) (*dto.InstructorDashboardResponse, bool, error) {
	f.lastCourse = courseID
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerRequiresCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/courses/", nil)

	handler.Instructor(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		resp: &dto.InstructorDashboardResponse{CourseID: "course-1", GeneratedAt: time.Now()},
		hit:  true,
	}
	handler := NewDashboardHandler(service, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/courses/course-1", nil)
	c.Params = gin.Params{{Key: "courseId", Value: "course-1"}}

	handler.Instructor(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "course-1", service.lastCourse)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, "course-1", envelope.Data["course_id"])
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *envelopeError         `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
