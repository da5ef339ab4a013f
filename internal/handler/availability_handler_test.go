package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/middleware"
	"github.com/skyward/fts-api/internal/models"
)

type fakeAvailabilitySrv struct {
	slots    []models.Slot
	slot     *models.Slot
	view     *dto.StudentAvailabilityView
	err      error
	lastPost struct {
		studentID string
		req       dto.PostSlotRequest
	}
	deleted string
}

func (f *fakeAvailabilitySrv) List(context.Context, models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	return f.slots, nil, f.err
}

func (f *fakeAvailabilitySrv) View(context.Context, string) (*dto.StudentAvailabilityView, error) {
	return f.view, f.err
}

func (f *fakeAvailabilitySrv) PostSlot(_ context.Context, studentID string, req dto.PostSlotRequest) (*models.Slot, error) {
	f.lastPost.studentID = studentID
	f.lastPost.req = req
	return f.slot, f.err
}

func (f *fakeAvailabilitySrv) DeleteSlot(_ context.Context, _, slotID string) error {
	f.deleted = slotID
	return f.err
}

type fakeStudentReader struct {
	student *models.Student
	err     error
}

func (f *fakeStudentReader) Get(context.Context, string) (*models.Student, error) {
	return f.student, f.err
}

func TestAvailabilityHandlerViewRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAvailabilityHandler(&fakeAvailabilitySrv{}, &fakeStudentReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/stu-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.View(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAvailabilityHandlerStudentCannotTouchOthers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	students := &fakeStudentReader{student: &models.Student{ID: "stu-2", UserID: "user-2"}}
	handler := NewAvailabilityHandler(&fakeAvailabilitySrv{}, students)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/stu-2/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.View(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAvailabilityHandlerStaffBypassesOwnership(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAvailabilitySrv{view: &dto.StudentAvailabilityView{StudentID: "stu-1", PostingAllowed: true}}
	handler := NewAvailabilityHandler(service, &fakeStudentReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/stu-1/availability", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	handler.View(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAvailabilityHandlerPostSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAvailabilitySrv{slot: &models.Slot{ID: "slot-1", Status: models.SlotStatusPosted}}
	students := &fakeStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	handler := NewAvailabilityHandler(service, students)

	body := `{"start_time":"2025-06-18T09:00:00Z","end_time":"2025-06-18T11:00:00Z"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students/stu-1/slots", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.PostSlot(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "stu-1", service.lastPost.studentID)
	assert.Equal(t, time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC), service.lastPost.req.StartTime)
}

func TestAvailabilityHandlerDeleteSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAvailabilitySrv{}
	handler := NewAvailabilityHandler(service, &fakeStudentReader{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/students/stu-1/slots/slot-9", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "slotId", Value: "slot-9"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.DeleteSlot(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "slot-9", service.deleted)
}
