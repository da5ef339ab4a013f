package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/middleware"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type fakeBookingSrv struct {
	booking    *models.Booking
	err        error
	conflict   bool
	lastCreate struct {
		instructorID string
		req          dto.CreateBookingRequest
	}
	lastCancel dto.CancelBookingRequest
}

func (f *fakeBookingSrv) List(context.Context, models.BookingFilter) ([]models.BookingDetail, *models.Pagination, error) {
	return nil, nil, f.err
}

func (f *fakeBookingSrv) Get(context.Context, string) (*models.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookingSrv) Create(_ context.Context, instructorID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	f.lastCreate.instructorID = instructorID
	f.lastCreate.req = req
	return f.booking, f.err
}

func (f *fakeBookingSrv) Confirm(context.Context, string) (*models.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookingSrv) Cancel(_ context.Context, _ string, req dto.CancelBookingRequest) (*models.Booking, error) {
	f.lastCancel = req
	return f.booking, f.err
}

func (f *fakeBookingSrv) CheckConflict(context.Context, string, string, models.TimeWindow) (bool, error) {
	return f.conflict, f.err
}

func TestBookingHandlerCreateRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&fakeBookingSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeBookingSrv{booking: &models.Booking{ID: "booking-1", Status: models.BookingStatusTentative}}
	handler := NewBookingHandler(service, nil)

	body := `{"slot_id":"8f3c2a4e-1b5d-4c6f-9a7e-2d4f6a8c0e11","exercise_id":"b0c9f1d2-3e4a-4b5c-8d6e-7f8091a2b3c4"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "instructor-1", service.lastCreate.instructorID)
	assert.Equal(t, "8f3c2a4e-1b5d-4c6f-9a7e-2d4f6a8c0e11", service.lastCreate.req.SlotID)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, "booking-1", envelope.Data["id"])
}

func TestBookingHandlerCreateConflictEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeBookingSrv{err: appErrors.ErrBookingConflict}
	handler := NewBookingHandler(service, nil)

	body := `{"slot_id":"8f3c2a4e-1b5d-4c6f-9a7e-2d4f6a8c0e11","exercise_id":"b0c9f1d2-3e4a-4b5c-8d6e-7f8091a2b3c4"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	handler.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	if assert.NotNil(t, envelope.Error) {
		assert.Equal(t, "BOOKING_CONFLICT", envelope.Error.Code)
	}
}

func TestBookingHandlerCancelPassesNoShow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeBookingSrv{booking: &models.Booking{ID: "booking-1", Status: models.BookingStatusNoShow}}
	handler := NewBookingHandler(service, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookings/booking-1/cancel", strings.NewReader(`{"no_show":true}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "booking-1"}}

	handler.Cancel(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, service.lastCancel.NoShow)
}

func TestBookingHandlerCheckConflictRejectsBadWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&fakeBookingSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/bookings/conflict?studentId=stu-1&start=not-a-time&end=2025-06-11T10:00:00Z", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	handler.CheckConflict(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerCheckConflictReportsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBookingHandler(&fakeBookingSrv{conflict: true}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet,
		"/bookings/conflict?studentId=stu-1&start=2025-06-11T09:00:00Z&end=2025-06-11T10:00:00Z", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "instructor-1", Role: models.RoleInstructor})

	handler.CheckConflict(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Data["conflict"])
}
