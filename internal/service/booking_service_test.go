package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type stubBookingRepo struct {
	byID        map[string]*models.Booking
	overlapping *models.Booking
	exerciseHit bool
	created     []*models.Booking
	statuses    map[string]models.BookingStatus
}

func newStubBookingRepo() *stubBookingRepo {
	return &stubBookingRepo{byID: map[string]*models.Booking{}, statuses: map[string]models.BookingStatus{}}
}

func (s *stubBookingRepo) List(_ context.Context, _ models.BookingFilter) ([]models.BookingDetail, int, error) {
	return nil, 0, nil
}

func (s *stubBookingRepo) FindByID(_ context.Context, id string) (*models.Booking, error) {
	b, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

func (s *stubBookingRepo) FindActiveOverlapping(_ context.Context, _ sqlx.ExtContext, _, _ string, _ models.TimeWindow) (*models.Booking, error) {
	return s.overlapping, nil
}

func (s *stubBookingRepo) ExistsActiveForExercise(_ context.Context, _ sqlx.ExtContext, _, _ string) (bool, error) {
	return s.exerciseHit, nil
}

func (s *stubBookingRepo) Create(_ context.Context, _ sqlx.ExtContext, booking *models.Booking) error {
	s.created = append(s.created, booking)
	return nil
}

func (s *stubBookingRepo) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.BookingStatus) error {
	s.statuses[id] = status
	return nil
}

type stubSlotRepo struct {
	slots      map[string]*models.Slot
	claimFails bool
	booked     []string
	released   []string
}

func newStubSlotRepo() *stubSlotRepo {
	return &stubSlotRepo{slots: map[string]*models.Slot{}}
}

func (s *stubSlotRepo) FindByID(_ context.Context, id string) (*models.Slot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return slot, nil
}

func (s *stubSlotRepo) MarkBooked(_ context.Context, _ sqlx.ExtContext, id string) error {
	if s.claimFails {
		return sql.ErrNoRows
	}
	s.booked = append(s.booked, id)
	return nil
}

func (s *stubSlotRepo) Release(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.released = append(s.released, id)
	return nil
}

type stubStudentCounters struct {
	lastBooked map[string]time.Time
	slotDelta  map[string]int
	noShows    map[string]int
}

func newStubStudentCounters() *stubStudentCounters {
	return &stubStudentCounters{
		lastBooked: map[string]time.Time{},
		slotDelta:  map[string]int{},
		noShows:    map[string]int{},
	}
}

func (s *stubStudentCounters) FindByID(_ context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, Active: true}, nil
}

func (s *stubStudentCounters) TouchLastBooked(_ context.Context, _ sqlx.ExtContext, id string, bookedAt time.Time) error {
	s.lastBooked[id] = bookedAt
	return nil
}

func (s *stubStudentCounters) AdjustActiveSlotCount(_ context.Context, _ sqlx.ExtContext, id string, delta int) error {
	s.slotDelta[id] += delta
	return nil
}

func (s *stubStudentCounters) IncrementNoShow(_ context.Context, _ sqlx.ExtContext, id string) error {
	s.noShows[id]++
	return nil
}

type stubNotifier struct {
	created   []models.Booking
	cancelled []models.Booking
}

func (s *stubNotifier) BookingCreated(b models.Booking)   { s.created = append(s.created, b) }
func (s *stubNotifier) BookingCancelled(b models.Booking) { s.cancelled = append(s.cancelled, b) }

func newTxProvider(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func postedSlot() *models.Slot {
	start := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)
	return &models.Slot{
		ID:        uuidSlot,
		CourseID:  "course-1",
		StudentID: "stu-1",
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Status:    models.SlotStatusPosted,
	}
}

func TestBookingCreateSuccess(t *testing.T) {
	bookings := newStubBookingRepo()
	slots := newStubSlotRepo()
	slots.slots[uuidSlot] = postedSlot()
	students := newStubStudentCounters()
	notifier := &stubNotifier{}
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewBookingService(bookings, slots, students, db, notifier, nil, nil)
	booked := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return booked }

	booking, err := svc.Create(context.Background(), uuidInstructor, dto.CreateBookingRequest{
		SlotID:     uuidSlot,
		ExerciseID: uuidExercise,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusTentative, booking.Status)
	assert.Equal(t, "stu-1", booking.StudentID)
	assert.Equal(t, []string{uuidSlot}, slots.booked)
	assert.Equal(t, booked, students.lastBooked["stu-1"])
	assert.Equal(t, -1, students.slotDelta["stu-1"])
	require.Len(t, notifier.created, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCreateOverlapReturnsConflictValue(t *testing.T) {
	bookings := newStubBookingRepo()
	bookings.overlapping = &models.Booking{ID: "existing"}
	slots := newStubSlotRepo()
	slots.slots[uuidSlot] = postedSlot()
	db, _ := newTxProvider(t)

	svc := NewBookingService(bookings, slots, newStubStudentCounters(), db, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuidInstructor, dto.CreateBookingRequest{
		SlotID:     uuidSlot,
		ExerciseID: uuidExercise,
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrBookingConflict.Code, appErr.Code)
	assert.Empty(t, bookings.created, "no booking is written on conflict")
}

func TestBookingCreateExerciseAlreadyActive(t *testing.T) {
	bookings := newStubBookingRepo()
	bookings.exerciseHit = true
	slots := newStubSlotRepo()
	slots.slots[uuidSlot] = postedSlot()
	db, _ := newTxProvider(t)

	svc := NewBookingService(bookings, slots, newStubStudentCounters(), db, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuidInstructor, dto.CreateBookingRequest{
		SlotID:     uuidSlot,
		ExerciseID: uuidExercise,
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrBookingConflict.Code, appErr.Code)
}

func TestBookingCreateLosesSlotRace(t *testing.T) {
	bookings := newStubBookingRepo()
	slots := newStubSlotRepo()
	slots.slots[uuidSlot] = postedSlot()
	slots.claimFails = true
	students := newStubStudentCounters()
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	svc := NewBookingService(bookings, slots, students, db, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuidInstructor, dto.CreateBookingRequest{
		SlotID:     uuidSlot,
		ExerciseID: uuidExercise,
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrBookingConflict.Code, appErr.Code)
	assert.Empty(t, bookings.created)
	assert.Zero(t, students.slotDelta["stu-1"], "counters untouched when the claim loses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCreateSlotNotPosted(t *testing.T) {
	slots := newStubSlotRepo()
	slot := postedSlot()
	slot.Status = models.SlotStatusBooked
	slots.slots[uuidSlot] = slot
	db, _ := newTxProvider(t)

	svc := NewBookingService(newStubBookingRepo(), slots, newStubStudentCounters(), db, nil, nil, nil)

	_, err := svc.Create(context.Background(), uuidInstructor, dto.CreateBookingRequest{
		SlotID:     uuidSlot,
		ExerciseID: uuidExercise,
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrBookingConflict.Code, appErr.Code)
}

func TestBookingCancelNoShow(t *testing.T) {
	bookings := newStubBookingRepo()
	bookings.byID["bk-1"] = &models.Booking{
		ID:        "bk-1",
		StudentID: "stu-1",
		SlotID:    "slot-1",
		Status:    models.BookingStatusConfirmed,
	}
	slots := newStubSlotRepo()
	students := newStubStudentCounters()
	notifier := &stubNotifier{}
	db, mock := newTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	svc := NewBookingService(bookings, slots, students, db, notifier, nil, nil)

	booking, err := svc.Cancel(context.Background(), "bk-1", dto.CancelBookingRequest{NoShow: true})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusNoShow, booking.Status)
	assert.Equal(t, models.BookingStatusNoShow, bookings.statuses["bk-1"])
	assert.Equal(t, []string{"slot-1"}, slots.released)
	assert.Equal(t, 1, students.slotDelta["stu-1"])
	assert.Equal(t, 1, students.noShows["stu-1"])
	require.Len(t, notifier.cancelled, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCancelInactive(t *testing.T) {
	bookings := newStubBookingRepo()
	bookings.byID["bk-1"] = &models.Booking{ID: "bk-1", Status: models.BookingStatusCancelled}
	db, _ := newTxProvider(t)

	svc := NewBookingService(bookings, newStubSlotRepo(), newStubStudentCounters(), db, nil, nil, nil)

	_, err := svc.Cancel(context.Background(), "bk-1", dto.CancelBookingRequest{})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestBookingConfirm(t *testing.T) {
	bookings := newStubBookingRepo()
	bookings.byID["bk-1"] = &models.Booking{ID: "bk-1", Status: models.BookingStatusTentative}
	db, _ := newTxProvider(t)

	svc := NewBookingService(bookings, newStubSlotRepo(), newStubStudentCounters(), db, nil, nil, nil)

	booking, err := svc.Confirm(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)

	_, err = svc.Confirm(context.Background(), "bk-1")
	assert.Error(t, err, "already confirmed bookings cannot be confirmed again")
}

func TestCheckConflictValidatesWindow(t *testing.T) {
	db, _ := newTxProvider(t)
	svc := NewBookingService(newStubBookingRepo(), newStubSlotRepo(), newStubStudentCounters(), db, nil, nil, nil)

	now := time.Now().UTC()
	_, err := svc.CheckConflict(context.Background(), "ins-1", "stu-1", models.TimeWindow{Start: now, End: now})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

const (
	uuidInstructor = "6f1d4f57-5d33-4f3b-9a44-1f0a4f4f9a01"
	uuidExercise   = "b0c9f1d2-3e4a-4b5c-8d6e-7f8091a2b3c4"
	uuidSlot       = "3d2a1b4c-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
)
