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

type stubAvailabilitySlots struct {
	listed    []models.Slot
	byID      map[string]*models.Slot
	duplicate bool
	created   []*models.Slot
	deleted   []string
	deleteErr error
}

func newStubAvailabilitySlots() *stubAvailabilitySlots {
	return &stubAvailabilitySlots{byID: map[string]*models.Slot{}}
}

func (s *stubAvailabilitySlots) List(_ context.Context, _ models.SlotFilter) ([]models.Slot, int, error) {
	return s.listed, len(s.listed), nil
}

func (s *stubAvailabilitySlots) FindByID(_ context.Context, id string) (*models.Slot, error) {
	slot, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return slot, nil
}

func (s *stubAvailabilitySlots) CountActiveByStudent(_ context.Context, _, _ string) (int, error) {
	return len(s.listed), nil
}

func (s *stubAvailabilitySlots) ExistsDuplicate(_ context.Context, _, _ string, _, _ time.Time) (bool, error) {
	return s.duplicate, nil
}

func (s *stubAvailabilitySlots) Create(_ context.Context, _ sqlx.ExtContext, slot *models.Slot) error {
	s.created = append(s.created, slot)
	return nil
}

func (s *stubAvailabilitySlots) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type stubAvailabilityStudents struct {
	student   *models.Student
	slotDelta map[string]int
}

func (s *stubAvailabilityStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	if s.student == nil || s.student.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func (s *stubAvailabilityStudents) FindByCourseAndUser(_ context.Context, _, _ string) (*models.Student, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

func (s *stubAvailabilityStudents) AdjustActiveSlotCount(_ context.Context, _ sqlx.ExtContext, id string, delta int) error {
	if s.slotDelta == nil {
		s.slotDelta = map[string]int{}
	}
	s.slotDelta[id] += delta
	return nil
}

type stubPolicies struct {
	policy *models.ProgressionPolicy
}

func (s *stubPolicies) FindByCourse(_ context.Context, courseID string) (*models.ProgressionPolicy, error) {
	if s.policy != nil {
		return s.policy, nil
	}
	p := models.DefaultProgressionPolicy(courseID)
	return &p, nil
}

type stubSlotBookings struct {
	active *models.Booking
}

func (s *stubSlotBookings) FindActiveBySlot(_ context.Context, _ string) (*models.Booking, error) {
	return s.active, nil
}

func newAvailabilityService(t *testing.T, slots *stubAvailabilitySlots, students *stubAvailabilityStudents, policies *stubPolicies, bookings *stubSlotBookings) (*AvailabilityService, sqlmock.Sqlmock) {
	t.Helper()
	progression := NewProgressionService(&stubGradeProvider{}, nil)
	db, mock := newTxProvider(t)
	return NewAvailabilityService(slots, students, policies, bookings, progression, db, nil, nil), mock
}

func TestPostSlotInsideWaitPeriod(t *testing.T) {
	slots := newStubAvailabilitySlots()
	students := &stubAvailabilityStudents{student: testStudent(wednesday.AddDate(0, 0, -2))}

	svc, _ := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	svc.now = func() time.Time { return wednesday }

	_, err := svc.PostSlot(context.Background(), "stu-1", dto.PostSlotRequest{
		StartTime: wednesday.AddDate(0, 0, 10),
		EndTime:   wednesday.AddDate(0, 0, 10).Add(2 * time.Hour),
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPostingWindowClosed.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "2025-06-16", "message names the opening date")
	assert.Empty(t, slots.created)
}

func TestPostSlotSuccess(t *testing.T) {
	slots := newStubAvailabilitySlots()
	student := testStudent(wednesday.AddDate(0, 0, -30))
	students := &stubAvailabilityStudents{student: student}

	svc, mock := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	svc.now = func() time.Time { return wednesday }
	mock.ExpectBegin()
	mock.ExpectCommit()

	start := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)
	slot, err := svc.PostSlot(context.Background(), "stu-1", dto.PostSlotRequest{
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, models.SlotStatusPosted, slot.Status)
	assert.Equal(t, "course-1", slot.CourseID)
	assert.Equal(t, 25, slot.Week)
	assert.Equal(t, 2025, slot.Year)
	assert.Equal(t, 1, students.slotDelta["stu-1"])
	require.Len(t, slots.created, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostSlotDuplicateRejected(t *testing.T) {
	slots := newStubAvailabilitySlots()
	slots.duplicate = true
	students := &stubAvailabilityStudents{student: testStudent(wednesday.AddDate(0, 0, -30))}

	svc, _ := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	svc.now = func() time.Time { return wednesday }

	start := wednesday.AddDate(0, 0, 3)
	_, err := svc.PostSlot(context.Background(), "stu-1", dto.PostSlotRequest{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPostSlotRejectsPastStart(t *testing.T) {
	students := &stubAvailabilityStudents{student: testStudent(wednesday.AddDate(0, 0, -30))}
	svc, _ := newAvailabilityService(t, newStubAvailabilitySlots(), students, &stubPolicies{}, &stubSlotBookings{})
	svc.now = func() time.Time { return wednesday }

	start := wednesday.AddDate(0, 0, -1)
	_, err := svc.PostSlot(context.Background(), "stu-1", dto.PostSlotRequest{
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDeleteSlotBlockedByActiveBooking(t *testing.T) {
	slots := newStubAvailabilitySlots()
	slots.byID["slot-1"] = &models.Slot{ID: "slot-1", StudentID: "stu-1", Status: models.SlotStatusBooked}
	bookings := &stubSlotBookings{active: &models.Booking{ID: "bk-1"}}
	students := &stubAvailabilityStudents{student: testStudent(wednesday)}

	svc, _ := newAvailabilityService(t, slots, students, &stubPolicies{}, bookings)

	err := svc.DeleteSlot(context.Background(), "stu-1", "slot-1")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSlotBooked.Code, appErr.Code)
	assert.Empty(t, slots.deleted)
}

func TestDeleteSlotOwnershipEnforced(t *testing.T) {
	slots := newStubAvailabilitySlots()
	slots.byID["slot-1"] = &models.Slot{ID: "slot-1", StudentID: "stu-other", Status: models.SlotStatusPosted}
	students := &stubAvailabilityStudents{student: testStudent(wednesday)}

	svc, _ := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})

	err := svc.DeleteSlot(context.Background(), "stu-1", "slot-1")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestDeleteSlotAdjustsCounter(t *testing.T) {
	slots := newStubAvailabilitySlots()
	slots.byID["slot-1"] = &models.Slot{ID: "slot-1", StudentID: "stu-1", Status: models.SlotStatusPosted}
	students := &stubAvailabilityStudents{student: testStudent(wednesday)}

	svc, mock := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteSlot(context.Background(), "stu-1", "slot-1"))
	assert.Equal(t, []string{"slot-1"}, slots.deleted)
	assert.Equal(t, -1, students.slotDelta["stu-1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSlotClaimedConcurrently(t *testing.T) {
	// The booking check passed moments ago, but the guarded delete found
	// the row already flipped to BOOKED.
	slots := newStubAvailabilitySlots()
	slots.byID["slot-1"] = &models.Slot{ID: "slot-1", StudentID: "stu-1", Status: models.SlotStatusPosted}
	slots.deleteErr = sql.ErrNoRows
	students := &stubAvailabilityStudents{student: testStudent(wednesday)}

	svc, mock := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	mock.ExpectBegin()
	mock.ExpectRollback()

	err := svc.DeleteSlot(context.Background(), "stu-1", "slot-1")

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSlotBooked.Code, appErr.Code)
	assert.Zero(t, students.slotDelta["stu-1"], "counter must not move for a failed delete")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityView(t *testing.T) {
	slots := newStubAvailabilitySlots()
	slots.listed = []models.Slot{{ID: "slot-1", Status: models.SlotStatusPosted}}
	student := testStudent(wednesday.AddDate(0, 0, -2))
	students := &stubAvailabilityStudents{student: student}

	svc, _ := newAvailabilityService(t, slots, students, &stubPolicies{}, &stubSlotBookings{})
	svc.now = func() time.Time { return wednesday }

	view, err := svc.View(context.Background(), "stu-1")
	require.NoError(t, err)

	assert.False(t, view.PostingAllowed)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), view.NextAllowedPost)
	assert.Len(t, view.ActiveSlots, 1)
	assert.Equal(t, 1, view.PostedSlotCount)
	assert.Equal(t, models.DefaultPostingWaitDays, view.PostingWaitDays)
	assert.False(t, view.LessonsOutstanding)
}
