package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindActiveOverlapping(ctx context.Context, exec sqlx.ExtContext, instructorID, studentID string, window models.TimeWindow) (*models.Booking, error)
	ExistsActiveForExercise(ctx context.Context, exec sqlx.ExtContext, studentID, exerciseID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.BookingStatus) error
}

type bookingSlotRepository interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	MarkBooked(ctx context.Context, exec sqlx.ExtContext, id string) error
	Release(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type bookingStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	TouchLastBooked(ctx context.Context, exec sqlx.ExtContext, id string, bookedAt time.Time) error
	AdjustActiveSlotCount(ctx context.Context, exec sqlx.ExtContext, id string, delta int) error
	IncrementNoShow(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type bookingNotifier interface {
	BookingCreated(booking models.Booking)
	BookingCancelled(booking models.Booking)
}

// BookingService coordinates the booking lifecycle. Conflicts are reported
// as typed error values, never panics: the conflict check runs once before
// the transaction for a fast reject and again inside it so two instructors
// racing for the same student cannot both commit. A partial unique index on
// active (student_id, exercise_id) backs the same guarantee at the database
// level.
type BookingService struct {
	bookings bookingRepository
	slots    bookingSlotRepository
	students bookingStudentRepository
	tx       txProvider
	notifier bookingNotifier
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewBookingService wires the booking workflow.
func NewBookingService(
	bookings bookingRepository,
	slots bookingSlotRepository,
	students bookingStudentRepository,
	tx txProvider,
	notifier bookingNotifier,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings: bookings,
		slots:    slots,
		students: students,
		tx:       tx,
		notifier: notifier,
		validate: validate,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns bookings matching the filter with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list bookings")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find booking")
	}
	return booking, nil
}

// Create books a posted slot for an instructor against an exercise. The slot
// claim, booking insert and student counters commit atomically; a conflict
// discovered at any stage leaves the slot POSTED.
func (s *BookingService) Create(ctx context.Context, instructorID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find slot")
	}
	if slot.Status != models.SlotStatusPosted {
		return nil, appErrors.Clone(appErrors.ErrBookingConflict, "slot is no longer available")
	}

	window := models.TimeWindow{Start: slot.StartTime, End: slot.EndTime}

	// Fast reject outside the transaction; the authoritative check runs
	// again inside it.
	if conflict, err := s.bookings.FindActiveOverlapping(ctx, nil, instructorID, slot.StudentID, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict check")
	} else if conflict != nil {
		return nil, appErrors.Clone(appErrors.ErrBookingConflict, "window overlaps an existing booking")
	}

	if exists, err := s.bookings.ExistsActiveForExercise(ctx, nil, slot.StudentID, req.ExerciseID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "exercise check")
	} else if exists {
		return nil, appErrors.Clone(appErrors.ErrBookingConflict, "student already has an active booking for this exercise")
	}

	now := s.now()
	booking := &models.Booking{
		ID:           uuid.NewString(),
		CourseID:     slot.CourseID,
		StudentID:    slot.StudentID,
		InstructorID: instructorID,
		ExerciseID:   req.ExerciseID,
		SlotID:       slot.ID,
		StartTime:    slot.StartTime,
		EndTime:      slot.EndTime,
		Status:       models.BookingStatusTentative,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if conflict, err := s.bookings.FindActiveOverlapping(ctx, tx, instructorID, slot.StudentID, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict re-check")
	} else if conflict != nil {
		return nil, appErrors.Clone(appErrors.ErrBookingConflict, "window overlaps an existing booking")
	}

	if err := s.slots.MarkBooked(ctx, tx, slot.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrBookingConflict, "slot was claimed by another booking")
		}
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	if err := s.bookings.Create(ctx, tx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	if err := s.students.TouchLastBooked(ctx, tx, slot.StudentID, now); err != nil {
		return nil, fmt.Errorf("touch last booked: %w", err)
	}
	if err := s.students.AdjustActiveSlotCount(ctx, tx, slot.StudentID, -1); err != nil {
		return nil, fmt.Errorf("adjust slot count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("slot_id", slot.ID),
		zap.String("student_id", slot.StudentID),
		zap.String("instructor_id", instructorID),
	)
	if s.notifier != nil {
		s.notifier.BookingCreated(*booking)
	}
	return booking, nil
}

// Confirm promotes a tentative booking to confirmed.
func (s *BookingService) Confirm(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusTentative {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only tentative bookings can be confirmed")
	}
	if err := s.bookings.UpdateStatus(ctx, nil, id, models.BookingStatusConfirmed); err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}
	booking.Status = models.BookingStatusConfirmed
	booking.UpdatedAt = s.now()
	return booking, nil
}

// Cancel releases an active booking, returning the slot to POSTED and
// restoring the student's active slot count. A no-show additionally bumps
// the student's no-show counter.
func (s *BookingService) Cancel(ctx context.Context, id string, req dto.CancelBookingRequest) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.Status.IsActive() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "booking is not active")
	}

	status := models.BookingStatusCancelled
	if req.NoShow {
		status = models.BookingStatusNoShow
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.bookings.UpdateStatus(ctx, tx, id, status); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}
	if err := s.slots.Release(ctx, tx, booking.SlotID); err != nil {
		return nil, fmt.Errorf("release slot: %w", err)
	}
	if err := s.students.AdjustActiveSlotCount(ctx, tx, booking.StudentID, 1); err != nil {
		return nil, fmt.Errorf("adjust slot count: %w", err)
	}
	if req.NoShow {
		if err := s.students.IncrementNoShow(ctx, tx, booking.StudentID); err != nil {
			return nil, fmt.Errorf("increment no-show: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	booking.Status = status
	booking.UpdatedAt = s.now()

	s.logger.Info("booking cancelled",
		zap.String("booking_id", booking.ID),
		zap.String("status", string(status)),
	)
	if s.notifier != nil {
		s.notifier.BookingCancelled(*booking)
	}
	return booking, nil
}

// CheckConflict reports whether a candidate window would collide with any
// active booking involving the instructor or the student. It never mutates
// state; callers use it for pre-flight UI checks.
func (s *BookingService) CheckConflict(ctx context.Context, instructorID, studentID string, window models.TimeWindow) (bool, error) {
	if !window.Start.Before(window.End) {
		return false, appErrors.Clone(appErrors.ErrValidation, "window start must precede end")
	}
	conflict, err := s.bookings.FindActiveOverlapping(ctx, nil, instructorID, studentID, window)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict check")
	}
	return conflict != nil, nil
}
