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
	"github.com/skyward/fts-api/pkg/timeutil"
)

type availabilitySlotRepository interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
	ExistsDuplicate(ctx context.Context, courseID, studentID string, start, end time.Time) (bool, error)
	CountActiveByStudent(ctx context.Context, courseID, studentID string) (int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.Slot) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type availabilityStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.Student, error)
	AdjustActiveSlotCount(ctx context.Context, exec sqlx.ExtContext, id string, delta int) error
}

type availabilityPolicyRepository interface {
	FindByCourse(ctx context.Context, courseID string) (*models.ProgressionPolicy, error)
}

type availabilityBookingRepository interface {
	FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error)
}

type postingGate interface {
	NextAllowedPostDate(student *models.Student, policy *models.ProgressionPolicy, now time.Time) time.Time
	Classify(student *models.Student, policy *models.ProgressionPolicy) models.ProgressionState
}

// AvailabilityService owns the slot lifecycle from the student's side:
// posting (behind the wait-period gate), withdrawal, and the availability
// page view.
type AvailabilityService struct {
	slots       availabilitySlotRepository
	students    availabilityStudentRepository
	policies    availabilityPolicyRepository
	bookings    availabilityBookingRepository
	progression postingGate
	tx          txProvider
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAvailabilityService wires the availability workflow.
func NewAvailabilityService(
	slots availabilitySlotRepository,
	students availabilityStudentRepository,
	policies availabilityPolicyRepository,
	bookings availabilityBookingRepository,
	progression postingGate,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		slots:       slots,
		students:    students,
		policies:    policies,
		bookings:    bookings,
		progression: progression,
		tx:          tx,
		validate:    validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns slots matching the filter with pagination metadata.
func (s *AvailabilityService) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	slots, total, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list slots")
	}
	return slots, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// PostSlot publishes a new availability window for a student. The posting
// gate applies first: students inside their wait period get
// ErrPostingWindowClosed rather than a silent drop.
func (s *AvailabilityService) PostSlot(ctx context.Context, studentID string, req dto.PostSlotRequest) (*models.Slot, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not active")
	}

	policy, err := s.policies.FindByCourse(ctx, student.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load policy")
	}

	now := s.now()
	nextAllowed := s.progression.NextAllowedPostDate(student, policy, now)
	if nextAllowed.After(timeutil.StartOfDay(now)) {
		return nil, appErrors.Clone(appErrors.ErrPostingWindowClosed,
			fmt.Sprintf("posting opens on %s", nextAllowed.Format("2006-01-02")))
	}

	start := req.StartTime.UTC()
	end := req.EndTime.UTC()
	if !start.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot must start in the future")
	}

	dup, err := s.slots.ExistsDuplicate(ctx, student.CourseID, student.ID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "duplicate check")
	}
	if dup {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an identical slot already exists")
	}

	week, year := timeutil.WeekOfYear(start)
	slot := &models.Slot{
		ID:        uuid.NewString(),
		CourseID:  student.CourseID,
		StudentID: student.ID,
		StartTime: start,
		EndTime:   end,
		Week:      week,
		Year:      year,
		Status:    models.SlotStatusPosted,
		CreatedAt: now,
	}
	// Slot row and counter move together; the counter feeds the priority
	// score, so a partial write must not survive.
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin post tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.slots.Create(ctx, tx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	if err := s.students.AdjustActiveSlotCount(ctx, tx, student.ID, 1); err != nil {
		return nil, fmt.Errorf("adjust slot count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit post tx: %w", err)
	}

	s.logger.Info("slot posted",
		zap.String("slot_id", slot.ID),
		zap.String("student_id", student.ID),
		zap.Time("start", start),
	)
	return slot, nil
}

// DeleteSlot withdraws a posted slot. Slots referenced by an active booking
// cannot be withdrawn; the booking must be cancelled first.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, studentID, slotID string) error {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find slot")
	}
	if slot.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "slot belongs to another student")
	}

	booking, err := s.bookings.FindActiveBySlot(ctx, slotID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "booking check")
	}
	if booking != nil {
		return appErrors.Clone(appErrors.ErrSlotBooked, "")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// The delete only lands on POSTED rows, so a booking that claimed the
	// slot after the check above surfaces here instead of orphaning.
	if err := s.slots.Delete(ctx, tx, slotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrSlotBooked, "")
		}
		return fmt.Errorf("delete slot: %w", err)
	}
	if err := s.students.AdjustActiveSlotCount(ctx, tx, studentID, -1); err != nil {
		return fmt.Errorf("adjust slot count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	s.logger.Info("slot withdrawn", zap.String("slot_id", slotID), zap.String("student_id", studentID))
	return nil
}

// View assembles the availability page for a student: the posting gate plus
// their currently posted slots.
func (s *AvailabilityService) View(ctx context.Context, studentID string) (*dto.StudentAvailabilityView, error) {
	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	policy, err := s.policies.FindByCourse(ctx, student.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load policy")
	}

	slots, _, err := s.slots.List(ctx, models.SlotFilter{
		CourseID:  student.CourseID,
		StudentID: student.ID,
		Status:    models.SlotStatusPosted,
		Page:      1,
		PageSize:  100,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list slots")
	}

	// the list is page-capped, the count is authoritative
	posted, err := s.slots.CountActiveByStudent(ctx, student.CourseID, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count slots")
	}

	now := s.now()
	nextAllowed := s.progression.NextAllowedPostDate(student, policy, now)
	state := s.progression.Classify(student, policy)

	return &dto.StudentAvailabilityView{
		StudentID:          student.ID,
		PostingAllowed:     !nextAllowed.After(timeutil.StartOfDay(now)),
		NextAllowedPost:    nextAllowed,
		ActiveSlots:        slots,
		PostedSlotCount:    posted,
		PostingWaitDays:    policy.PostingWaitDays,
		HasWaiver:          student.HasWaiver,
		LessonsOutstanding: state == models.ProgressionNotCompleted,
	}, nil
}

func (s *AvailabilityService) findStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find student")
	}
	return student, nil
}
