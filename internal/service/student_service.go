package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/config"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	SetWaiver(ctx context.Context, id string, hasWaiver bool) error
	SetLessonsComplete(ctx context.Context, id string, complete bool) error
	Deactivate(ctx context.Context, id string) error
}

type studentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// StudentService manages course enrollments and the per-student flags the
// scheduling engine reads: the posting-wait waiver and the LMS
// lesson-completion state.
type StudentService struct {
	students   studentRepository
	users      studentUserRepository
	dashboards dashboardInvalidator
	cfg        config.BookingConfig
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewStudentService wires the enrollment workflow.
func NewStudentService(
	students studentRepository,
	users studentUserRepository,
	dashboards dashboardInvalidator,
	cfg config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		students:   students,
		users:      users,
		dashboards: dashboards,
		cfg:        cfg,
		validate:   validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// List returns students matching the filter with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a single student snapshot.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find student")
	}
	return student, nil
}

// FindForUser resolves the student snapshot backing a user within a course.
func (s *StudentService) FindForUser(ctx context.Context, courseID, userID string) (*models.Student, error) {
	student, err := s.students.FindByCourseAndUser(ctx, courseID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found for user")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find student")
	}
	return student, nil
}

// Enroll creates a student snapshot for a user in a course. A user can only
// hold one enrollment per course.
func (s *StudentService) Enroll(ctx context.Context, req dto.EnrollStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find user")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only student accounts can be enrolled")
	}

	if existing, err := s.students.FindByCourseAndUser(ctx, req.CourseID, req.UserID); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user already enrolled in course")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check enrollment")
	}

	now := s.now()
	student := &models.Student{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		CourseID:   req.CourseID,
		FullName:   user.FullName,
		EnrolledAt: now,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("enroll student: %w", err)
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, req.CourseID)
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", student.ID),
		zap.String("user_id", user.ID),
		zap.String("course_id", req.CourseID),
	)
	return student, nil
}

// SetWaiver toggles the posting-wait waiver for a student.
func (s *StudentService) SetWaiver(ctx context.Context, id string, hasWaiver bool) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.students.SetWaiver(ctx, id, hasWaiver); err != nil {
		return nil, fmt.Errorf("set waiver: %w", err)
	}
	student.HasWaiver = hasWaiver

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, student.CourseID)
	}
	s.logger.Info("waiver updated", zap.String("student_id", id), zap.Bool("has_waiver", hasWaiver))
	return student, nil
}

// SetLessonsComplete updates the lesson-completion flag fed by the LMS sync.
func (s *StudentService) SetLessonsComplete(ctx context.Context, id string, complete bool) (*models.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.students.SetLessonsComplete(ctx, id, complete); err != nil {
		return nil, fmt.Errorf("set lessons complete: %w", err)
	}
	student.LessonsComplete = complete

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, student.CourseID)
	}
	return student, nil
}

// Deactivate removes a student from active scheduling. Repeated no-shows
// route through here once they exceed the configured suspension count.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	student, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.students.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, student.CourseID)
	}
	s.logger.Info("student deactivated", zap.String("student_id", id))
	return nil
}

// SuspensionDue reports whether the student's no-show count has reached the
// configured review threshold.
func (s *StudentService) SuspensionDue(student *models.Student) bool {
	if student == nil || s.cfg.NoShowSuspensionCount <= 0 {
		return false
	}
	return student.NoShowCount >= s.cfg.NoShowSuspensionCount
}
