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

type gradeRepository interface {
	ListExercises(ctx context.Context, courseID string) ([]models.Exercise, error)
	FindExercise(ctx context.Context, id string) (*models.Exercise, error)
	FindGrade(ctx context.Context, studentID, exerciseID string) (*models.Grade, error)
	ListGradesByStudent(ctx context.Context, courseID, studentID string) ([]models.Grade, error)
	CreateGrade(ctx context.Context, grade *models.Grade) error
}

type gradeStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	TouchLastGraded(ctx context.Context, id string, gradedAt time.Time, currentExerciseID, nextExerciseID *string) error
	IncrementActivity(ctx context.Context, id string) error
	SetGraduated(ctx context.Context, id string, graduatedAt time.Time) error
}

type gradeLogbookRepository interface {
	Create(ctx context.Context, entry *models.LogbookEntry) error
}

type gradePolicyRepository interface {
	FindByCourse(ctx context.Context, courseID string) (*models.ProgressionPolicy, error)
}

type graduationChecker interface {
	Passed(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (bool, error)
}

type dashboardInvalidator interface {
	Invalidate(ctx context.Context, courseID string)
}

// GradeService records session outcomes. A grade moves the student's
// activity anchors forward, writes the logbook row, and advances the
// exercise pointers when the grade passes. Grading never changes the
// booking's status; the booking stays CONFIRMED as the session record.
type GradeService struct {
	grades      gradeRepository
	students    gradeStudentRepository
	logbook     gradeLogbookRepository
	policies    gradePolicyRepository
	progression graduationChecker
	dashboards  dashboardInvalidator
	cfg         config.BookingConfig
	validate    *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService wires the grading workflow.
func NewGradeService(
	grades gradeRepository,
	students gradeStudentRepository,
	logbook gradeLogbookRepository,
	policies gradePolicyRepository,
	progression graduationChecker,
	dashboards dashboardInvalidator,
	cfg config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:      grades,
		students:    students,
		logbook:     logbook,
		policies:    policies,
		progression: progression,
		dashboards:  dashboards,
		cfg:         cfg,
		validate:    validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListExercises returns the course's exercise sequence in position order.
func (s *GradeService) ListExercises(ctx context.Context, courseID string) ([]models.Exercise, error) {
	exercises, err := s.grades.ListExercises(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list exercises")
	}
	return exercises, nil
}

// StudentGrades returns all grades recorded for a student in a course.
func (s *GradeService) StudentGrades(ctx context.Context, courseID, studentID string) ([]models.Grade, error) {
	grades, err := s.grades.ListGradesByStudent(ctx, courseID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list grades")
	}
	return grades, nil
}

// RecordGrade persists a session outcome: the grade row, the logbook entry,
// and the student's grading anchors. A passing grade advances the exercise
// pointers to the next exercise in sequence.
func (s *GradeService) RecordGrade(ctx context.Context, instructorID string, req dto.RecordGradeRequest) (*models.Grade, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find student")
	}

	exercise, err := s.grades.FindExercise(ctx, req.ExerciseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exercise not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find exercise")
	}
	if exercise.CourseID != student.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exercise belongs to another course")
	}

	now := s.now()
	grade := &models.Grade{
		ID:           uuid.NewString(),
		CourseID:     student.CourseID,
		StudentID:    student.ID,
		ExerciseID:   exercise.ID,
		InstructorID: instructorID,
		Score:        req.Score,
		PassingScore: req.PassingScore,
		GradedAt:     now,
	}
	if req.Remarks != "" {
		remarks := req.Remarks
		grade.Remarks = &remarks
	}
	if err := s.grades.CreateGrade(ctx, grade); err != nil {
		return nil, fmt.Errorf("create grade: %w", err)
	}

	minutes := req.SessionMinutes
	if minutes <= 0 {
		minutes = s.cfg.DefaultSessionMinutes
	}
	entry := &models.LogbookEntry{
		ID:             uuid.NewString(),
		CourseID:       student.CourseID,
		StudentID:      student.ID,
		InstructorID:   instructorID,
		ExerciseID:     exercise.ID,
		SessionDate:    now,
		SessionMinutes: minutes,
		Remarks:        grade.Remarks,
		CreatedAt:      now,
	}
	if req.BookingID != "" {
		bookingID := req.BookingID
		entry.BookingID = &bookingID
	}
	if err := s.logbook.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create logbook entry: %w", err)
	}

	currentID := exercise.ID
	nextID := student.NextExerciseID
	if grade.IsPassed() {
		nextID = nil
		if next, err := s.exerciseAfter(ctx, student.CourseID, exercise); err != nil {
			return nil, err
		} else if next != nil {
			id := next.ID
			nextID = &id
		}
	}
	if err := s.students.TouchLastGraded(ctx, student.ID, now, &currentID, nextID); err != nil {
		return nil, fmt.Errorf("touch last graded: %w", err)
	}
	if err := s.students.IncrementActivity(ctx, student.ID); err != nil {
		return nil, fmt.Errorf("increment activity: %w", err)
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, student.CourseID)
	}

	s.logger.Info("grade recorded",
		zap.String("grade_id", grade.ID),
		zap.String("student_id", student.ID),
		zap.String("exercise_id", exercise.ID),
		zap.Bool("passed", grade.IsPassed()),
	)
	return grade, nil
}

// Certify stamps graduation for a student who has passed the course's
// graduation exercise. Students who have not passed it are rejected with a
// precondition error.
func (s *GradeService) Certify(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "find student")
	}
	if student.GraduatedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student already graduated")
	}

	policy, err := s.policies.FindByCourse(ctx, student.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load policy")
	}
	if policy.GraduationExerciseID == "" {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course has no graduation exercise")
	}

	passed, err := s.progression.Passed(ctx, student, policy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check graduation grade")
	}
	if !passed {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "graduation exercise not passed")
	}

	now := s.now()
	if err := s.students.SetGraduated(ctx, student.ID, now); err != nil {
		return nil, fmt.Errorf("set graduated: %w", err)
	}
	student.GraduatedAt = &now

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, student.CourseID)
	}

	s.logger.Info("student certified", zap.String("student_id", student.ID))
	return student, nil
}

func (s *GradeService) exerciseAfter(ctx context.Context, courseID string, exercise *models.Exercise) (*models.Exercise, error) {
	exercises, err := s.grades.ListExercises(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list exercises")
	}
	for i, e := range exercises {
		if e.ID == exercise.ID && i+1 < len(exercises) {
			next := exercises[i+1]
			return &next, nil
		}
	}
	return nil, nil
}
