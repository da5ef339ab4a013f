package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/timeutil"
)

type progressionGradeProvider interface {
	ListExercises(ctx context.Context, courseID string) ([]models.Exercise, error)
	FindGrade(ctx context.Context, studentID, exerciseID string) (*models.Grade, error)
}

// ProgressFlags carries the graduation-track predicates for a student.
type ProgressFlags struct {
	Qualified bool `json:"qualified"`
	Tested    bool `json:"tested"`
	Passed    bool `json:"passed"`
	Graduated bool `json:"graduated"`
}

// ProgressionService computes posting-window gates and progression state for
// students. All calculations are pure functions of the request-scoped
// snapshot; nothing is cached across calls.
type ProgressionService struct {
	grades progressionGradeProvider
	logger *zap.Logger
}

// NewProgressionService constructs the progression service.
func NewProgressionService(grades progressionGradeProvider, logger *zap.Logger) *ProgressionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressionService{grades: grades, logger: logger}
}

// NextAllowedPostDate computes the next date the student may post
// availability. The anchor is the most specific known date: last booked
// session, then last graded date, then enrollment. A configured wait of zero
// or an active waiver short-circuits to today. Results already in the past
// clamp to today, and a result landing on today rolls forward one day when
// today is the last day of the training week. The returned value is always a
// start-of-day timestamp no earlier than the anchor.
func (s *ProgressionService) NextAllowedPostDate(student *models.Student, policy *models.ProgressionPolicy, now time.Time) time.Time {
	now = now.UTC()
	today := timeutil.StartOfDay(now)
	if student == nil || policy == nil {
		return today
	}
	if policy.PostingWaitDays == 0 || student.HasWaiver {
		return today
	}

	anchor := student.EnrolledAt
	if student.LastBookedAt != nil {
		anchor = *student.LastBookedAt
	} else if student.LastGradedAt != nil {
		anchor = *student.LastGradedAt
	}

	next := timeutil.AddDays(anchor.UTC(), policy.PostingWaitDays)
	if next.Before(now) {
		next = now
	}
	next = timeutil.StartOfDay(next)

	if next.Equal(today) && timeutil.IsLastDayOfWeek(now) {
		next = timeutil.AddDays(next, 1)
	}
	return next
}

// PostingAllowed reports whether the student may post availability today.
func (s *ProgressionService) PostingAllowed(student *models.Student, policy *models.ProgressionPolicy, now time.Time) bool {
	return !s.NextAllowedPostDate(student, policy, now).After(timeutil.StartOfDay(now))
}

// Classify derives the student's coarse progression state from the
// lesson-completion requirement and active posting counts.
func (s *ProgressionService) Classify(student *models.Student, policy *models.ProgressionPolicy) models.ProgressionState {
	if student == nil {
		return models.ProgressionNotCompleted
	}
	required := policy != nil && policy.RequireLessonCompletion
	if required && !student.LessonsComplete {
		return models.ProgressionNotCompleted
	}
	if student.ActiveSlotCount > 0 {
		return models.ProgressionPostsCompleted
	}
	return models.ProgressionNoPostsCompleted
}

// Qualified reports whether the grade for the exercise immediately preceding
// the course's graduation exercise is passing. A course without a designated
// graduation exercise, or one where the graduation exercise is first in the
// sequence, never qualifies anyone.
func (s *ProgressionService) Qualified(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (bool, error) {
	prior, err := s.exerciseBeforeGraduation(ctx, student, policy)
	if err != nil || prior == nil {
		return false, err
	}
	grade, err := s.grades.FindGrade(ctx, student.ID, prior.ID)
	if err != nil {
		return false, err
	}
	return grade != nil && grade.IsPassed(), nil
}

// Tested reports whether any grade exists for the graduation exercise.
func (s *ProgressionService) Tested(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (bool, error) {
	if student == nil || policy == nil || policy.GraduationExerciseID == "" {
		return false, nil
	}
	grade, err := s.grades.FindGrade(ctx, student.ID, policy.GraduationExerciseID)
	if err != nil {
		return false, err
	}
	return grade != nil, nil
}

// Passed reports whether the graduation exercise has been graded as passing.
func (s *ProgressionService) Passed(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (bool, error) {
	if student == nil || policy == nil || policy.GraduationExerciseID == "" {
		return false, nil
	}
	grade, err := s.grades.FindGrade(ctx, student.ID, policy.GraduationExerciseID)
	if err != nil {
		return false, err
	}
	return grade != nil && grade.IsPassed(), nil
}

// Graduated reports whether certification has been recorded for the student.
func (s *ProgressionService) Graduated(student *models.Student) bool {
	return student != nil && student.GraduatedAt != nil
}

// Progress evaluates all graduation-track predicates in one pass.
func (s *ProgressionService) Progress(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (ProgressFlags, error) {
	flags := ProgressFlags{Graduated: s.Graduated(student)}
	if student == nil || policy == nil || policy.GraduationExerciseID == "" {
		return flags, nil
	}
	qualified, err := s.Qualified(ctx, student, policy)
	if err != nil {
		return flags, err
	}
	flags.Qualified = qualified

	grade, err := s.grades.FindGrade(ctx, student.ID, policy.GraduationExerciseID)
	if err != nil {
		return flags, err
	}
	flags.Tested = grade != nil
	flags.Passed = grade != nil && grade.IsPassed()
	return flags, nil
}

func (s *ProgressionService) exerciseBeforeGraduation(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (*models.Exercise, error) {
	if student == nil || policy == nil || policy.GraduationExerciseID == "" {
		return nil, nil
	}
	exercises, err := s.grades.ListExercises(ctx, student.CourseID)
	if err != nil {
		return nil, err
	}
	for i, exercise := range exercises {
		if exercise.ID == policy.GraduationExerciseID {
			if i == 0 {
				return nil, nil
			}
			prior := exercises[i-1]
			return &prior, nil
		}
	}
	return nil, nil
}
