package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward/fts-api/internal/models"
)

type stubGradeProvider struct {
	exercises []models.Exercise
	grades    map[string]*models.Grade
}

func (s *stubGradeProvider) ListExercises(_ context.Context, _ string) ([]models.Exercise, error) {
	return s.exercises, nil
}

func (s *stubGradeProvider) FindGrade(_ context.Context, studentID, exerciseID string) (*models.Grade, error) {
	return s.grades[studentID+"/"+exerciseID], nil
}

func testStudent(enrolled time.Time) *models.Student {
	return &models.Student{
		ID:         "stu-1",
		CourseID:   "course-1",
		EnrolledAt: enrolled,
		Active:     true,
	}
}

func testPolicy() *models.ProgressionPolicy {
	p := models.DefaultProgressionPolicy("course-1")
	return &p
}

// Wednesday, so no end-of-week roll interferes unless a test wants it.
var wednesday = time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)

func TestNextAllowedPostDateWaitFromEnrollment(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	student := testStudent(wednesday.AddDate(0, 0, -2))

	got := svc.NextAllowedPostDate(student, testPolicy(), wednesday)

	want := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC) // enrollment + 7 days
	assert.Equal(t, want, got)
	assert.False(t, svc.PostingAllowed(student, testPolicy(), wednesday))
}

func TestNextAllowedPostDateWaiverShortCircuits(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	student := testStudent(wednesday.AddDate(0, 0, -1))
	student.HasWaiver = true

	got := svc.NextAllowedPostDate(student, testPolicy(), wednesday)

	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), got)
	assert.True(t, svc.PostingAllowed(student, testPolicy(), wednesday))
}

func TestNextAllowedPostDateZeroWaitIsToday(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	student := testStudent(wednesday.AddDate(0, 0, -1))
	policy := testPolicy()
	policy.PostingWaitDays = 0

	got := svc.NextAllowedPostDate(student, policy, wednesday)

	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), got)
}

func TestNextAllowedPostDateClampsPastToToday(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	student := testStudent(wednesday.AddDate(0, 0, -30))

	got := svc.NextAllowedPostDate(student, testPolicy(), wednesday)

	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), got)
	assert.True(t, svc.PostingAllowed(student, testPolicy(), wednesday))
}

func TestNextAllowedPostDateRollsOffSunday(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	sunday := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, sunday.Weekday())
	student := testStudent(sunday.AddDate(0, 0, -30))

	got := svc.NextAllowedPostDate(student, testPolicy(), sunday)

	// Clamped to today, but today closes the training week.
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), got)
	assert.False(t, svc.PostingAllowed(student, testPolicy(), sunday))
}

func TestNextAllowedPostDateAnchorPrecedence(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	enrolled := wednesday.AddDate(0, 0, -60)
	graded := wednesday.AddDate(0, 0, -4)
	booked := wednesday.AddDate(0, 0, -2)

	student := testStudent(enrolled)
	student.LastGradedAt = &graded
	got := svc.NextAllowedPostDate(student, testPolicy(), wednesday)
	assert.Equal(t, time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), got, "graded anchor wins over enrollment")

	student.LastBookedAt = &booked
	got = svc.NextAllowedPostDate(student, testPolicy(), wednesday)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), got, "booked anchor wins over graded")
}

func TestNextAllowedPostDateMonotonicInWait(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	student := testStudent(wednesday.AddDate(0, 0, -3))

	prev := time.Time{}
	for wait := 0; wait <= 30; wait++ {
		policy := testPolicy()
		policy.PostingWaitDays = wait
		got := svc.NextAllowedPostDate(student, policy, wednesday)
		if !prev.IsZero() {
			assert.False(t, got.Before(prev), "wait=%d produced an earlier date", wait)
		}
		prev = got
	}
}

func TestClassifyCoversAllStates(t *testing.T) {
	svc := NewProgressionService(&stubGradeProvider{}, nil)
	policy := testPolicy()
	policy.RequireLessonCompletion = true

	student := testStudent(wednesday)
	assert.Equal(t, models.ProgressionNotCompleted, svc.Classify(student, policy))

	student.LessonsComplete = true
	assert.Equal(t, models.ProgressionNoPostsCompleted, svc.Classify(student, policy))

	student.ActiveSlotCount = 2
	assert.Equal(t, models.ProgressionPostsCompleted, svc.Classify(student, policy))

	// Without the lesson requirement, incomplete lessons do not block.
	student.LessonsComplete = false
	policy.RequireLessonCompletion = false
	assert.Equal(t, models.ProgressionPostsCompleted, svc.Classify(student, policy))
}

func TestGraduationPredicates(t *testing.T) {
	exercises := []models.Exercise{
		{ID: "ex-1", CourseID: "course-1", Position: 1},
		{ID: "ex-2", CourseID: "course-1", Position: 2},
		{ID: "ex-final", CourseID: "course-1", Position: 3},
	}
	provider := &stubGradeProvider{exercises: exercises, grades: map[string]*models.Grade{}}
	svc := NewProgressionService(provider, nil)

	policy := testPolicy()
	policy.GraduationExerciseID = "ex-final"
	student := testStudent(wednesday)

	flags, err := svc.Progress(context.Background(), student, policy)
	require.NoError(t, err)
	assert.Equal(t, ProgressFlags{}, flags)

	// Passing the penultimate exercise qualifies.
	provider.grades["stu-1/ex-2"] = &models.Grade{Score: 80, PassingScore: 70}
	flags, err = svc.Progress(context.Background(), student, policy)
	require.NoError(t, err)
	assert.True(t, flags.Qualified)
	assert.False(t, flags.Tested)

	// A failing attempt at the final exercise is tested but not passed.
	provider.grades["stu-1/ex-final"] = &models.Grade{Score: 50, PassingScore: 70}
	flags, err = svc.Progress(context.Background(), student, policy)
	require.NoError(t, err)
	assert.True(t, flags.Tested)
	assert.False(t, flags.Passed)

	provider.grades["stu-1/ex-final"] = &models.Grade{Score: 90, PassingScore: 70}
	flags, err = svc.Progress(context.Background(), student, policy)
	require.NoError(t, err)
	assert.True(t, flags.Passed)
	assert.False(t, flags.Graduated, "certification is explicit, not implied by passing")

	graduated := wednesday
	student.GraduatedAt = &graduated
	flags, err = svc.Progress(context.Background(), student, policy)
	require.NoError(t, err)
	assert.True(t, flags.Graduated)
}

func TestTestedDistinguishesAttemptFromPass(t *testing.T) {
	provider := &stubGradeProvider{grades: map[string]*models.Grade{}}
	svc := NewProgressionService(provider, nil)

	policy := testPolicy()
	policy.GraduationExerciseID = "ex-final"
	student := testStudent(wednesday)

	tested, err := svc.Tested(context.Background(), student, policy)
	require.NoError(t, err)
	assert.False(t, tested)

	// A failed attempt still counts as tested.
	provider.grades["stu-1/ex-final"] = &models.Grade{Score: 40, PassingScore: 70}
	tested, err = svc.Tested(context.Background(), student, policy)
	require.NoError(t, err)
	assert.True(t, tested)

	passed, err := svc.Passed(context.Background(), student, policy)
	require.NoError(t, err)
	assert.False(t, passed)
}

func TestGraduationPredicatesNoGraduationExercise(t *testing.T) {
	provider := &stubGradeProvider{exercises: []models.Exercise{{ID: "ex-1"}}}
	svc := NewProgressionService(provider, nil)

	qualified, err := svc.Qualified(context.Background(), testStudent(wednesday), testPolicy())
	require.NoError(t, err)
	assert.False(t, qualified)

	// Graduation exercise first in sequence: nothing precedes it.
	policy := testPolicy()
	policy.GraduationExerciseID = "ex-1"
	qualified, err = svc.Qualified(context.Background(), testStudent(wednesday), policy)
	require.NoError(t, err)
	assert.False(t, qualified)
}
