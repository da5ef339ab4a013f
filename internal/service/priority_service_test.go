package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skyward/fts-api/internal/models"
)

func TestRecencyDaysAnchorChain(t *testing.T) {
	svc := NewPriorityService(nil)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	student := testStudent(now.AddDate(0, 0, -20))
	assert.Equal(t, 20, svc.RecencyDays(student, now))

	graded := now.AddDate(0, 0, -5)
	student.LastGradedAt = &graded
	assert.Equal(t, 5, svc.RecencyDays(student, now))

	booked := now.AddDate(0, 0, -3)
	student.LastBookedAt = &booked
	assert.Equal(t, 3, svc.RecencyDays(student, now))

	future := now.AddDate(0, 0, 1)
	student.LastBookedAt = &future
	assert.Equal(t, 0, svc.RecencyDays(student, now), "future anchors never go negative")
}

func TestScoreWeightedSum(t *testing.T) {
	svc := NewPriorityService(nil)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	student := testStudent(now.AddDate(0, 0, -4))
	student.ActiveSlotCount = 2
	student.ActivityCount = 6
	student.LessonsComplete = true

	policy := testPolicy() // recency 10, slots 50, activity 1, completion 10
	got := svc.Score(student, policy, now)

	assert.Equal(t, 4*10+2*50+6*1+10, got)
}

func TestScoreZeroWeightRemovesTerm(t *testing.T) {
	svc := NewPriorityService(nil)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

	student := testStudent(now.AddDate(0, 0, -4))
	student.ActiveSlotCount = 3

	policy := testPolicy()
	policy.SlotCountWeight = 0
	withoutSlots := svc.Score(student, policy, now)

	student.ActiveSlotCount = 30
	assert.Equal(t, withoutSlots, svc.Score(student, policy, now), "zero weight makes the counter irrelevant")
}

func TestScoreMonotonicInRecency(t *testing.T) {
	svc := NewPriorityService(nil)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	policy := testPolicy()

	prev := -1
	for days := 0; days <= 60; days += 5 {
		student := testStudent(now.AddDate(0, 0, -days))
		got := svc.Score(student, policy, now)
		assert.GreaterOrEqual(t, got, prev, "waiting longer never lowers the score")
		prev = got
	}
}

func TestRankOrdersByScoreThenID(t *testing.T) {
	svc := NewPriorityService(nil)
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	policy := testPolicy()

	fresh := now.AddDate(0, 0, -1)
	stale := now.AddDate(0, 0, -14)
	students := []models.Student{
		{ID: "stu-b", CourseID: "course-1", EnrolledAt: fresh},
		{ID: "stu-c", CourseID: "course-1", EnrolledAt: stale},
		{ID: "stu-a", CourseID: "course-1", EnrolledAt: fresh},
	}

	ranked := svc.Rank(students, policy, now)

	assert.Equal(t, "stu-c", ranked[0].Student.ID, "longest wait ranks first")
	assert.Equal(t, "stu-a", ranked[1].Student.ID, "ties break on ascending id")
	assert.Equal(t, "stu-b", ranked[2].Student.ID)
	assert.Equal(t, 14, ranked[0].RecencyDays)
}

func TestRankEmpty(t *testing.T) {
	svc := NewPriorityService(nil)
	ranked := svc.Rank(nil, testPolicy(), time.Now().UTC())
	assert.Empty(t, ranked)
}
