package service

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/timeutil"
)

// ScoredStudent pairs a student snapshot with its computed priority score.
type ScoredStudent struct {
	Student     *models.Student
	Score       int
	RecencyDays int
}

// PriorityService ranks students for instructor attention. Higher scores
// sort first; ties break on ascending student id so repeated rankings are
// stable.
type PriorityService struct {
	logger *zap.Logger
}

// NewPriorityService constructs the priority scorer.
func NewPriorityService(logger *zap.Logger) *PriorityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriorityService{logger: logger}
}

// RecencyDays returns whole days since the student's most recent activity
// anchor (last booked session, else last graded date, else enrollment),
// never negative.
func (s *PriorityService) RecencyDays(student *models.Student, now time.Time) int {
	if student == nil {
		return 0
	}
	anchor := student.EnrolledAt
	if student.LastBookedAt != nil {
		anchor = *student.LastBookedAt
	} else if student.LastGradedAt != nil {
		anchor = *student.LastGradedAt
	}
	return timeutil.DaysBetween(anchor.UTC(), now.UTC())
}

// Score computes the weighted priority score for a student. Each term is a
// weight multiplied by the matching snapshot counter; a zero weight removes
// that term entirely. Lesson completion contributes a flat bonus.
func (s *PriorityService) Score(student *models.Student, policy *models.ProgressionPolicy, now time.Time) int {
	if student == nil {
		return 0
	}
	if policy == nil {
		def := models.DefaultProgressionPolicy(student.CourseID)
		policy = &def
	}

	score := 0
	score += policy.RecencyWeight * s.RecencyDays(student, now)
	score += policy.SlotCountWeight * student.ActiveSlotCount
	score += policy.ActivityWeight * student.ActivityCount
	if student.LessonsComplete {
		score += policy.CompletionWeight
	}
	return score
}

// Rank scores every student and returns them ordered by descending score,
// ties broken by ascending student id.
func (s *PriorityService) Rank(students []models.Student, policy *models.ProgressionPolicy, now time.Time) []ScoredStudent {
	ranked := make([]ScoredStudent, 0, len(students))
	for i := range students {
		student := &students[i]
		ranked = append(ranked, ScoredStudent{
			Student:     student,
			Score:       s.Score(student, policy, now),
			RecencyDays: s.RecencyDays(student, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Student.ID < ranked[j].Student.ID
	})
	return ranked
}
