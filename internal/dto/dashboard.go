package dto

import (
	"time"

	"github.com/skyward/fts-api/internal/models"
)

// RankedStudentEntry is one row of the instructor booking queue.
type RankedStudentEntry struct {
	StudentID       string                  `json:"student_id"`
	FullName        string                  `json:"full_name"`
	Score           int                     `json:"score"`
	RecencyDays     int                     `json:"recency_days"`
	ActiveSlotCount int                     `json:"active_slot_count"`
	State           models.ProgressionState `json:"state"`
	NextExerciseID  *string                 `json:"next_exercise_id,omitempty"`
	Qualified       bool                    `json:"qualified"`
	Tested          bool                    `json:"tested"`
	Passed          bool                    `json:"passed"`
	Graduated       bool                    `json:"graduated"`
}

// InstructorDashboardResponse composes the priority-ordered student list for
// a course.
type InstructorDashboardResponse struct {
	CourseID    string               `json:"course_id"`
	GeneratedAt time.Time            `json:"generated_at"`
	Students    []RankedStudentEntry `json:"students"`
}

// StudentAvailabilityView is what a student sees when opening their
// availability page: posting gate plus current slots.
type StudentAvailabilityView struct {
	StudentID          string        `json:"student_id"`
	PostingAllowed     bool          `json:"posting_allowed"`
	NextAllowedPost    time.Time     `json:"next_allowed_post"`
	ActiveSlots        []models.Slot `json:"active_slots"`
	PostedSlotCount    int           `json:"posted_slot_count"`
	PostingWaitDays    int           `json:"posting_wait_days"`
	HasWaiver          bool          `json:"has_waiver"`
	LessonsOutstanding bool          `json:"lessons_outstanding"`
}
