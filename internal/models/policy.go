package models

import "time"

// Default policy values applied when a course carries no explicit
// configuration or when stored weights are malformed.
const (
	DefaultPostingWaitDays  = 7
	DefaultRecencyWeight    = 10
	DefaultSlotCountWeight  = 50
	DefaultActivityWeight   = 1
	DefaultCompletionWeight = 10
)

// ProgressionPolicy is the per-course configuration driving posting-wait
// gating and priority scoring. Loaded once per request and immutable after.
type ProgressionPolicy struct {
	CourseID                string    `db:"course_id" json:"course_id"`
	PostingWaitDays         int       `db:"posting_wait_days" json:"posting_wait_days"`
	RecencyWeight           int       `db:"recency_weight" json:"recency_weight"`
	SlotCountWeight         int       `db:"slot_count_weight" json:"slot_count_weight"`
	ActivityWeight          int       `db:"activity_weight" json:"activity_weight"`
	CompletionWeight        int       `db:"completion_weight" json:"completion_weight"`
	RequireLessonCompletion bool      `db:"require_lesson_completion" json:"require_lesson_completion"`
	GraduationExerciseID    string    `db:"graduation_exercise_id" json:"graduation_exercise_id"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultProgressionPolicy returns the documented default policy for a course.
func DefaultProgressionPolicy(courseID string) ProgressionPolicy {
	return ProgressionPolicy{
		CourseID:         courseID,
		PostingWaitDays:  DefaultPostingWaitDays,
		RecencyWeight:    DefaultRecencyWeight,
		SlotCountWeight:  DefaultSlotCountWeight,
		ActivityWeight:   DefaultActivityWeight,
		CompletionWeight: DefaultCompletionWeight,
	}
}

// Normalize replaces malformed values with the documented defaults. Weights
// must be non-negative; a negative wait period means no wait.
func (p *ProgressionPolicy) Normalize() {
	if p.PostingWaitDays < 0 {
		p.PostingWaitDays = 0
	}
	if p.RecencyWeight < 0 {
		p.RecencyWeight = DefaultRecencyWeight
	}
	if p.SlotCountWeight < 0 {
		p.SlotCountWeight = DefaultSlotCountWeight
	}
	if p.ActivityWeight < 0 {
		p.ActivityWeight = DefaultActivityWeight
	}
	if p.CompletionWeight < 0 {
		p.CompletionWeight = DefaultCompletionWeight
	}
}
