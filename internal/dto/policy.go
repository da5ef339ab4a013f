package dto

// UpdatePolicyRequest replaces a course's progression policy. Omitted
// numeric fields fall back to the documented defaults on load.
type UpdatePolicyRequest struct {
	PostingWaitDays         int    `json:"posting_wait_days" validate:"gte=0,lte=365"`
	RecencyWeight           int    `json:"recency_weight" validate:"gte=0"`
	SlotCountWeight         int    `json:"slot_count_weight" validate:"gte=0"`
	ActivityWeight          int    `json:"activity_weight" validate:"gte=0"`
	CompletionWeight        int    `json:"completion_weight" validate:"gte=0"`
	RequireLessonCompletion bool   `json:"require_lesson_completion"`
	GraduationExerciseID    string `json:"graduation_exercise_id" validate:"omitempty,uuid4"`
}
