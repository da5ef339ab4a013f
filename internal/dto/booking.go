package dto

// CreateBookingRequest books a posted availability slot for an exercise.
type CreateBookingRequest struct {
	SlotID     string `json:"slot_id" validate:"required,uuid4"`
	ExerciseID string `json:"exercise_id" validate:"required,uuid4"`
}

// CancelBookingRequest releases an active booking. NoShow marks the student
// as absent instead of a plain cancellation.
type CancelBookingRequest struct {
	NoShow bool   `json:"no_show"`
	Reason string `json:"reason" validate:"max=500"`
}
