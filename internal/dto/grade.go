package dto

// RecordGradeRequest records the outcome of a completed session.
type RecordGradeRequest struct {
	StudentID      string  `json:"student_id" validate:"required,uuid4"`
	ExerciseID     string  `json:"exercise_id" validate:"required,uuid4"`
	BookingID      string  `json:"booking_id" validate:"omitempty,uuid4"`
	Score          float64 `json:"score" validate:"gte=0,lte=100"`
	PassingScore   float64 `json:"passing_score" validate:"gte=0,lte=100"`
	SessionMinutes int     `json:"session_minutes" validate:"gte=0,lte=1440"`
	Remarks        string  `json:"remarks" validate:"max=1000"`
}
