package models

import "time"

// Student is a per-course flight-training snapshot of a learner. It is built
// from the database for the duration of a request and never cached beyond it.
type Student struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	CourseID          string     `db:"course_id" json:"course_id"`
	FullName          string     `db:"full_name" json:"full_name"`
	EnrolledAt        time.Time  `db:"enrolled_at" json:"enrolled_at"`
	LastGradedAt      *time.Time `db:"last_graded_at" json:"last_graded_at,omitempty"`
	LastBookedAt      *time.Time `db:"last_booked_at" json:"last_booked_at,omitempty"`
	ActiveSlotCount   int        `db:"active_slot_count" json:"active_slot_count"`
	ActivityCount     int        `db:"activity_count" json:"activity_count"`
	LessonsComplete   bool       `db:"lessons_complete" json:"lessons_complete"`
	HasWaiver         bool       `db:"has_waiver" json:"has_waiver"`
	CurrentExerciseID *string    `db:"current_exercise_id" json:"current_exercise_id,omitempty"`
	NextExerciseID    *string    `db:"next_exercise_id" json:"next_exercise_id,omitempty"`
	NoShowCount       int        `db:"no_show_count" json:"no_show_count"`
	GraduatedAt       *time.Time `db:"graduated_at" json:"graduated_at,omitempty"`
	Active            bool       `db:"active" json:"active"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	CourseID  string
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
