package models

import "time"

// LogbookEntry records a completed training session in the student's logbook.
// SessionMinutes holds flight/session time; display formatting to HH:MM is a
// presentation concern.
type LogbookEntry struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	InstructorID   string    `db:"instructor_id" json:"instructor_id"`
	ExerciseID     string    `db:"exercise_id" json:"exercise_id"`
	BookingID      *string   `db:"booking_id" json:"booking_id,omitempty"`
	SessionDate    time.Time `db:"session_date" json:"session_date"`
	SessionMinutes int       `db:"session_minutes" json:"session_minutes"`
	Remarks        *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// LogbookFilter provides filters for listing logbook entries.
type LogbookFilter struct {
	CourseID  string
	StudentID string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
