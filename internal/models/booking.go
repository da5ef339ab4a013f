package models

import "time"

// BookingStatus represents the lifecycle of a booked session.
type BookingStatus string

// Possible booking statuses.
const (
	BookingStatusTentative BookingStatus = "TENTATIVE"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

// IsActive reports whether the status still reserves the slot.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusTentative || s == BookingStatusConfirmed
}

// Booking is an instructor's reservation of a student's slot against an
// exercise. At most one active booking may exist per (student, exercise).
type Booking struct {
	ID           string        `db:"id" json:"id"`
	CourseID     string        `db:"course_id" json:"course_id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	InstructorID string        `db:"instructor_id" json:"instructor_id"`
	ExerciseID   string        `db:"exercise_id" json:"exercise_id"`
	SlotID       string        `db:"slot_id" json:"slot_id"`
	StartTime    time.Time     `db:"start_time" json:"start_time"`
	EndTime      time.Time     `db:"end_time" json:"end_time"`
	Status       BookingStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingDetail enriches Booking with participant names for list views.
type BookingDetail struct {
	Booking
	StudentName    string `db:"student_name" json:"student_name"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	ExerciseName   string `db:"exercise_name" json:"exercise_name"`
}

// BookingFilter provides filters for listing bookings.
type BookingFilter struct {
	CourseID     string
	StudentID    string
	InstructorID string
	ActiveOnly   bool
	Page         int
	PageSize     int
}
