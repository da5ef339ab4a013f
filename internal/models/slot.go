package models

import "time"

// SlotStatus represents the lifecycle of an availability slot.
type SlotStatus string

// Possible slot statuses.
const (
	SlotStatusPosted SlotStatus = "POSTED"
	SlotStatusBooked SlotStatus = "BOOKED"
)

// Slot is an availability window a student posted for a training session.
// Unique per (course, student, start, end); it becomes BOOKED when an active
// booking references it.
type Slot struct {
	ID        string     `db:"id" json:"id"`
	CourseID  string     `db:"course_id" json:"course_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   time.Time  `db:"end_time" json:"end_time"`
	Week      int        `db:"week" json:"week"`
	Year      int        `db:"year" json:"year"`
	Status    SlotStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// SlotFilter provides filters for listing availability slots.
type SlotFilter struct {
	CourseID  string
	StudentID string
	Week      int
	Year      int
	Status    SlotStatus
	Page      int
	PageSize  int
}

// TimeWindow is a candidate (start, end) pair used by conflict checks before
// any slot row exists.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(start, end time.Time) bool {
	return start.Before(w.End) && end.After(w.Start)
}
