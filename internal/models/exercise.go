package models

import "time"

// Exercise is a gradable course activity students complete in sequence.
// Position orders exercises within a course; the course's graduation exercise
// is the final one whose passing grade certifies completion.
type Exercise struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Position  int       `db:"position" json:"position"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Grade records the outcome of a graded exercise session.
type Grade struct {
	ID           string    `db:"id" json:"id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	ExerciseID   string    `db:"exercise_id" json:"exercise_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Score        float64   `db:"score" json:"score"`
	PassingScore float64   `db:"passing_score" json:"passing_score"`
	Remarks      *string   `db:"remarks" json:"remarks,omitempty"`
	GradedAt     time.Time `db:"graded_at" json:"graded_at"`
}

// IsPassed reports whether the grade meets the passing threshold.
func (g Grade) IsPassed() bool {
	return g.Score >= g.PassingScore
}
