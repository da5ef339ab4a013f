package dto

// EnrollStudentRequest enrolls an existing user into a course.
type EnrollStudentRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid4"`
	CourseID string `json:"course_id" validate:"required"`
}

// SetWaiverRequest toggles the posting-wait waiver for a student.
type SetWaiverRequest struct {
	HasWaiver bool `json:"has_waiver"`
}

// SetLessonsCompleteRequest toggles the lesson-completion flag.
type SetLessonsCompleteRequest struct {
	Complete bool `json:"complete"`
}
