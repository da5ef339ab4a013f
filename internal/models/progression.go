package models

// ProgressionState classifies a student's coarse training status from
// lesson-completion and posting counts.
type ProgressionState string

// Possible progression states.
const (
	// ProgressionNotCompleted: lesson completion is required and outstanding.
	ProgressionNotCompleted ProgressionState = "NOT_COMPLETED"
	// ProgressionNoPostsCompleted: lessons done (or not required), no posts.
	ProgressionNoPostsCompleted ProgressionState = "NOPOSTS_COMPLETED"
	// ProgressionPostsCompleted: lessons done (or not required), has posts.
	ProgressionPostsCompleted ProgressionState = "POSTS_COMPLETED"
)
