package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skyward/fts-api/internal/models"
)

// GradeRepository handles persistence of exercises and grade records.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListExercises returns a course's exercises ordered by position.
func (r *GradeRepository) ListExercises(ctx context.Context, courseID string) ([]models.Exercise, error) {
	const query = `SELECT id, course_id, name, position, created_at FROM exercises WHERE course_id = $1 ORDER BY position ASC`
	var exercises []models.Exercise
	if err := r.db.SelectContext(ctx, &exercises, query, courseID); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

// FindExercise returns an exercise by ID.
func (r *GradeRepository) FindExercise(ctx context.Context, id string) (*models.Exercise, error) {
	const query = `SELECT id, course_id, name, position, created_at FROM exercises WHERE id = $1`
	var exercise models.Exercise
	if err := r.db.GetContext(ctx, &exercise, query, id); err != nil {
		return nil, err
	}
	return &exercise, nil
}

// FindGrade returns a student's grade for an exercise, or nil when none has
// been recorded yet.
func (r *GradeRepository) FindGrade(ctx context.Context, studentID, exerciseID string) (*models.Grade, error) {
	const query = `SELECT id, course_id, student_id, exercise_id, instructor_id, score, passing_score, remarks, graded_at
        FROM grades WHERE student_id = $1 AND exercise_id = $2 ORDER BY graded_at DESC LIMIT 1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, studentID, exerciseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find grade: %w", err)
	}
	return &grade, nil
}

// ListGradesByStudent returns all grade records for a student in a course.
func (r *GradeRepository) ListGradesByStudent(ctx context.Context, courseID, studentID string) ([]models.Grade, error) {
	const query = `SELECT id, course_id, student_id, exercise_id, instructor_id, score, passing_score, remarks, graded_at
        FROM grades WHERE course_id = $1 AND student_id = $2 ORDER BY graded_at ASC`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, courseID, studentID); err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	return grades, nil
}

// CreateGrade persists a new grade record.
func (r *GradeRepository) CreateGrade(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	if grade.GradedAt.IsZero() {
		grade.GradedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grades (id, course_id, student_id, exercise_id, instructor_id, score, passing_score, remarks, graded_at)
        VALUES (:id, :course_id, :student_id, :exercise_id, :instructor_id, :score, :passing_score, :remarks, :graded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}
