package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skyward/fts-api/internal/models"
)

// LogbookRepository handles persistence of logbook entries.
type LogbookRepository struct {
	db *sqlx.DB
}

// NewLogbookRepository constructs the repository.
func NewLogbookRepository(db *sqlx.DB) *LogbookRepository {
	return &LogbookRepository{db: db}
}

const logbookColumns = `id, course_id, student_id, instructor_id, exercise_id, booking_id, session_date, session_minutes, remarks, created_at`

// List returns logbook entries filtered by the provided criteria.
func (r *LogbookRepository) List(ctx context.Context, filter models.LogbookFilter) ([]models.LogbookEntry, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("session_date >= $%d", len(args)+1))
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("session_date <= $%d", len(args)+1))
		args = append(args, filter.To.UTC())
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM logbook_entries%s ORDER BY session_date ASC LIMIT %d OFFSET %d",
		logbookColumns, clause, size, offset)

	var entries []models.LogbookEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list logbook entries: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM logbook_entries" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count logbook entries: %w", err)
	}
	return entries, total, nil
}

// Create persists a new logbook entry.
func (r *LogbookRepository) Create(ctx context.Context, entry *models.LogbookEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO logbook_entries (id, course_id, student_id, instructor_id, exercise_id, booking_id, session_date, session_minutes, remarks, created_at)
        VALUES (:id, :course_id, :student_id, :instructor_id, :exercise_id, :booking_id, :session_date, :session_minutes, :remarks, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create logbook entry: %w", err)
	}
	return nil
}

// TotalMinutes sums logged session time for a student in a course.
func (r *LogbookRepository) TotalMinutes(ctx context.Context, courseID, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(session_minutes), 0) FROM logbook_entries WHERE course_id = $1 AND student_id = $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, courseID, studentID); err != nil {
		return 0, fmt.Errorf("total logbook minutes: %w", err)
	}
	return total, nil
}
