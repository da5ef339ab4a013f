package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skyward/fts-api/internal/models"
)

// SlotRepository handles persistence of availability slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, course_id, student_id, start_time, end_time, week, year, status, created_at`

// List returns slots filtered by the provided criteria, newest first.
func (r *SlotRepository) List(ctx context.Context, filter models.SlotFilter) ([]models.Slot, int, error) {
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
	if filter.Week > 0 {
		conditions = append(conditions, fmt.Sprintf("week = $%d", len(args)+1))
		args = append(args, filter.Week)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM availability_slots%s ORDER BY start_time ASC LIMIT %d OFFSET %d",
		slotColumns, clause, size, offset)

	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list slots: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM availability_slots" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count slots: %w", err)
	}
	return slots, total, nil
}

// FindByID returns a slot by its ID.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf("SELECT %s FROM availability_slots WHERE id = $1", slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ExistsDuplicate checks the (course, student, start, end) uniqueness rule.
func (r *SlotRepository) ExistsDuplicate(ctx context.Context, courseID, studentID string, start, end time.Time) (bool, error) {
	const query = `SELECT 1 FROM availability_slots WHERE course_id = $1 AND student_id = $2 AND start_time = $3 AND end_time = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, studentID, start.UTC(), end.UTC()); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate slot: %w", err)
	}
	return true, nil
}

// Create persists a new availability slot.
func (r *SlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.Slot) error {
	if exec == nil {
		exec = r.db
	}
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.Status == "" {
		slot.Status = models.SlotStatusPosted
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO availability_slots (id, course_id, student_id, start_time, end_time, week, year, status, created_at)
        VALUES (:id, :course_id, :student_id, :start_time, :end_time, :week, :year, :status, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, slot); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// MarkBooked flips a posted slot to booked inside the booking transaction.
// Returns sql.ErrNoRows when the slot was already claimed.
func (r *SlotRepository) MarkBooked(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE availability_slots SET status = $2 WHERE id = $1 AND status = $3`
	res, err := exec.ExecContext(ctx, query, id, models.SlotStatusBooked, models.SlotStatusPosted)
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark slot booked: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Release returns a booked slot to the posted state after cancellation.
func (r *SlotRepository) Release(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE availability_slots SET status = $2 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, models.SlotStatusPosted); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

// Delete removes a posted slot row. The status guard mirrors MarkBooked: a
// concurrent booking flips the slot to BOOKED first, so the delete affects
// zero rows and returns sql.ErrNoRows instead of orphaning the booking.
func (r *SlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if exec == nil {
		exec = r.db
	}
	const query = `DELETE FROM availability_slots WHERE id = $1 AND status = $2`
	res, err := exec.ExecContext(ctx, query, id, models.SlotStatusPosted)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActiveByStudent counts posted slots for a student within a course.
func (r *SlotRepository) CountActiveByStudent(ctx context.Context, courseID, studentID string) (int, error) {
	const query = `SELECT COUNT(*) FROM availability_slots WHERE course_id = $1 AND student_id = $2 AND status = $3`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, studentID, models.SlotStatusPosted); err != nil {
		return 0, fmt.Errorf("count active slots: %w", err)
	}
	return count, nil
}
