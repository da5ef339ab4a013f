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

// BookingRepository handles persistence of session bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, course_id, student_id, instructor_id, exercise_id, slot_id, start_time, end_time, status, created_at, updated_at`

var activeBookingStatuses = []interface{}{models.BookingStatusTentative, models.BookingStatusConfirmed}

// List returns bookings filtered by the provided criteria.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	base := `FROM bookings b
LEFT JOIN course_students s ON s.id = b.student_id
LEFT JOIN users i ON i.id = b.instructor_id
LEFT JOIN exercises x ON x.id = b.exercise_id`
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("b.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("b.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("b.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, fmt.Sprintf("b.status IN ($%d, $%d)", len(args)+1, len(args)+2))
		args = append(args, activeBookingStatuses...)
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

	query := fmt.Sprintf(`SELECT b.id, b.course_id, b.student_id, b.instructor_id, b.exercise_id, b.slot_id,
        b.start_time, b.end_time, b.status, b.created_at, b.updated_at,
        COALESCE(s.full_name, '') AS student_name, COALESCE(i.full_name, '') AS instructor_name, COALESCE(x.name, '') AS exercise_name
        %s ORDER BY b.start_time ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var bookings []models.BookingDetail
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return bookings, total, nil
}

// FindByID returns a booking by its ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindActiveOverlapping returns the first active booking of either party that
// overlaps the proposed window, or nil. Runs on the provided executor so the
// booking flow can repeat the check inside its transaction.
func (r *BookingRepository) FindActiveOverlapping(ctx context.Context, exec sqlx.ExtContext, instructorID, studentID string, window models.TimeWindow) (*models.Booking, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`SELECT %s FROM bookings
        WHERE (instructor_id = $1 OR student_id = $2)
        AND status IN ($3, $4)
        AND start_time < $5 AND end_time > $6
        ORDER BY start_time ASC LIMIT 1`, bookingColumns)
	var booking models.Booking
	err := sqlx.GetContext(ctx, exec, &booking, query,
		instructorID, studentID,
		models.BookingStatusTentative, models.BookingStatusConfirmed,
		window.End.UTC(), window.Start.UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find overlapping booking: %w", err)
	}
	return &booking, nil
}

// ExistsActiveForExercise enforces the one-active-booking-per-exercise rule.
func (r *BookingRepository) ExistsActiveForExercise(ctx context.Context, exec sqlx.ExtContext, studentID, exerciseID string) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `SELECT 1 FROM bookings WHERE student_id = $1 AND exercise_id = $2 AND status IN ($3, $4) LIMIT 1`
	var exists int
	err := sqlx.GetContext(ctx, exec, &exists, query, studentID, exerciseID,
		models.BookingStatusTentative, models.BookingStatusConfirmed)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active exercise booking: %w", err)
	}
	return true, nil
}

// Create inserts a booking row on the provided executor. The active-booking
// uniqueness is additionally backed by a partial unique index on
// (student_id, exercise_id) WHERE status IN (TENTATIVE, CONFIRMED).
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if exec == nil {
		exec = r.db
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = models.BookingStatusTentative
	}
	const query = `INSERT INTO bookings (id, course_id, student_id, instructor_id, exercise_id, slot_id, start_time, end_time, status, created_at, updated_at)
        VALUES (:id, :course_id, :student_id, :instructor_id, :exercise_id, :slot_id, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// UpdateStatus transitions a booking's lifecycle state.
func (r *BookingRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.BookingStatus) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}

// FindActiveBySlot returns the active booking referencing a slot, if any.
func (r *BookingRepository) FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE slot_id = $1 AND status IN ($2, $3) LIMIT 1`, bookingColumns)
	var booking models.Booking
	err := r.db.GetContext(ctx, &booking, query, slotID,
		models.BookingStatusTentative, models.BookingStatusConfirmed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find booking by slot: %w", err)
	}
	return &booking, nil
}
