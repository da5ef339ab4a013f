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

// StudentRepository manages persistence for per-course student snapshots.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, user_id, course_id, full_name, enrolled_at, last_graded_at, last_booked_at,
        active_slot_count, activity_count, lessons_complete, has_waiver, current_exercise_id, next_exercise_id,
        no_show_count, graduated_at, active, created_at, updated_at`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(full_name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"full_name":   "full_name",
		"enrolled_at": "enrolled_at",
		"created_at":  "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM course_students%s ORDER BY %s %s LIMIT %d OFFSET %d",
		studentColumns, clause, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM course_students" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student snapshot by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM course_students WHERE id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByCourseAndUser fetches a student by course and backing user.
func (r *StudentRepository) FindByCourseAndUser(ctx context.Context, courseID, userID string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM course_students WHERE course_id = $1 AND user_id = $2", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, courseID, userID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student snapshot row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.EnrolledAt.IsZero() {
		student.EnrolledAt = now
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO course_students (id, user_id, course_id, full_name, enrolled_at, last_graded_at, last_booked_at,
        active_slot_count, activity_count, lessons_complete, has_waiver, current_exercise_id, next_exercise_id,
        no_show_count, graduated_at, active, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :full_name, :enrolled_at, :last_graded_at, :last_booked_at,
        :active_slot_count, :activity_count, :lessons_complete, :has_waiver, :current_exercise_id, :next_exercise_id,
        :no_show_count, :graduated_at, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// SetWaiver toggles the posting-wait waiver flag.
func (r *StudentRepository) SetWaiver(ctx context.Context, id string, hasWaiver bool) error {
	const query = `UPDATE course_students SET has_waiver = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hasWaiver, time.Now().UTC()); err != nil {
		return fmt.Errorf("set waiver: %w", err)
	}
	return nil
}

// TouchLastBooked records the slot start of the most recent booked session.
// Runs inside the booking transaction when exec is a *sqlx.Tx.
func (r *StudentRepository) TouchLastBooked(ctx context.Context, exec sqlx.ExtContext, id string, bookedAt time.Time) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE course_students SET last_booked_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, bookedAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("touch last booked: %w", err)
	}
	return nil
}

// TouchLastGraded records the most recent grading date and advances the
// exercise pointers.
func (r *StudentRepository) TouchLastGraded(ctx context.Context, id string, gradedAt time.Time, currentExerciseID, nextExerciseID *string) error {
	const query = `UPDATE course_students SET last_graded_at = $2, current_exercise_id = $3, next_exercise_id = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, gradedAt.UTC(), currentExerciseID, nextExerciseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch last graded: %w", err)
	}
	return nil
}

// AdjustActiveSlotCount shifts the cached active availability count.
func (r *StudentRepository) AdjustActiveSlotCount(ctx context.Context, exec sqlx.ExtContext, id string, delta int) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE course_students SET active_slot_count = GREATEST(active_slot_count + $2, 0), updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("adjust slot count: %w", err)
	}
	return nil
}

// IncrementNoShow bumps the no-show counter used by the suspension policy.
func (r *StudentRepository) IncrementNoShow(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if exec == nil {
		exec = r.db
	}
	const query = `UPDATE course_students SET no_show_count = no_show_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment no-show: %w", err)
	}
	return nil
}

// IncrementActivity bumps the graded-activity counter feeding the priority
// scorer.
func (r *StudentRepository) IncrementActivity(ctx context.Context, id string) error {
	const query = `UPDATE course_students SET activity_count = activity_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment activity: %w", err)
	}
	return nil
}

// SetGraduated stamps certification time for the student.
func (r *StudentRepository) SetGraduated(ctx context.Context, id string, graduatedAt time.Time) error {
	const query = `UPDATE course_students SET graduated_at = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, graduatedAt.UTC(), time.Now().UTC()); err != nil {
		return fmt.Errorf("set graduated: %w", err)
	}
	return nil
}

// SetLessonsComplete updates the lesson-completion flag fed by the LMS sync.
func (r *StudentRepository) SetLessonsComplete(ctx context.Context, id string, complete bool) error {
	const query = `UPDATE course_students SET lessons_complete = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, complete, time.Now().UTC()); err != nil {
		return fmt.Errorf("set lessons complete: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE course_students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
