package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/skyward/fts-api/internal/models"
)

// PolicyRepository loads and stores per-course progression policies.
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository constructs the repository.
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// FindByCourse returns the course policy, falling back to documented defaults
// when no row exists. Stored values are normalized before use.
func (r *PolicyRepository) FindByCourse(ctx context.Context, courseID string) (*models.ProgressionPolicy, error) {
	const query = `SELECT course_id, posting_wait_days, recency_weight, slot_count_weight, activity_weight,
        completion_weight, require_lesson_completion, graduation_exercise_id, updated_at
        FROM course_policies WHERE course_id = $1`
	var policy models.ProgressionPolicy
	if err := r.db.GetContext(ctx, &policy, query, courseID); err != nil {
		if err == sql.ErrNoRows {
			fallback := models.DefaultProgressionPolicy(courseID)
			return &fallback, nil
		}
		return nil, fmt.Errorf("find course policy: %w", err)
	}
	policy.Normalize()
	return &policy, nil
}

// Upsert stores the policy for a course.
func (r *PolicyRepository) Upsert(ctx context.Context, policy *models.ProgressionPolicy) error {
	policy.Normalize()
	policy.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO course_policies (course_id, posting_wait_days, recency_weight, slot_count_weight,
        activity_weight, completion_weight, require_lesson_completion, graduation_exercise_id, updated_at)
        VALUES (:course_id, :posting_wait_days, :recency_weight, :slot_count_weight,
        :activity_weight, :completion_weight, :require_lesson_completion, :graduation_exercise_id, :updated_at)
        ON CONFLICT (course_id) DO UPDATE SET
        posting_wait_days = EXCLUDED.posting_wait_days,
        recency_weight = EXCLUDED.recency_weight,
        slot_count_weight = EXCLUDED.slot_count_weight,
        activity_weight = EXCLUDED.activity_weight,
        completion_weight = EXCLUDED.completion_weight,
        require_lesson_completion = EXCLUDED.require_lesson_completion,
        graduation_exercise_id = EXCLUDED.graduation_exercise_id,
        updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert course policy: %w", err)
	}
	return nil
}
