package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type policyRepository interface {
	FindByCourse(ctx context.Context, courseID string) (*models.ProgressionPolicy, error)
	Upsert(ctx context.Context, policy *models.ProgressionPolicy) error
}

// PolicyService exposes the per-course progression policy. Reads fall back
// to the documented defaults when a course has no stored policy.
type PolicyService struct {
	policies   policyRepository
	dashboards dashboardInvalidator
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewPolicyService wires policy administration.
func NewPolicyService(policies policyRepository, dashboards dashboardInvalidator, validate *validator.Validate, logger *zap.Logger) *PolicyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{
		policies:   policies,
		dashboards: dashboards,
		validate:   validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the effective policy for a course.
func (s *PolicyService) Get(ctx context.Context, courseID string) (*models.ProgressionPolicy, error) {
	policy, err := s.policies.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load policy")
	}
	return policy, nil
}

// Update replaces the course policy and invalidates the cached dashboard,
// since every ranking input weight may have changed.
func (s *PolicyService) Update(ctx context.Context, courseID string, req dto.UpdatePolicyRequest) (*models.ProgressionPolicy, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	policy := &models.ProgressionPolicy{
		CourseID:                courseID,
		PostingWaitDays:         req.PostingWaitDays,
		RecencyWeight:           req.RecencyWeight,
		SlotCountWeight:         req.SlotCountWeight,
		ActivityWeight:          req.ActivityWeight,
		CompletionWeight:        req.CompletionWeight,
		RequireLessonCompletion: req.RequireLessonCompletion,
		GraduationExerciseID:    req.GraduationExerciseID,
		UpdatedAt:               s.now(),
	}
	policy.Normalize()

	if err := s.policies.Upsert(ctx, policy); err != nil {
		return nil, fmt.Errorf("upsert policy: %w", err)
	}

	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx, courseID)
	}
	s.logger.Info("policy updated",
		zap.String("course_id", courseID),
		zap.Int("posting_wait_days", policy.PostingWaitDays),
	)
	return policy, nil
}
