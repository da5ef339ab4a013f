package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/fts-api/internal/dto"
	"github.com/skyward/fts-api/internal/models"
	"github.com/skyward/fts-api/pkg/config"
	appErrors "github.com/skyward/fts-api/pkg/errors"
)

type dashboardStudentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type dashboardPolicyRepository interface {
	FindByCourse(ctx context.Context, courseID string) (*models.ProgressionPolicy, error)
}

type dashboardProgression interface {
	Classify(student *models.Student, policy *models.ProgressionPolicy) models.ProgressionState
	Progress(ctx context.Context, student *models.Student, policy *models.ProgressionPolicy) (ProgressFlags, error)
}

type dashboardRanker interface {
	Rank(students []models.Student, policy *models.ProgressionPolicy, now time.Time) []ScoredStudent
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService builds the instructor's priority-ordered booking queue.
// The composed view is cached per course; mutations that change ranking
// inputs call Invalidate.
type DashboardService struct {
	students    dashboardStudentRepository
	policies    dashboardPolicyRepository
	progression dashboardProgression
	priority    dashboardRanker
	cache       dashboardCache
	cfg         config.DashboardConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService wires the dashboard composer.
func NewDashboardService(
	students dashboardStudentRepository,
	policies dashboardPolicyRepository,
	progression dashboardProgression,
	priority dashboardRanker,
	cache dashboardCache,
	cfg config.DashboardConfig,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:    students,
		policies:    policies,
		progression: progression,
		priority:    priority,
		cache:       cache,
		cfg:         cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func dashboardCacheKey(courseID string) string {
	return fmt.Sprintf("dash:course:%s", courseID)
}

// InstructorDashboard returns the ranked student queue for a course. The
// second return reports whether the response came from cache.
func (s *DashboardService) InstructorDashboard(ctx context.Context, courseID string) (*dto.InstructorDashboardResponse, bool, error) {
	key := dashboardCacheKey(courseID)
	if s.cache != nil && s.cfg.Enabled {
		var cached dto.InstructorDashboardResponse
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, true, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}

	resp, err := s.compose(ctx, courseID)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil && s.cfg.Enabled {
		if err := s.cache.Set(ctx, key, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	return resp, false, nil
}

// Invalidate drops any cached dashboard for the course.
func (s *DashboardService) Invalidate(ctx context.Context, courseID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, dashboardCacheKey(courseID)); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, courseID string) (*dto.InstructorDashboardResponse, error) {
	// The whole active roster ranks, so page until a short page rather
	// than trusting a single window.
	active := true
	var students []models.Student
	for page := 1; ; page++ {
		batch, _, err := s.students.List(ctx, models.StudentFilter{
			CourseID: courseID,
			Active:   &active,
			Page:     page,
			PageSize: 100,
		})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list students")
		}
		students = append(students, batch...)
		if len(batch) < 100 {
			break
		}
	}

	policy, err := s.policies.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load policy")
	}

	now := s.now()
	ranked := s.priority.Rank(students, policy, now)

	entries := make([]dto.RankedStudentEntry, 0, len(ranked))
	for _, item := range ranked {
		flags, err := s.progression.Progress(ctx, item.Student, policy)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "evaluate progress")
		}
		entries = append(entries, dto.RankedStudentEntry{
			StudentID:       item.Student.ID,
			FullName:        item.Student.FullName,
			Score:           item.Score,
			RecencyDays:     item.RecencyDays,
			ActiveSlotCount: item.Student.ActiveSlotCount,
			State:           s.progression.Classify(item.Student, policy),
			NextExerciseID:  item.Student.NextExerciseID,
			Qualified:       flags.Qualified,
			Tested:          flags.Tested,
			Passed:          flags.Passed,
			Graduated:       flags.Graduated,
		})
	}

	return &dto.InstructorDashboardResponse{
		CourseID:    courseID,
		GeneratedAt: now,
		Students:    entries,
	}, nil
}
