package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type statsRepository interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	CountResponses(ctx context.Context, evaluationID string) (int, error)
	AverageScores(ctx context.Context, evaluationID string) (*models.AverageScores, error)
	CodeCounts(ctx context.Context, evaluationID string) (*models.CodeCounts, error)
}

type statsCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// StatsService aggregates submitted responses per evaluation, with a
// cache-aside layer so dashboards do not hammer the aggregate queries.
// Cache hits and misses are counted by the cache layer itself.
type StatsService struct {
	repo     statsRepository
	cache    statsCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(repo statsRepository, cache statsCache, cacheTTL time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func statsCacheKey(evaluationID string) string {
	return fmt.Sprintf("stats:evaluation:%s", evaluationID)
}

// Get returns the aggregate statistics of one evaluation. With no responses
// every average is zero and the completion rate is zero; the result is never
// NaN.
func (s *StatsService) Get(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*models.EvaluationStats, error) {
	evaluation, err := s.repo.FindByID(ctx, evaluationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	if err := ensureSchoolScope(actor, evaluation.SchoolID); err != nil {
		return nil, err
	}

	key := statsCacheKey(evaluationID)
	if s.cache != nil && s.cache.Enabled() {
		var cached models.EvaluationStats
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.String("evaluation_id", evaluationID), zap.Error(err))
		}
		if hit {
			return &cached, nil
		}
	}

	stats, err := s.compute(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("stats cache write failed", zap.String("evaluation_id", evaluationID), zap.Error(err))
		}
	}
	return stats, nil
}

func (s *StatsService) compute(ctx context.Context, evaluationID string) (*models.EvaluationStats, error) {
	total, err := s.repo.CountResponses(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count responses")
	}

	stats := &models.EvaluationStats{TotalResponses: total}

	if total > 0 {
		averages, err := s.repo.AverageScores(ctx, evaluationID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average scores")
		}
		stats.AverageScores = *averages
	}

	counts, err := s.repo.CodeCounts(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count codes")
	}
	if counts.Total > 0 {
		stats.CompletionRate = float64(counts.Used) / float64(counts.Total)
	}

	return stats, nil
}

// InvalidateEvaluation drops the cached stats after a new submission so the
// next read recomputes.
func (s *StatsService) InvalidateEvaluation(ctx context.Context, evaluationID string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, statsCacheKey(evaluationID)); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.String("evaluation_id", evaluationID), zap.Error(err))
	}
}
