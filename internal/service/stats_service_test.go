package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type mockStatsRepo struct {
	evaluation *models.Evaluation
	total      int
	averages   *models.AverageScores
	counts     *models.CodeCounts
	countCalls int
}

func (m *mockStatsRepo) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if m.evaluation == nil || m.evaluation.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *m.evaluation
	return &cp, nil
}

func (m *mockStatsRepo) CountResponses(ctx context.Context, evaluationID string) (int, error) {
	m.countCalls++
	return m.total, nil
}

func (m *mockStatsRepo) AverageScores(ctx context.Context, evaluationID string) (*models.AverageScores, error) {
	return m.averages, nil
}

func (m *mockStatsRepo) CodeCounts(ctx context.Context, evaluationID string) (*models.CodeCounts, error) {
	return m.counts, nil
}

type mockStatsCache struct {
	enabled bool
	store   map[string][]byte
	sets    int
	deletes int
}

func newMockStatsCache(enabled bool) *mockStatsCache {
	return &mockStatsCache{enabled: enabled, store: make(map[string][]byte)}
}

func (m *mockStatsCache) Enabled() bool { return m.enabled }

func (m *mockStatsCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mockStatsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	m.sets++
	return nil
}

func (m *mockStatsCache) Invalidate(ctx context.Context, key string) error {
	delete(m.store, key)
	m.deletes++
	return nil
}

func TestStatsServiceGet(t *testing.T) {
	repo := &mockStatsRepo{
		evaluation: openEvaluation("eval-1", "school-1"),
		total:      10,
		averages:   &models.AverageScores{Preparation: 4.2, Explanation: 3.8, Engagement: 4.5, Atmosphere: 4.0, Individual: 3.9},
		counts:     &models.CodeCounts{Total: 25, Used: 10},
	}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	stats, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.TotalResponses)
	assert.InDelta(t, 4.2, stats.AverageScores.Preparation, 0.001)
	assert.InDelta(t, 0.4, stats.CompletionRate, 0.001)
}

func TestStatsServiceGetNoResponses(t *testing.T) {
	repo := &mockStatsRepo{
		evaluation: openEvaluation("eval-1", "school-1"),
		counts:     &models.CodeCounts{},
	}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	stats, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalResponses)
	assert.Zero(t, stats.AverageScores.Preparation)
	assert.Zero(t, stats.CompletionRate)
}

func TestStatsServiceGetZeroCodesZeroRate(t *testing.T) {
	repo := &mockStatsRepo{
		evaluation: openEvaluation("eval-1", "school-1"),
		total:      3,
		averages:   &models.AverageScores{Preparation: 3},
		counts:     &models.CodeCounts{Total: 0, Used: 0},
	}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	stats, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Zero(t, stats.CompletionRate)
}

func TestStatsServiceCacheRoundTrip(t *testing.T) {
	repo := &mockStatsRepo{
		evaluation: openEvaluation("eval-1", "school-1"),
		total:      5,
		averages:   &models.AverageScores{Preparation: 4},
		counts:     &models.CodeCounts{Total: 10, Used: 5},
	}
	cache := newMockStatsCache(true)
	service := NewStatsService(repo, cache, time.Minute, zap.NewNop())

	first, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.countCalls)
	assert.Equal(t, 1, cache.sets)

	second, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.countCalls, "second read must come from cache")
	assert.Equal(t, first.TotalResponses, second.TotalResponses)

	service.InvalidateEvaluation(context.Background(), "eval-1")
	assert.Equal(t, 1, cache.deletes)

	_, err = service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.countCalls, "invalidation must force a recompute")
}

type memoryCacheRepo struct {
	store map[string][]byte
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func TestStatsServiceCacheLookupCountedOnce(t *testing.T) {
	repo := &mockStatsRepo{
		evaluation: openEvaluation("eval-1", "school-1"),
		total:      5,
		averages:   &models.AverageScores{Preparation: 4},
		counts:     &models.CodeCounts{Total: 10, Used: 5},
	}
	metrics := NewMetricsService()
	cache := NewCacheService(&memoryCacheRepo{store: make(map[string][]byte)}, metrics, time.Minute, zap.NewNop(), true)
	service := NewStatsService(repo, cache, time.Minute, zap.NewNop())

	_, err := service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	_, err = service.Get(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
}

func TestStatsServiceCrossSchoolForbidden(t *testing.T) {
	repo := &mockStatsRepo{evaluation: openEvaluation("eval-1", "school-1")}
	service := NewStatsService(repo, nil, time.Minute, zap.NewNop())

	_, err := service.Get(context.Background(), directorActor("school-2"), "eval-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestStatsServiceUnknownEvaluation(t *testing.T) {
	service := NewStatsService(&mockStatsRepo{}, nil, time.Minute, zap.NewNop())

	_, err := service.Get(context.Background(), adminActor(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
