package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type mockEvaluationRepo struct {
	items     map[string]*models.Evaluation
	responses map[string]int
	details   []models.ResponseDetail
	deleted   []string
}

func newMockEvaluationRepo() *mockEvaluationRepo {
	return &mockEvaluationRepo{
		items:     make(map[string]*models.Evaluation),
		responses: make(map[string]int),
	}
}

func (m *mockEvaluationRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	for _, evaluation := range m.items {
		if evaluation.SchoolID == schoolID {
			evaluations = append(evaluations, *evaluation)
		}
	}
	return evaluations, nil
}

func (m *mockEvaluationRepo) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if evaluation, ok := m.items[id]; ok {
		cp := *evaluation
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvaluationRepo) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = "generated"
	}
	cp := *evaluation
	m.items[evaluation.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) Update(ctx context.Context, evaluation *models.Evaluation) error {
	cp := *evaluation
	m.items[evaluation.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockEvaluationRepo) CountResponses(ctx context.Context, evaluationID string) (int, error) {
	return m.responses[evaluationID], nil
}

func (m *mockEvaluationRepo) ListResponses(ctx context.Context, evaluationID string) ([]models.ResponseDetail, error) {
	return m.details, nil
}

func newEvaluationService(repo *mockEvaluationRepo) *EvaluationService {
	return NewEvaluationService(repo, validator.New(), zap.NewNop())
}

func TestEvaluationServiceCreate(t *testing.T) {
	repo := newMockEvaluationRepo()
	service := newEvaluationService(repo)

	now := time.Now()
	evaluation, err := service.Create(context.Background(), directorActor("school-1"), CreateEvaluationRequest{
		Name:      "Winter term feedback",
		StartDate: now,
		EndDate:   now.Add(14 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "school-1", evaluation.SchoolID)
	assert.True(t, evaluation.Active)
	assert.Len(t, repo.items, 1)
}

func TestEvaluationServiceCreateInvertedWindow(t *testing.T) {
	service := newEvaluationService(newMockEvaluationRepo())

	now := time.Now()
	_, err := service.Create(context.Background(), directorActor("school-1"), CreateEvaluationRequest{
		Name:      "Winter term feedback",
		StartDate: now,
		EndDate:   now.Add(-time.Hour),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceGetCrossSchoolForbidden(t *testing.T) {
	repo := newMockEvaluationRepo()
	repo.items["eval-1"] = openEvaluation("eval-1", "school-1")
	service := newEvaluationService(repo)

	_, err := service.Get(context.Background(), directorActor("school-2"), "eval-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceGetUnknownNotFound(t *testing.T) {
	service := newEvaluationService(newMockEvaluationRepo())

	_, err := service.Get(context.Background(), directorActor("school-1"), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceUpdateDeactivates(t *testing.T) {
	repo := newMockEvaluationRepo()
	repo.items["eval-1"] = openEvaluation("eval-1", "school-1")
	service := newEvaluationService(repo)

	inactive := false
	evaluation := repo.items["eval-1"]
	updated, err := service.Update(context.Background(), directorActor("school-1"), "eval-1", UpdateEvaluationRequest{
		Name:      evaluation.Name,
		StartDate: evaluation.StartDate,
		EndDate:   evaluation.EndDate,
		Active:    &inactive,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.False(t, updated.AcceptsResponsesAt(time.Now()))
}

func TestEvaluationServiceDeleteWithResponsesConflicts(t *testing.T) {
	repo := newMockEvaluationRepo()
	repo.items["eval-1"] = openEvaluation("eval-1", "school-1")
	repo.responses["eval-1"] = 4
	service := newEvaluationService(repo)

	err := service.Delete(context.Background(), directorActor("school-1"), "eval-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestEvaluationServiceDeleteEmptyEvaluation(t *testing.T) {
	repo := newMockEvaluationRepo()
	repo.items["eval-1"] = openEvaluation("eval-1", "school-1")
	service := newEvaluationService(repo)

	err := service.Delete(context.Background(), directorActor("school-1"), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"eval-1"}, repo.deleted)
}

func TestEvaluationServiceListScopedToSchool(t *testing.T) {
	repo := newMockEvaluationRepo()
	repo.items["eval-1"] = openEvaluation("eval-1", "school-1")
	repo.items["eval-2"] = openEvaluation("eval-2", "school-2")
	service := newEvaluationService(repo)

	evaluations, err := service.List(context.Background(), directorActor("school-1"), nil)
	require.NoError(t, err)
	require.Len(t, evaluations, 1)
	assert.Equal(t, "eval-1", evaluations[0].ID)
}
