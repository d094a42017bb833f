package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/repository"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type mockResponseRepo struct {
	params  []repository.SubmitParams
	result  *models.EvaluationResponse
	err     error
	consume func(accessCodeID string)
}

func (m *mockResponseRepo) Submit(ctx context.Context, params repository.SubmitParams) (*models.EvaluationResponse, error) {
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.consume != nil {
		m.consume(params.AccessCodeID)
	}
	if m.result != nil {
		return m.result, nil
	}
	return &models.EvaluationResponse{
		ID:           uuid.NewString(),
		EvaluationID: params.EvaluationID,
		TeacherID:    params.TeacherID,
		SubjectID:    params.SubjectID,
		ClassID:      params.ClassID,
		AccessCodeID: params.AccessCodeID,
		Preparation:  params.Criteria.Preparation,
		Explanation:  params.Criteria.Explanation,
		Engagement:   params.Criteria.Engagement,
		Atmosphere:   params.Criteria.Atmosphere,
		Individual:   params.Criteria.Individual,
		Comment:      params.Comment,
		CreatedAt:    time.Now(),
	}, nil
}

type mockStatsInvalidator struct {
	invalidated []string
}

func (m *mockStatsInvalidator) InvalidateEvaluation(ctx context.Context, evaluationID string) {
	m.invalidated = append(m.invalidated, evaluationID)
}

func validSubmission(code string) SubmitResponseRequest {
	return SubmitResponseRequest{
		Code:      code,
		TeacherID: uuid.NewString(),
		SubjectID: uuid.NewString(),
		ClassID:   uuid.NewString(),
		Criteria: models.CriteriaScores{
			Preparation: 5,
			Explanation: 4,
			Engagement:  5,
			Atmosphere:  3,
			Individual:  4,
		},
	}
}

func newResponseService(responses *mockResponseRepo, codes *mockCodeRepo, evaluations *mockEvalFinder, stats *mockStatsInvalidator, metrics *mockCodeMetrics) *ResponseService {
	return NewResponseService(responses, codes, evaluations, stats, metrics, validator.New(), zap.NewNop())
}

func TestResponseServiceSubmit(t *testing.T) {
	codes := newMockCodeRepo()
	codes.add(&models.AccessCode{ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD", ClassName: "3.A"})
	evaluations := &mockEvalFinder{items: map[string]*models.Evaluation{"eval-1": openEvaluation("eval-1", "school-1")}}
	responses := &mockResponseRepo{}
	stats := &mockStatsInvalidator{}
	metrics := &mockCodeMetrics{}
	service := newResponseService(responses, codes, evaluations, stats, metrics)

	req := validSubmission("ab23cd")
	comment := "  great teacher  "
	req.Comment = &comment

	response, err := service.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, responses.params, 1)

	params := responses.params[0]
	assert.Equal(t, "eval-1", params.EvaluationID)
	assert.Equal(t, "school-1", params.SchoolID)
	assert.Equal(t, "code-1", params.AccessCodeID)
	require.NotNil(t, params.Comment)
	assert.Equal(t, "great teacher", *params.Comment)

	assert.Equal(t, "eval-1", response.EvaluationID)
	assert.Equal(t, 1, metrics.committed)
	assert.Equal(t, []string{"eval-1"}, stats.invalidated)
}

func TestResponseServiceSubmitInvalidScores(t *testing.T) {
	responses := &mockResponseRepo{}
	service := newResponseService(responses, newMockCodeRepo(), &mockEvalFinder{}, &mockStatsInvalidator{}, &mockCodeMetrics{})

	req := validSubmission("AB23CD")
	req.Criteria.Preparation = 6

	_, err := service.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, responses.params, "invalid payload must not open a transaction")
}

func TestResponseServiceSubmitUnknownCode(t *testing.T) {
	responses := &mockResponseRepo{}
	metrics := &mockCodeMetrics{}
	service := newResponseService(responses, newMockCodeRepo(), &mockEvalFinder{}, &mockStatsInvalidator{}, metrics)

	_, err := service.Submit(context.Background(), validSubmission("ZZZZZZ"))
	require.ErrorIs(t, err, appErrors.ErrInvalidAccessCode)
	assert.Empty(t, responses.params)
	assert.Equal(t, 1, metrics.rejected["invalid_code"])
}

func TestResponseServiceSubmitUsedCode(t *testing.T) {
	codes := newMockCodeRepo()
	codes.add(&models.AccessCode{ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD", Used: true})
	metrics := &mockCodeMetrics{}
	service := newResponseService(&mockResponseRepo{}, codes, &mockEvalFinder{}, &mockStatsInvalidator{}, metrics)

	_, err := service.Submit(context.Background(), validSubmission("AB23CD"))
	require.ErrorIs(t, err, appErrors.ErrCodeAlreadyUsed)
	assert.Equal(t, 1, metrics.rejected["code_used"])
}

func TestResponseServiceSubmitWindowClosed(t *testing.T) {
	codes := newMockCodeRepo()
	codes.add(&models.AccessCode{ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD"})
	evaluation := openEvaluation("eval-1", "school-1")
	evaluation.EndDate = time.Now().Add(-time.Hour)
	evaluations := &mockEvalFinder{items: map[string]*models.Evaluation{"eval-1": evaluation}}
	responses := &mockResponseRepo{}
	metrics := &mockCodeMetrics{}
	service := newResponseService(responses, codes, evaluations, &mockStatsInvalidator{}, metrics)

	_, err := service.Submit(context.Background(), validSubmission("AB23CD"))
	require.ErrorIs(t, err, appErrors.ErrWindowClosed)
	assert.Empty(t, responses.params)
	assert.Equal(t, 1, metrics.rejected["window_closed"])
}

func TestResponseServiceSubmitLosesRaceOnCode(t *testing.T) {
	// The pre-screen saw an unused code but the transaction found it
	// consumed, as happens when two submissions race on one code.
	codes := newMockCodeRepo()
	codes.add(&models.AccessCode{ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD"})
	evaluations := &mockEvalFinder{items: map[string]*models.Evaluation{"eval-1": openEvaluation("eval-1", "school-1")}}
	responses := &mockResponseRepo{err: appErrors.ErrCodeAlreadyUsed}
	stats := &mockStatsInvalidator{}
	metrics := &mockCodeMetrics{}
	service := newResponseService(responses, codes, evaluations, stats, metrics)

	_, err := service.Submit(context.Background(), validSubmission("AB23CD"))
	require.ErrorIs(t, err, appErrors.ErrCodeAlreadyUsed)
	assert.Equal(t, 0, metrics.committed)
	assert.Empty(t, stats.invalidated)
	assert.Equal(t, 1, metrics.rejected["code_used"])
}

func TestResponseServiceSubmitConsumesCodeOnce(t *testing.T) {
	codes := newMockCodeRepo()
	codes.add(&models.AccessCode{ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD"})
	evaluations := &mockEvalFinder{items: map[string]*models.Evaluation{"eval-1": openEvaluation("eval-1", "school-1")}}
	responses := &mockResponseRepo{consume: func(accessCodeID string) {
		codes.items[accessCodeID].Used = true
		codes.byCode["AB23CD"].Used = true
	}}
	metrics := &mockCodeMetrics{}
	service := newResponseService(responses, codes, evaluations, &mockStatsInvalidator{}, metrics)

	_, err := service.Submit(context.Background(), validSubmission("AB23CD"))
	require.NoError(t, err)

	_, err = service.Submit(context.Background(), validSubmission("AB23CD"))
	require.ErrorIs(t, err, appErrors.ErrCodeAlreadyUsed)
	assert.Len(t, responses.params, 1)
	assert.Equal(t, 1, metrics.committed)
}
