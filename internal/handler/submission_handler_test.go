package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/repository"
	"github.com/evalio/evalio-api/internal/service"
)

type fakeCodeStore struct {
	codes map[string]*models.AccessCode
}

func (f *fakeCodeStore) Create(ctx context.Context, code *models.AccessCode) error { return nil }

func (f *fakeCodeStore) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	if found, ok := f.codes[code]; ok {
		cp := *found
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCodeStore) FindByID(ctx context.Context, id string) (*models.AccessCode, error) {
	for _, code := range f.codes {
		if code.ID == id {
			cp := *code
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCodeStore) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.AccessCode, error) {
	return nil, nil
}

func (f *fakeCodeStore) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeCodeStore) DeleteForEvaluation(ctx context.Context, evaluationID string) (int64, error) {
	return 0, nil
}

type fakeEvaluationStore struct {
	evaluation *models.Evaluation
}

func (f *fakeEvaluationStore) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if f.evaluation != nil && f.evaluation.ID == id {
		cp := *f.evaluation
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type fakeResponseStore struct {
	submitted []repository.SubmitParams
	err       error
}

func (f *fakeResponseStore) Submit(ctx context.Context, params repository.SubmitParams) (*models.EvaluationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, params)
	return &models.EvaluationResponse{
		ID:           "resp-1",
		EvaluationID: params.EvaluationID,
		AccessCodeID: params.AccessCodeID,
		CreatedAt:    time.Now(),
	}, nil
}

func submissionFixture() (*SubmissionHandler, *fakeResponseStore) {
	codes := &fakeCodeStore{codes: map[string]*models.AccessCode{
		"AB23CD": {ID: "code-1", EvaluationID: "eval-1", Code: "AB23CD", ClassName: "3.A"},
	}}
	now := time.Now()
	evaluations := &fakeEvaluationStore{evaluation: &models.Evaluation{
		ID:        "eval-1",
		SchoolID:  "school-1",
		Name:      "Winter term",
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		Active:    true,
	}}
	responses := &fakeResponseStore{}

	codeSvc := service.NewAccessCodeService(codes, evaluations, nil, validator.New(), zap.NewNop())
	responseSvc := service.NewResponseService(responses, codes, evaluations, nil, nil, validator.New(), zap.NewNop())
	return NewSubmissionHandler(codeSvc, responseSvc), responses
}

func postJSON(t *testing.T, h gin.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h(c)
	return rec
}

func TestSubmissionHandlerVerify(t *testing.T) {
	h, _ := submissionFixture()

	rec := postJSON(t, h.Verify, "/public/verify", VerifyCodeRequest{Code: "ab23cd"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data service.VerifyCodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "eval-1", envelope.Data.EvaluationID)
	assert.Equal(t, "3.A", envelope.Data.ClassName)
}

func TestSubmissionHandlerVerifyUnknownCode(t *testing.T) {
	h, _ := submissionFixture()

	rec := postJSON(t, h.Verify, "/public/verify", VerifyCodeRequest{Code: "ZZZZZZ"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_ACCESS_CODE", envelope.Error.Code)
}

func TestSubmissionHandlerSubmit(t *testing.T) {
	h, responses := submissionFixture()

	rec := postJSON(t, h.Submit, "/public/responses", service.SubmitResponseRequest{
		Code:      "AB23CD",
		TeacherID: uuid.NewString(),
		SubjectID: uuid.NewString(),
		ClassID:   uuid.NewString(),
		Criteria: models.CriteriaScores{
			Preparation: 5, Explanation: 4, Engagement: 5, Atmosphere: 3, Individual: 4,
		},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, responses.submitted, 1)
	assert.Equal(t, "school-1", responses.submitted[0].SchoolID)
}

func TestSubmissionHandlerSubmitBadScores(t *testing.T) {
	h, responses := submissionFixture()

	rec := postJSON(t, h.Submit, "/public/responses", service.SubmitResponseRequest{
		Code:      "AB23CD",
		TeacherID: uuid.NewString(),
		SubjectID: uuid.NewString(),
		ClassID:   uuid.NewString(),
		Criteria: models.CriteriaScores{
			Preparation: 9, Explanation: 4, Engagement: 5, Atmosphere: 3, Individual: 4,
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, responses.submitted)
}
