package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	"github.com/evalio/evalio-api/internal/repository"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type responseRepository interface {
	Submit(ctx context.Context, params repository.SubmitParams) (*models.EvaluationResponse, error)
}

type submissionMetrics interface {
	RecordSubmissionCommitted()
	RecordSubmissionRejected(reason string)
}

type statsInvalidator interface {
	InvalidateEvaluation(ctx context.Context, evaluationID string)
}

// SubmitResponseRequest is the anonymous submission payload. The code stands
// in for any student identity.
type SubmitResponseRequest struct {
	Code      string                `json:"code" validate:"required,len=6"`
	TeacherID string                `json:"teacher_id" validate:"required,uuid"`
	SubjectID string                `json:"subject_id" validate:"required,uuid"`
	ClassID   string                `json:"class_id" validate:"required,uuid"`
	Criteria  models.CriteriaScores `json:"criteria" validate:"required"`
	Comment   *string               `json:"comment" validate:"omitempty,max=2000"`
}

// ResponseService accepts anonymous submissions. All correctness-critical
// checks on the code happen inside the repository transaction; the service
// only pre-screens so obviously bad requests never open a transaction.
type ResponseService struct {
	responses   responseRepository
	codes       accessCodeRepository
	evaluations codeEvaluationFinder
	stats       statsInvalidator
	metrics     submissionMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewResponseService constructs a ResponseService.
func NewResponseService(responses responseRepository, codes accessCodeRepository, evaluations codeEvaluationFinder, stats statsInvalidator, metrics submissionMetrics, validate *validator.Validate, logger *zap.Logger) *ResponseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseService{
		responses:   responses,
		codes:       codes,
		evaluations: evaluations,
		stats:       stats,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit records one anonymous response and consumes its access code. The
// evaluation window is re-checked here even after a successful verify,
// because the window can close between the two calls.
func (s *ResponseService) Submit(ctx context.Context, req SubmitResponseRequest) (*models.EvaluationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.reject("validation")
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	code, err := s.codes.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(req.Code)))
	if err != nil {
		if err == sql.ErrNoRows {
			s.reject("invalid_code")
			return nil, appErrors.ErrInvalidAccessCode
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up code")
	}
	if code.Used {
		s.reject("code_used")
		return nil, appErrors.ErrCodeAlreadyUsed
	}

	evaluation, err := s.evaluations.FindByID(ctx, code.EvaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	if !evaluation.AcceptsResponsesAt(s.now()) {
		s.reject("window_closed")
		return nil, appErrors.ErrWindowClosed
	}

	response, err := s.responses.Submit(ctx, repository.SubmitParams{
		EvaluationID: evaluation.ID,
		SchoolID:     evaluation.SchoolID,
		AccessCodeID: code.ID,
		TeacherID:    req.TeacherID,
		SubjectID:    req.SubjectID,
		ClassID:      req.ClassID,
		Criteria:     req.Criteria,
		Comment:      normalizeOptional(req.Comment),
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case appErrors.ErrCodeAlreadyUsed.Code:
				s.reject("code_used")
			case appErrors.ErrInvalidAccessCode.Code:
				s.reject("invalid_code")
			case appErrors.ErrValidation.Code:
				s.reject("unknown_reference")
			}
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	if s.metrics != nil {
		s.metrics.RecordSubmissionCommitted()
	}
	if s.stats != nil {
		s.stats.InvalidateEvaluation(ctx, evaluation.ID)
	}
	s.logger.Info("response submitted",
		zap.String("evaluation_id", evaluation.ID),
		zap.String("response_id", response.ID))
	return response, nil
}

func (s *ResponseService) reject(reason string) {
	if s.metrics != nil {
		s.metrics.RecordSubmissionRejected(reason)
	}
}
