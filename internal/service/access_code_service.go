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
	"github.com/evalio/evalio-api/pkg/codegen"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

// createAttempts bounds how often one code slot is regenerated after a
// uniqueness collision before giving up.
const createAttempts = 3

type accessCodeRepository interface {
	Create(ctx context.Context, code *models.AccessCode) error
	FindByCode(ctx context.Context, code string) (*models.AccessCode, error)
	FindByID(ctx context.Context, id string) (*models.AccessCode, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]models.AccessCode, error)
	Delete(ctx context.Context, id string) error
	DeleteForEvaluation(ctx context.Context, evaluationID string) (int64, error)
}

type codeEvaluationFinder interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
}

type codeMetrics interface {
	RecordCodesIssued(n int)
}

// GenerateCodesItem asks for a batch of codes bound to one class label.
type GenerateCodesItem struct {
	ClassName string `json:"class_name" validate:"required,max=100"`
	Count     int    `json:"count" validate:"required,gte=1,lte=500"`
}

// GenerateCodesRequest represents payload for issuing access codes.
type GenerateCodesRequest struct {
	Items []GenerateCodesItem `json:"items" validate:"required,min=1,dive"`
}

// VerifyCodeResult is what an anonymous student sees after entering a valid
// code: the campaign they are rating and the class the code belongs to.
type VerifyCodeResult struct {
	AccessCodeID   string  `json:"access_code_id"`
	EvaluationID   string  `json:"evaluation_id"`
	EvaluationName string  `json:"evaluation_name"`
	Description    *string `json:"description,omitempty"`
	ClassName      string  `json:"class_name"`
}

// AccessCodeService issues and verifies the one-time student codes.
type AccessCodeService struct {
	codes       accessCodeRepository
	evaluations codeEvaluationFinder
	metrics     codeMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccessCodeService constructs an AccessCodeService.
func NewAccessCodeService(codes accessCodeRepository, evaluations codeEvaluationFinder, metrics codeMetrics, validate *validator.Validate, logger *zap.Logger) *AccessCodeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessCodeService{
		codes:       codes,
		evaluations: evaluations,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Generate issues fresh unused codes for an evaluation. Each code is retried
// a bounded number of times on a uniqueness collision; running out of
// attempts aborts the batch.
func (s *AccessCodeService) Generate(ctx context.Context, actor *models.JWTClaims, evaluationID string, req GenerateCodesRequest) ([]models.AccessCode, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid code generation payload")
	}
	if _, err := s.findScoped(ctx, actor, evaluationID); err != nil {
		return nil, err
	}

	var issued []models.AccessCode
	for _, item := range req.Items {
		className := strings.TrimSpace(item.ClassName)
		for i := 0; i < item.Count; i++ {
			code, err := s.createOne(ctx, evaluationID, className)
			if err != nil {
				return nil, err
			}
			issued = append(issued, *code)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordCodesIssued(len(issued))
	}
	s.logger.Info("access codes issued",
		zap.String("evaluation_id", evaluationID),
		zap.Int("count", len(issued)))
	return issued, nil
}

func (s *AccessCodeService) createOne(ctx context.Context, evaluationID, className string) (*models.AccessCode, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		value, err := codegen.Generate()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
		}
		code := &models.AccessCode{
			EvaluationID: evaluationID,
			Code:         value,
			ClassName:    className,
		}
		err = s.codes.Create(ctx, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
		}
		s.logger.Warn("access code collision, regenerating",
			zap.String("evaluation_id", evaluationID),
			zap.Int("attempt", attempt+1))
	}
	return nil, appErrors.ErrCodesExhausted
}

// Verify checks a code for an anonymous student without consuming it. The
// code is only marked used when the submission transaction commits, so a
// verified code stays valid until then.
func (s *AccessCodeService) Verify(ctx context.Context, rawCode string) (*VerifyCodeResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawCode))
	if normalized == "" {
		return nil, appErrors.ErrInvalidAccessCode
	}

	code, err := s.codes.FindByCode(ctx, normalized)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrInvalidAccessCode
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up code")
	}
	if code.Used {
		return nil, appErrors.ErrCodeAlreadyUsed
	}

	evaluation, err := s.evaluations.FindByID(ctx, code.EvaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	if !evaluation.AcceptsResponsesAt(s.now()) {
		return nil, appErrors.ErrWindowClosed
	}

	return &VerifyCodeResult{
		AccessCodeID:   code.ID,
		EvaluationID:   evaluation.ID,
		EvaluationName: evaluation.Name,
		Description:    evaluation.Description,
		ClassName:      code.ClassName,
	}, nil
}

// List returns every code of an evaluation so a director can distribute or
// audit them.
func (s *AccessCodeService) List(ctx context.Context, actor *models.JWTClaims, evaluationID string) ([]models.AccessCode, error) {
	if _, err := s.findScoped(ctx, actor, evaluationID); err != nil {
		return nil, err
	}
	codes, err := s.codes.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list codes")
	}
	return codes, nil
}

// Delete revokes a single unused code. Redeemed codes are part of the
// submission record and stay.
func (s *AccessCodeService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	code, err := s.codes.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "access code not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}
	if _, err := s.findScoped(ctx, actor, code.EvaluationID); err != nil {
		return err
	}
	if code.Used {
		return appErrors.Clone(appErrors.ErrConflict, "access code has been redeemed and cannot be deleted")
	}
	if err := s.codes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete code")
	}
	return nil
}

// DeleteForEvaluation revokes every unredeemed code of an evaluation in one
// sweep. Redeemed codes belong to the submission record and are skipped.
func (s *AccessCodeService) DeleteForEvaluation(ctx context.Context, actor *models.JWTClaims, evaluationID string) error {
	if _, err := s.findScoped(ctx, actor, evaluationID); err != nil {
		return err
	}
	removed, err := s.codes.DeleteForEvaluation(ctx, evaluationID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete codes")
	}
	s.logger.Info("access codes revoked",
		zap.String("evaluation_id", evaluationID),
		zap.Int64("count", removed))
	return nil
}

func (s *AccessCodeService) findScoped(ctx context.Context, actor *models.JWTClaims, evaluationID string) (*models.Evaluation, error) {
	evaluation, err := s.evaluations.FindByID(ctx, evaluationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	if err := ensureSchoolScope(actor, evaluation.SchoolID); err != nil {
		return nil, err
	}
	return evaluation, nil
}
