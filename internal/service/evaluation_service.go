package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type evaluationRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Evaluation, error)
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	Update(ctx context.Context, evaluation *models.Evaluation) error
	Delete(ctx context.Context, id string) error
	CountResponses(ctx context.Context, evaluationID string) (int, error)
	ListResponses(ctx context.Context, evaluationID string) ([]models.ResponseDetail, error)
}

// CreateEvaluationRequest represents payload for opening a new evaluation.
type CreateEvaluationRequest struct {
	SchoolID    *string   `json:"school_id" validate:"omitempty,uuid"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
}

// UpdateEvaluationRequest represents payload for updating an evaluation.
type UpdateEvaluationRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=2000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
	Active      *bool     `json:"active"`
}

// EvaluationService manages evaluation campaigns and their collected
// responses.
type EvaluationService struct {
	repo      evaluationRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(repo evaluationRepository, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, validator: validate, logger: logger, now: time.Now}
}

// List returns the evaluations of the actor's school.
func (s *EvaluationService) List(ctx context.Context, actor *models.JWTClaims, schoolID *string) ([]models.Evaluation, error) {
	resolved, err := resolveSchoolID(actor, schoolID)
	if err != nil {
		return nil, err
	}
	evaluations, err := s.repo.ListBySchool(ctx, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// Get returns an evaluation by id, enforcing the actor's school boundary.
func (s *EvaluationService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Evaluation, error) {
	evaluation, err := s.repo.FindByID(ctx, id)
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

// Create opens a new evaluation campaign. It starts active.
func (s *EvaluationService) Create(ctx context.Context, actor *models.JWTClaims, req CreateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	schoolID, err := resolveSchoolID(actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	evaluation := &models.Evaluation{
		SchoolID:    schoolID,
		Name:        strings.TrimSpace(req.Name),
		Description: normalizeOptional(req.Description),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Active:      true,
	}
	if err := s.repo.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	s.logger.Info("evaluation created",
		zap.String("evaluation_id", evaluation.ID),
		zap.String("school_id", evaluation.SchoolID))
	return evaluation, nil
}

// Update modifies an evaluation, including closing or reopening its window.
func (s *EvaluationService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	if !req.StartDate.Before(req.EndDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be before end_date")
	}
	evaluation, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	evaluation.Name = strings.TrimSpace(req.Name)
	evaluation.Description = normalizeOptional(req.Description)
	evaluation.StartDate = req.StartDate
	evaluation.EndDate = req.EndDate
	if req.Active != nil {
		evaluation.Active = *req.Active
	}
	if err := s.repo.Update(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}
	return evaluation, nil
}

// Delete removes an evaluation that has not collected any responses yet.
// Evaluations with recorded responses are closed via Update instead, keeping
// the collected data intact.
func (s *EvaluationService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	count, err := s.repo.CountResponses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count responses")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "evaluation has recorded responses and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}
	s.logger.Info("evaluation deleted", zap.String("evaluation_id", id))
	return nil
}

// Responses returns every submitted response of an evaluation, with display
// names joined in. Responses carry no student identity.
func (s *EvaluationService) Responses(ctx context.Context, actor *models.JWTClaims, id string) ([]models.ResponseDetail, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	responses, err := s.repo.ListResponses(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	return responses, nil
}
