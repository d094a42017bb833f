package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

type subjectRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// CreateSubjectRequest represents payload for creating subjects.
type CreateSubjectRequest struct {
	SchoolID *string `json:"school_id" validate:"omitempty,uuid"`
	Name     string  `json:"name" validate:"required,max=200"`
}

// UpdateSubjectRequest represents payload for renaming subjects.
type UpdateSubjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// SubjectService manages the taught-course roster per school.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs a SubjectService.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns the subjects of the actor's school.
func (s *SubjectService) List(ctx context.Context, actor *models.JWTClaims, schoolID *string) ([]models.Subject, error) {
	resolved, err := resolveSchoolID(actor, schoolID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.repo.ListBySchool(ctx, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// Get returns a subject by id, enforcing the actor's school boundary.
func (s *SubjectService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if err := ensureSchoolScope(actor, subject.SchoolID); err != nil {
		return nil, err
	}
	return subject, nil
}

// Create registers a new subject in the actor's school.
func (s *SubjectService) Create(ctx context.Context, actor *models.JWTClaims, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	schoolID, err := resolveSchoolID(actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	subject := &models.Subject{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// Update renames an existing subject.
func (s *SubjectService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	subject.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject.
func (s *SubjectService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}
