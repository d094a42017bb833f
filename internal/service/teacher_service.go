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

type teacherRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	SchoolID *string `json:"school_id" validate:"omitempty,uuid"`
	Name     string  `json:"name" validate:"required,max=200"`
}

// UpdateTeacherRequest represents payload for renaming teachers.
type UpdateTeacherRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// TeacherService manages the evaluated instructor roster per school.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns the teachers of the actor's school (or a requested school for
// admins).
func (s *TeacherService) List(ctx context.Context, actor *models.JWTClaims, schoolID *string) ([]models.Teacher, error) {
	resolved, err := resolveSchoolID(actor, schoolID)
	if err != nil {
		return nil, err
	}
	teachers, err := s.repo.ListBySchool(ctx, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Get returns a teacher by id, enforcing the actor's school boundary.
func (s *TeacherService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := ensureSchoolScope(actor, teacher.SchoolID); err != nil {
		return nil, err
	}
	return teacher, nil
}

// Create registers a new teacher in the actor's school.
func (s *TeacherService) Create(ctx context.Context, actor *models.JWTClaims, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	schoolID, err := resolveSchoolID(actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	teacher := &models.Teacher{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update renames an existing teacher.
func (s *TeacherService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	teacher.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher. Historical responses keep the id through the FK,
// so deletion is refused while responses reference it.
func (s *TeacherService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}
