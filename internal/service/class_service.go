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

type classRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
	HasResponses(ctx context.Context, id string) (bool, error)
	HasOpenEvaluations(ctx context.Context, schoolID string) (bool, error)
	ListAssignments(ctx context.Context, classID string) ([]models.ClassAssignmentDetail, error)
	ReplaceAssignments(ctx context.Context, classID string, assignments []models.ClassAssignment) error
}

// CreateClassRequest represents payload for creating classes.
type CreateClassRequest struct {
	SchoolID *string `json:"school_id" validate:"omitempty,uuid"`
	Name     string  `json:"name" validate:"required,max=100"`
}

// UpdateClassRequest represents payload for renaming classes.
type UpdateClassRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// AssignmentItem is one teacher+subject pairing inside an assignment update.
type AssignmentItem struct {
	TeacherID string `json:"teacher_id" validate:"required,uuid"`
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

// SetAssignmentsRequest replaces the full teaching plan of a class.
type SetAssignmentsRequest struct {
	Assignments []AssignmentItem `json:"assignments" validate:"required,dive"`
}

// ClassService manages classes and their teacher/subject assignments.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs a ClassService.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns the classes of the actor's school.
func (s *ClassService) List(ctx context.Context, actor *models.JWTClaims, schoolID *string) ([]models.Class, error) {
	resolved, err := resolveSchoolID(actor, schoolID)
	if err != nil {
		return nil, err
	}
	classes, err := s.repo.ListBySchool(ctx, resolved)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns a class by id, enforcing the actor's school boundary.
func (s *ClassService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := ensureSchoolScope(actor, class.SchoolID); err != nil {
		return nil, err
	}
	return class, nil
}

// Create registers a new class in the actor's school.
func (s *ClassService) Create(ctx context.Context, actor *models.JWTClaims, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	schoolID, err := resolveSchoolID(actor, req.SchoolID)
	if err != nil {
		return nil, err
	}
	class := &models.Class{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update renames an existing class.
func (s *ClassService) Update(ctx context.Context, actor *models.JWTClaims, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	class.Name = strings.TrimSpace(req.Name)
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class unless its school has an open evaluation or
// submitted responses already reference it.
func (s *ClassService) Delete(ctx context.Context, actor *models.JWTClaims, id string) error {
	class, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	open, err := s.repo.HasOpenEvaluations(ctx, class.SchoolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open evaluations")
	}
	if open {
		return appErrors.Clone(appErrors.ErrConflict, "school has an open evaluation, classes cannot be deleted")
	}
	hasResponses, err := s.repo.HasResponses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class responses")
	}
	if hasResponses {
		return appErrors.Clone(appErrors.ErrConflict, "class has recorded responses and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// Assignments returns the teaching plan of a class.
func (s *ClassService) Assignments(ctx context.Context, actor *models.JWTClaims, classID string) ([]models.ClassAssignmentDetail, error) {
	if _, err := s.Get(ctx, actor, classID); err != nil {
		return nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// SetAssignments replaces the teaching plan of a class in one transaction.
func (s *ClassService) SetAssignments(ctx context.Context, actor *models.JWTClaims, classID string, req SetAssignmentsRequest) ([]models.ClassAssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignments payload")
	}
	if _, err := s.Get(ctx, actor, classID); err != nil {
		return nil, err
	}

	assignments := make([]models.ClassAssignment, 0, len(req.Assignments))
	seen := make(map[string]struct{}, len(req.Assignments))
	for _, item := range req.Assignments {
		key := item.TeacherID + ":" + item.SubjectID
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate teacher and subject pairing")
		}
		seen[key] = struct{}{}
		assignments = append(assignments, models.ClassAssignment{
			ClassID:   classID,
			TeacherID: item.TeacherID,
			SubjectID: item.SubjectID,
		})
	}

	if err := s.repo.ReplaceAssignments(ctx, classID, assignments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace assignments")
	}
	return s.repo.ListAssignments(ctx, classID)
}
