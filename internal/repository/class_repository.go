package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evalio/evalio-api/internal/models"
)

// ClassRepository manages persistence for classes and their teacher/subject
// assignments.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a ClassRepository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListBySchool returns all classes of one school ordered by name.
func (r *ClassRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Class, error) {
	const query = `SELECT id, school_id, name, created_at, updated_at FROM classes WHERE school_id = $1 ORDER BY name`
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, schoolID); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches a class by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, school_id, name, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO classes (id, school_id, name, created_at, updated_at)
		VALUES (:id, :school_id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update renames a class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// HasResponses reports whether any stored response references the class.
func (r *ClassRepository) HasResponses(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM evaluation_responses WHERE class_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class responses: %w", err)
	}
	return true, nil
}

// HasOpenEvaluations reports whether the school still has an active
// evaluation whose window has not ended.
func (r *ClassRepository) HasOpenEvaluations(ctx context.Context, schoolID string) (bool, error) {
	const query = `SELECT 1 FROM evaluations WHERE school_id = $1 AND active = TRUE AND end_date > NOW() LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open evaluations: %w", err)
	}
	return true, nil
}

// ListAssignments returns the teacher/subject pairs assigned to a class.
func (r *ClassRepository) ListAssignments(ctx context.Context, classID string) ([]models.ClassAssignmentDetail, error) {
	const query = `SELECT ca.id, ca.class_id, ca.teacher_id, ca.subject_id,
		t.name AS teacher_name, s.name AS subject_name
		FROM class_assignments ca
		JOIN teachers t ON t.id = ca.teacher_id
		JOIN subjects s ON s.id = ca.subject_id
		WHERE ca.class_id = $1
		ORDER BY s.name, t.name`
	var assignments []models.ClassAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, classID); err != nil {
		return nil, fmt.Errorf("list class assignments: %w", err)
	}
	return assignments, nil
}

// ReplaceAssignments swaps the full assignment set of a class in one
// transaction.
func (r *ClassRepository) ReplaceAssignments(ctx context.Context, classID string, assignments []models.ClassAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM class_assignments WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear class assignments: %w", err)
	}

	const insertQuery = `INSERT INTO class_assignments (id, class_id, teacher_id, subject_id) VALUES ($1, $2, $3, $4)`
	for _, a := range assignments {
		id := a.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, insertQuery, id, classID, a.TeacherID, a.SubjectID); err != nil {
			return fmt.Errorf("insert class assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class assignments: %w", err)
	}
	return nil
}
