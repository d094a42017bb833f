package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evalio/evalio-api/internal/models"
)

// EvaluationRepository manages persistence for evaluations and read models
// over their responses.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs an EvaluationRepository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = "id, school_id, name, description, start_date, end_date, active, created_at, updated_at"

// ListBySchool returns the evaluations of one school, newest first.
func (r *EvaluationRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE school_id = $1 ORDER BY created_at DESC", evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, schoolID); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

// FindByID fetches an evaluation by ID.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := fmt.Sprintf("SELECT %s FROM evaluations WHERE id = $1", evaluationColumns)
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// Create inserts a new evaluation record.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if evaluation.CreatedAt.IsZero() {
		evaluation.CreatedAt = now
	}
	evaluation.UpdatedAt = now

	const query = `INSERT INTO evaluations (id, school_id, name, description, start_date, end_date, active, created_at, updated_at)
		VALUES (:id, :school_id, :name, :description, :start_date, :end_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Update modifies an existing evaluation record.
func (r *EvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	evaluation.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluations SET name = :name, description = :description, start_date = :start_date,
		end_date = :end_date, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	return nil
}

// Delete removes an evaluation. Callers must check CountResponses first;
// stored responses block deletion.
func (r *EvaluationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM evaluations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

// CountResponses returns the number of stored responses for an evaluation.
func (r *EvaluationRepository) CountResponses(ctx context.Context, evaluationID string) (int, error) {
	const query = `SELECT COUNT(*) FROM evaluation_responses WHERE evaluation_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, evaluationID); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return count, nil
}

// ListResponses returns responses joined with teacher, subject and class
// names, newest first.
func (r *EvaluationRepository) ListResponses(ctx context.Context, evaluationID string) ([]models.ResponseDetail, error) {
	const query = `SELECT er.id, er.evaluation_id, er.teacher_id, er.subject_id, er.class_id, er.access_code_id,
		er.preparation_score, er.explanation_score, er.engagement_score, er.atmosphere_score, er.individual_score,
		er.comment, er.created_at,
		t.name AS teacher_name, s.name AS subject_name, c.name AS class_name
		FROM evaluation_responses er
		JOIN teachers t ON t.id = er.teacher_id
		JOIN subjects s ON s.id = er.subject_id
		JOIN classes c ON c.id = er.class_id
		WHERE er.evaluation_id = $1
		ORDER BY er.created_at DESC`
	var responses []models.ResponseDetail
	if err := r.db.SelectContext(ctx, &responses, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// AverageScores computes per-criterion means across all responses of an
// evaluation. COALESCE keeps empty evaluations at zero instead of NULL.
func (r *EvaluationRepository) AverageScores(ctx context.Context, evaluationID string) (*models.AverageScores, error) {
	const query = `SELECT
		COALESCE(AVG(preparation_score), 0) AS preparation,
		COALESCE(AVG(explanation_score), 0) AS explanation,
		COALESCE(AVG(engagement_score), 0) AS engagement,
		COALESCE(AVG(atmosphere_score), 0) AS atmosphere,
		COALESCE(AVG(individual_score), 0) AS individual
		FROM evaluation_responses WHERE evaluation_id = $1`
	var averages models.AverageScores
	if err := r.db.GetContext(ctx, &averages, query, evaluationID); err != nil {
		return nil, fmt.Errorf("average scores: %w", err)
	}
	return &averages, nil
}

// CodeCounts returns total and consumed access-code counts for an evaluation.
func (r *EvaluationRepository) CodeCounts(ctx context.Context, evaluationID string) (*models.CodeCounts, error) {
	const query = `SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE used = TRUE) AS used
		FROM access_codes WHERE evaluation_id = $1`
	var counts models.CodeCounts
	if err := r.db.GetContext(ctx, &counts, query, evaluationID); err != nil {
		return nil, fmt.Errorf("code counts: %w", err)
	}
	return &counts, nil
}
