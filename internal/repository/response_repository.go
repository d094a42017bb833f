package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/evalio/evalio-api/internal/models"
	appErrors "github.com/evalio/evalio-api/pkg/errors"
)

// ResponseRepository owns the response submission transaction.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository constructs a ResponseRepository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// SubmitParams carries everything the submission transaction needs.
type SubmitParams struct {
	EvaluationID string
	SchoolID     string
	AccessCodeID string
	TeacherID    string
	SubjectID    string
	ClassID      string
	Criteria     models.CriteriaScores
	Comment      *string
}

// Submit stores one response and consumes its access code in a single
// transaction. The code row is locked with FOR UPDATE so that two requests
// racing on the same code serialize; the loser observes used = TRUE and the
// whole transaction rolls back. At most one committed response per code.
func (r *ResponseRepository) Submit(ctx context.Context, params SubmitParams) (resp *models.EvaluationResponse, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submission transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var code struct {
		ID   string `db:"id"`
		Used bool   `db:"used"`
	}
	const lockQuery = `SELECT id, used FROM access_codes WHERE id = $1 AND evaluation_id = $2 FOR UPDATE`
	if err = tx.GetContext(ctx, &code, lockQuery, params.AccessCodeID, params.EvaluationID); err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.ErrInvalidAccessCode
		} else {
			err = fmt.Errorf("lock access code: %w", err)
		}
		return nil, err
	}

	if code.Used {
		err = appErrors.ErrCodeAlreadyUsed
		return nil, err
	}

	var refs struct {
		TeacherExists bool `db:"teacher_exists"`
		SubjectExists bool `db:"subject_exists"`
		ClassExists   bool `db:"class_exists"`
	}
	const refQuery = `SELECT
		EXISTS(SELECT 1 FROM teachers WHERE id = $1 AND school_id = $4) AS teacher_exists,
		EXISTS(SELECT 1 FROM subjects WHERE id = $2 AND school_id = $4) AS subject_exists,
		EXISTS(SELECT 1 FROM classes WHERE id = $3 AND school_id = $4) AS class_exists`
	if err = tx.GetContext(ctx, &refs, refQuery, params.TeacherID, params.SubjectID, params.ClassID, params.SchoolID); err != nil {
		err = fmt.Errorf("check submission references: %w", err)
		return nil, err
	}
	if !refs.TeacherExists || !refs.SubjectExists || !refs.ClassExists {
		err = appErrors.Clone(appErrors.ErrValidation, "unknown teacher, subject or class")
		return nil, err
	}

	response := &models.EvaluationResponse{
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
		CreatedAt:    time.Now().UTC(),
	}

	const insertQuery = `INSERT INTO evaluation_responses
		(id, evaluation_id, teacher_id, subject_id, class_id, access_code_id,
		 preparation_score, explanation_score, engagement_score, atmosphere_score, individual_score,
		 comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	if _, err = tx.ExecContext(ctx, insertQuery,
		response.ID, response.EvaluationID, response.TeacherID, response.SubjectID, response.ClassID,
		response.AccessCodeID, response.Preparation, response.Explanation, response.Engagement,
		response.Atmosphere, response.Individual, response.Comment, response.CreatedAt,
	); err != nil {
		err = fmt.Errorf("insert response: %w", err)
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE access_codes SET used = TRUE WHERE id = $1`, params.AccessCodeID); err != nil {
		err = fmt.Errorf("consume access code: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit submission: %w", err)
	}
	return response, nil
}
