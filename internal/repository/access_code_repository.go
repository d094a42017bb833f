package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/evalio/evalio-api/internal/models"
)

// ErrDuplicateCode signals that the generated code string collided with an
// existing row. Callers retry with a fresh code.
var ErrDuplicateCode = errors.New("access code already exists")

const uniqueViolation = pq.ErrorCode("23505")

// AccessCodeRepository manages persistence for access codes.
type AccessCodeRepository struct {
	db *sqlx.DB
}

// NewAccessCodeRepository constructs an AccessCodeRepository.
func NewAccessCodeRepository(db *sqlx.DB) *AccessCodeRepository {
	return &AccessCodeRepository{db: db}
}

const accessCodeColumns = "id, evaluation_id, code, class_name, used, created_at"

// Create persists a new unused code. A collision on the code uniqueness
// constraint is reported as ErrDuplicateCode.
func (r *AccessCodeRepository) Create(ctx context.Context, code *models.AccessCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO access_codes (id, evaluation_id, code, class_name, used, created_at)
		VALUES (:id, :evaluation_id, :code, :class_name, :used, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, code); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "access_codes_code_key" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create access code: %w", err)
	}
	return nil
}

// FindByCode fetches a code row by its code string.
func (r *AccessCodeRepository) FindByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	query := fmt.Sprintf("SELECT %s FROM access_codes WHERE code = $1", accessCodeColumns)
	var accessCode models.AccessCode
	if err := r.db.GetContext(ctx, &accessCode, query, code); err != nil {
		return nil, err
	}
	return &accessCode, nil
}

// FindByID fetches a code row by ID.
func (r *AccessCodeRepository) FindByID(ctx context.Context, id string) (*models.AccessCode, error) {
	query := fmt.Sprintf("SELECT %s FROM access_codes WHERE id = $1", accessCodeColumns)
	var accessCode models.AccessCode
	if err := r.db.GetContext(ctx, &accessCode, query, id); err != nil {
		return nil, err
	}
	return &accessCode, nil
}

// ListByEvaluation returns all codes of an evaluation, newest first.
func (r *AccessCodeRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.AccessCode, error) {
	query := fmt.Sprintf("SELECT %s FROM access_codes WHERE evaluation_id = $1 ORDER BY created_at DESC", accessCodeColumns)
	var codes []models.AccessCode
	if err := r.db.SelectContext(ctx, &codes, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list access codes: %w", err)
	}
	return codes, nil
}

// Delete removes a single code.
func (r *AccessCodeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM access_codes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete access code: %w", err)
	}
	return nil
}

// DeleteForEvaluation removes the unredeemed codes of an evaluation and
// reports how many were removed. Redeemed codes are referenced by responses
// and stay.
func (r *AccessCodeRepository) DeleteForEvaluation(ctx context.Context, evaluationID string) (int64, error) {
	const query = `DELETE FROM access_codes WHERE evaluation_id = $1 AND used = FALSE`
	result, err := r.db.ExecContext(ctx, query, evaluationID)
	if err != nil {
		return 0, fmt.Errorf("delete access codes: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete access codes: %w", err)
	}
	return removed, nil
}
