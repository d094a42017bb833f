package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalio/evalio-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAccessCodeRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccessCodeRepository(db)

	mock.ExpectExec("INSERT INTO access_codes").
		WithArgs(sqlmock.AnyArg(), "eval-1", "ABCDEF", "4.A", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	code := &models.AccessCode{EvaluationID: "eval-1", Code: "ABCDEF", ClassName: "4.A"}
	require.NoError(t, repo.Create(context.Background(), code))
	assert.NotEmpty(t, code.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessCodeRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccessCodeRepository(db)

	mock.ExpectExec("INSERT INTO access_codes").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "access_codes_code_key"})

	err := repo.Create(context.Background(), &models.AccessCode{EvaluationID: "eval-1", Code: "ABCDEF", ClassName: "4.A"})
	assert.ErrorIs(t, err, ErrDuplicateCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessCodeRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccessCodeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "evaluation_id", "code", "class_name", "used", "created_at"}).
		AddRow("ac-1", "eval-1", "TEST12", "4.A", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, evaluation_id, code, class_name, used, created_at FROM access_codes WHERE code = $1")).
		WithArgs("TEST12").
		WillReturnRows(rows)

	code, err := repo.FindByCode(context.Background(), "TEST12")
	require.NoError(t, err)
	assert.Equal(t, "ac-1", code.ID)
	assert.Equal(t, "4.A", code.ClassName)
	assert.False(t, code.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessCodeRepositoryDeleteForEvaluation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccessCodeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM access_codes WHERE evaluation_id = $1 AND used = FALSE")).
		WithArgs("eval-1").
		WillReturnResult(sqlmock.NewResult(0, 30))

	removed, err := repo.DeleteForEvaluation(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
