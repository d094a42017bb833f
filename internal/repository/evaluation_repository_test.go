package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalio/evalio-api/internal/models"
)

func TestEvaluationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectExec("INSERT INTO evaluations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	evaluation := &models.Evaluation{
		SchoolID:  "school-1",
		Name:      "Spring 2024",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), evaluation))
	assert.NotEmpty(t, evaluation.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationRepositoryCountResponses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM evaluation_responses WHERE evaluation_id = $1")).
		WithArgs("eval-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountResponses(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationRepositoryAverageScoresEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectQuery("COALESCE").
		WithArgs("eval-1").
		WillReturnRows(sqlmock.NewRows([]string{"preparation", "explanation", "engagement", "atmosphere", "individual"}).
			AddRow(0.0, 0.0, 0.0, 0.0, 0.0))

	averages, err := repo.AverageScores(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Zero(t, averages.Preparation)
	assert.Zero(t, averages.Individual)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationRepositoryCodeCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	mock.ExpectQuery("FROM access_codes").
		WithArgs("eval-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "used"}).AddRow(30, 12))

	counts, err := repo.CodeCounts(context.Background(), "eval-1")
	require.NoError(t, err)
	assert.Equal(t, 30, counts.Total)
	assert.Equal(t, 12, counts.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluationRepositoryListResponses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEvaluationRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "evaluation_id", "teacher_id", "subject_id", "class_id", "access_code_id",
		"preparation_score", "explanation_score", "engagement_score", "atmosphere_score", "individual_score",
		"comment", "created_at", "teacher_name", "subject_name", "class_name",
	}).AddRow("r-1", "eval-1", "t-1", "s-1", "c-1", "ac-1", 5, 4, 4, 5, 3, nil, time.Now(), "Jana Novak", "Math", "4.A")
	mock.ExpectQuery("FROM evaluation_responses er").
		WithArgs("eval-1").
		WillReturnRows(rows)

	responses, err := repo.ListResponses(context.Background(), "eval-1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "Jana Novak", responses[0].TeacherName)
	assert.Equal(t, 5, responses[0].Preparation)
	assert.NoError(t, mock.ExpectationsWereMet())
}
