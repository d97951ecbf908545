package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coe-exam-api/internal/models"
)

func newSubjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func subjectRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "code", "name", "department", "year", "is_shared", "shared_subject_code", "created_at", "updated_at"})
}

func TestSubjectRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(code) = LOWER($1)")).
		WithArgs("MA8351").
		WillReturnRows(subjectRows().AddRow("sub-1", "MA8351", "Discrete Mathematics", "CSE", 2, true, "MA8351", now, now))

	subject, err := repo.FindByCode(context.Background(), " MA8351 ")
	require.NoError(t, err)
	require.Equal(t, "sub-1", subject.ID)
	require.True(t, subject.IsShared)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByName(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(TRIM(name)) = $1")).
		WithArgs("discrete mathematics").
		WillReturnRows(subjectRows().
			AddRow("sub-1", "MA8351", "Discrete Mathematics", "CSE", 2, true, nil, now, now).
			AddRow("sub-2", "MA8351E", "Discrete Mathematics", "ECE", 2, true, nil, now, now))

	subjects, err := repo.ListByName(context.Background(), "Discrete Mathematics")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreatePreservesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newSubjectRepoMock(t)
	defer cleanup()

	repo := NewSubjectRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subjects")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Subject{Code: "MA8351", Name: "Discrete Mathematics", Department: "CSE"})
	require.Error(t, err)

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr))
	require.Equal(t, pq.ErrorCode("23505"), pqErr.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
