package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
)

type AnyTime struct{}

func (a AnyTime) Match(v interface{}) bool {
	_, ok := v.(time.Time)
	return ok
}

var (
	accountCols    = []string{"id", "name", "email", "password_hash", "student_id", "created_at", "edited_at"}
	submissionCols = []string{"id", "account_id", "name", "file_id", "file_url", "submitted_at"}
)

func newMockRepo(t *testing.T) (*AccountRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewAccountRepository(mockPool), mockPool
}

func TestAccountRepo_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		now := time.Now()

		mockPool.ExpectQuery("INSERT INTO accounts").
			WithArgs(id, "Ana", "ana@example.com", "hash", "S-12345", AnyTime{}, AnyTime{}).
			WillReturnRows(pgxmock.NewRows(accountCols).
				AddRow(id, "Ana", "ana@example.com", "hash", "S-12345", now, now))

		account, err := repo.Create(context.Background(), &model.RepositoryCreateAccountInput{
			Id:           id,
			Name:         "Ana",
			Email:        "Ana@Example.com",
			PasswordHash: "hash",
			StudentId:    "S-12345",
		})
		require.NoError(t, err)
		assert.Equal(t, id, account.Id)
		assert.Equal(t, "ana@example.com", account.Email)
		assert.Empty(t, account.Submissions)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery("INSERT INTO accounts").
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		_, err := repo.Create(context.Background(), &model.RepositoryCreateAccountInput{Id: uuid.New()})
		assert.ErrorIs(t, err, errdefs.ErrAlreadyExists)
	})
}

func TestAccountRepo_FindByEmailOrStudentID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		now := time.Now()

		mockPool.ExpectQuery("FROM accounts").
			WithArgs("ana@example.com", "S-12345").
			WillReturnRows(pgxmock.NewRows(accountCols).
				AddRow(id, "Ana", "ana@example.com", "hash", "S-12345", now, now))

		account, err := repo.FindByEmailOrStudentID(context.Background(), "ana@example.com", "S-12345")
		require.NoError(t, err)
		assert.Equal(t, id, account.Id)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery("FROM accounts").
			WithArgs("nobody@example.com", "S-00000").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByEmailOrStudentID(context.Background(), "nobody@example.com", "S-00000")
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})
}

func TestAccountRepo_GetByID(t *testing.T) {
	t.Run("WithSubmissionsInOrder", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()
		first, second := uuid.New(), uuid.New()
		now := time.Now()

		mockPool.ExpectQuery("FROM accounts").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(accountCols).
				AddRow(id, "Ana", "ana@example.com", "hash", "S-12345", now, now))
		mockPool.ExpectQuery("FROM submissions").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(submissionCols).
				AddRow(first, id, "Homework 1", "a.pdf", "http://files/a.pdf", now).
				AddRow(second, id, "Homework 2", "b.pdf", "http://files/b.pdf", now.Add(time.Minute)))

		account, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		require.Len(t, account.Submissions, 2)
		assert.Equal(t, first, account.Submissions[0].Id)
		assert.Equal(t, second, account.Submissions[1].Id)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		id := uuid.New()

		mockPool.ExpectQuery("FROM accounts").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})
}

func TestAccountRepo_GetProfile(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	id := uuid.New()
	now := time.Now()

	mockPool.ExpectQuery("FROM accounts").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(accountCols).
			AddRow(id, "Ana", "ana@example.com", "hash", "S-12345", now, now))

	account, err := repo.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", account.Name)
	assert.Nil(t, account.Submissions)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestAccountRepo_AppendSubmission(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)
		accountId, submissionId := uuid.New(), uuid.New()
		now := time.Now()

		mockPool.ExpectQuery("INSERT INTO submissions").
			WithArgs(submissionId, accountId, "Essay", "f.pdf", "http://files/f.pdf", AnyTime{}).
			WillReturnRows(pgxmock.NewRows(submissionCols).
				AddRow(submissionId, accountId, "Essay", "f.pdf", "http://files/f.pdf", now))

		submission, err := repo.AppendSubmission(context.Background(), accountId, &model.RepositoryCreateSubmissionInput{
			Id:      submissionId,
			Name:    "Essay",
			FileId:  "f.pdf",
			FileURL: "http://files/f.pdf",
		})
		require.NoError(t, err)
		assert.Equal(t, submissionId, submission.Id)
		assert.Equal(t, accountId, submission.AccountId)
	})

	t.Run("AccountGone", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery("INSERT INTO submissions").
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolation})

		_, err := repo.AppendSubmission(context.Background(), uuid.New(), &model.RepositoryCreateSubmissionInput{Id: uuid.New()})
		assert.ErrorIs(t, err, errdefs.ErrNotFound)
	})

	t.Run("UnknownError", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery("INSERT INTO submissions").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.AppendSubmission(context.Background(), uuid.New(), &model.RepositoryCreateSubmissionInput{Id: uuid.New()})
		require.Error(t, err)
		assert.NotErrorIs(t, err, errdefs.ErrNotFound)
		assert.Contains(t, err.Error(), "repository error")
	})
}

func TestHandleError(t *testing.T) {
	assert.ErrorIs(t, handleError(pgx.ErrNoRows), errdefs.ErrNotFound)
	assert.ErrorIs(t, handleError(&pgconn.PgError{Code: uniqueViolation}), errdefs.ErrAlreadyExists)
	assert.ErrorIs(t, handleError(&pgconn.PgError{Code: foreignKeyViolation}), errdefs.ErrNotFound)
	assert.NotErrorIs(t, handleError(errors.New("boom")), errdefs.ErrNotFound)
}
