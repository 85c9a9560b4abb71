package data

import (
	"context"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"submissionportal/internal/model"
)

// Querier is the subset of *pgxpool.Pool used by the repository.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type AccountRepository struct {
	db Querier
}

func NewAccountRepository(db Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, name, email, password_hash, student_id, created_at, edited_at`

func (r *AccountRepository) Create(ctx context.Context, input *model.RepositoryCreateAccountInput) (*model.Account, error) {
	query := `
INSERT INTO accounts (
	id, name, email, password_hash, student_id, created_at, edited_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + accountColumns

	now := time.Now().UTC()
	var account model.Account
	err := pgxscan.Get(ctx, r.db, &account, query,
		input.Id,
		input.Name,
		strings.ToLower(input.Email),
		input.PasswordHash,
		input.StudentId,
		now,
		now,
	)
	if err != nil {
		return nil, handleError(err)
	}
	account.Submissions = []*model.Submission{}
	return &account, nil
}

func (r *AccountRepository) FindByEmailOrStudentID(ctx context.Context, email, studentId string) (*model.Account, error) {
	query := `
SELECT ` + accountColumns + `
FROM accounts
WHERE lower(email) = lower($1) OR student_id = $2
LIMIT 1
`
	var account model.Account
	err := pgxscan.Get(ctx, r.db, &account, query, email, studentId)
	if err != nil {
		return nil, handleError(err)
	}
	return &account, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
SELECT ` + accountColumns + `
FROM accounts
WHERE lower(email) = lower($1)
`
	var account model.Account
	err := pgxscan.Get(ctx, r.db, &account, query, email)
	if err != nil {
		return nil, handleError(err)
	}
	return &account, nil
}

// GetProfile returns the account row without its submissions.
func (r *AccountRepository) GetProfile(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	query := `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`
	var account model.Account
	err := pgxscan.Get(ctx, r.db, &account, query, id)
	if err != nil {
		return nil, handleError(err)
	}
	return &account, nil
}

// GetByID returns the account with its submissions in insertion order.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := r.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	submissions, err := r.ListSubmissions(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Submissions = submissions
	return account, nil
}

func (r *AccountRepository) ListSubmissions(ctx context.Context, accountId uuid.UUID) ([]*model.Submission, error) {
	query := `
SELECT id, account_id, name, file_id, file_url, submitted_at
FROM submissions
WHERE account_id = $1
ORDER BY seq
`
	submissions := []*model.Submission{}
	err := pgxscan.Select(ctx, r.db, &submissions, query, accountId)
	if err != nil {
		return nil, handleError(err)
	}
	return submissions, nil
}

// AppendSubmission inserts one row owned by accountId and touches the
// account's edited_at in the same statement. Concurrent appends for the same
// account never overwrite each other.
func (r *AccountRepository) AppendSubmission(ctx context.Context, accountId uuid.UUID, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error) {
	query := `
WITH inserted AS (
	INSERT INTO submissions (
		id, account_id, name, file_id, file_url, submitted_at
	)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, account_id, name, file_id, file_url, submitted_at
), touched AS (
	UPDATE accounts SET edited_at = $6 WHERE id = $2
)
SELECT id, account_id, name, file_id, file_url, submitted_at FROM inserted
`
	var submission model.Submission
	err := pgxscan.Get(ctx, r.db, &submission, query,
		input.Id,
		accountId,
		input.Name,
		input.FileId,
		input.FileURL,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, handleError(err)
	}

	return &submission, nil
}

func (r *AccountRepository) Ping(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT 1`)
	return err
}
