package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
	"submissionportal/internal/notify"
	"submissionportal/pkg/ctxdata"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

type AccountRepository interface {
	Create(ctx context.Context, input *model.RepositoryCreateAccountInput) (*model.Account, error)
	FindByEmailOrStudentID(ctx context.Context, email, studentId string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Account, error)
	AppendSubmission(ctx context.Context, accountId uuid.UUID, input *model.RepositoryCreateSubmissionInput) (*model.Submission, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	Issue(accountId uuid.UUID) (string, time.Time, error)
}

type FileStorage interface {
	Put(ctx context.Context, key string, size int64, content io.Reader) (*model.StoredFile, error)
	Delete(ctx context.Context, key string) error
}

type Outbox interface {
	Enqueue(ctx context.Context, event *notify.Event) bool
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// validationError turns the first failed rule into an ErrValidation with a
// message naming the JSON field.
func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		fe := fieldErrors[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required: %w", field, errdefs.ErrValidation)
		case "email":
			return fmt.Errorf("%s must be a valid email address: %w", field, errdefs.ErrValidation)
		case "min":
			return fmt.Errorf("%s must be at least %s characters: %w", field, fe.Param(), errdefs.ErrValidation)
		case "max":
			return fmt.Errorf("%s must be at most %s characters: %w", field, fe.Param(), errdefs.ErrValidation)
		}
		return fmt.Errorf("%s is invalid: %w", field, errdefs.ErrValidation)
	}
	return fmt.Errorf("%v: %w", err, errdefs.ErrValidation)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func accountIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raw, ok := ctxdata.GetAccountID(ctx)
	if !ok {
		return uuid.Nil, errdefs.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errdefs.ErrInvalidToken
	}
	return id, nil
}
