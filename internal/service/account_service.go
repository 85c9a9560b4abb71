package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"submissionportal/internal/cache"
	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
	"submissionportal/internal/notify"
	"submissionportal/pkg/logging"
)

type AccountService struct {
	repo     AccountRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	outbox   Outbox
	cache    Cache
	cacheTTL time.Duration
	validate *validator.Validate
}

func NewAccountService(
	repo AccountRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	outbox Outbox,
	cache Cache,
	cacheTTL time.Duration,
) *AccountService {
	return &AccountService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		outbox:   outbox,
		cache:    cache,
		cacheTTL: cacheTTL,
		validate: newValidator(),
	}
}

// Register creates an account. The password is hashed exactly once, before
// the row is written.
func (s *AccountService) Register(ctx context.Context, input *model.RegisterInput) (*model.Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.StudentId = strings.TrimSpace(input.StudentId)

	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.repo.FindByEmailOrStudentID(ctx, input.Email, input.StudentId)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("email or student id already registered: %w", errdefs.ErrAlreadyExists)
	}
	if err != nil && !errors.Is(err, errdefs.ErrNotFound) {
		return nil, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	// The unique indexes still decide a race between two registrations that
	// both passed the lookup above.
	account, err := s.repo.Create(ctx, &model.RepositoryCreateAccountInput{
		Id:           id,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: digest,
		StudentId:    input.StudentId,
	})
	if err != nil {
		return nil, err
	}

	s.outbox.Enqueue(ctx, &notify.Event{
		Type:         notify.EventAccountRegistered,
		AccountId:    account.Id,
		StudentName:  account.Name,
		StudentEmail: account.Email,
		StudentId:    account.StudentId,
	})

	if logger, ok := logging.GetFromContext(ctx); ok {
		logger.Info(ctx, "Account registered", zap.String("account_id", account.Id.String()))
	}
	return account, nil
}

func (s *AccountService) Login(ctx context.Context, input *model.LoginInput) (*model.Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	account, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, errdefs.ErrNotFound) {
			return nil, errdefs.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		if logger, ok := logging.GetFromContext(ctx); ok {
			logger.Info(ctx, "Login rejected", zap.String("account_id", account.Id.String()))
		}
		return nil, errdefs.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account.Id)
	if err != nil {
		return nil, err
	}

	full, err := s.load(ctx, account.Id)
	if err != nil {
		return nil, err
	}

	return &model.Session{Token: token, ExpiresAt: expiresAt, Account: full}, nil
}

// GetMe returns the account proven by the bearer token, with its
// submissions.
func (s *AccountService) GetMe(ctx context.Context) (*model.Account, error) {
	id, err := accountIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *AccountService) load(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	key := cache.AccountKey(id)
	if data, ok := s.cache.Get(ctx, key); ok {
		var account model.Account
		if err := json.Unmarshal(data, &account); err == nil {
			return &account, nil
		}
		s.cache.Delete(ctx, key)
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(account); err == nil {
		s.cache.Set(ctx, key, data, s.cacheTTL)
	}
	return account, nil
}
