package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"submissionportal/internal/cache"
	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
	"submissionportal/internal/notify"
	"submissionportal/internal/storage"
	"submissionportal/pkg/logging"
)

// DefaultMaxUploadBytes is the 5 MiB ceiling on a single submission.
const DefaultMaxUploadBytes int64 = 5 << 20

type SubmissionService struct {
	repo              AccountRepository
	storage           FileStorage
	outbox            Outbox
	cache             Cache
	maxBytes          int64
	invalidationDelay time.Duration
}

func NewSubmissionService(
	repo AccountRepository,
	storage FileStorage,
	outbox Outbox,
	cache Cache,
	maxBytes int64,
) *SubmissionService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &SubmissionService{
		repo:     repo,
		storage:  storage,
		outbox:   outbox,
		cache:    cache,
		maxBytes: maxBytes,
	}
}

// WithInvalidationDelay makes every upload drop the owner's cached view a
// second time after d. A dashboard read that loaded the account before the
// append committed can otherwise write the old view back.
func (s *SubmissionService) WithInvalidationDelay(d time.Duration) *SubmissionService {
	s.invalidationDelay = d
	return s
}

func (s *SubmissionService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores the payload and appends a submission to the owner's list.
// Either both happen or neither does: a failed append deletes the stored
// object. The notification is queued only after the append committed.
func (s *SubmissionService) Upload(ctx context.Context, input *model.UploadInput) (*model.UploadResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", errdefs.ErrValidation)
	}
	if input.Content == nil || input.Size == 0 {
		return nil, errdefs.ErrMissingFile
	}
	if input.Size < 0 || input.Size > s.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, errdefs.ErrPayloadTooLarge)
	}

	key, err := storage.NewKey(input.Filename)
	if err != nil {
		return nil, err
	}

	owner, err := s.repo.GetProfile(ctx, input.AccountId)
	if err != nil {
		return nil, err
	}

	stored, err := s.storage.Put(ctx, key, input.Size, input.Content)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.discard(ctx, stored.Key)
		return nil, err
	}

	submission, err := s.repo.AppendSubmission(ctx, owner.Id, &model.RepositoryCreateSubmissionInput{
		Id:      id,
		Name:    name,
		FileId:  stored.Key,
		FileURL: stored.Location,
	})
	if err != nil {
		s.discard(ctx, stored.Key)
		return nil, err
	}

	s.invalidate(ctx, owner.Id)

	s.outbox.Enqueue(ctx, &notify.Event{
		Type:           notify.EventSubmissionCreated,
		AccountId:      owner.Id,
		StudentName:    owner.Name,
		StudentEmail:   owner.Email,
		StudentId:      owner.StudentId,
		SubmissionName: submission.Name,
		FileId:         submission.FileId,
		FileURL:        submission.FileURL,
	})

	if logger, ok := logging.GetFromContext(ctx); ok {
		logger.Info(ctx, "Submission stored",
			zap.String("account_id", owner.Id.String()),
			zap.String("file_id", submission.FileId),
			zap.Int64("size", stored.Size),
		)
	}

	return &model.UploadResult{
		Success:    true,
		Location:   submission.FileURL,
		Submission: submission,
	}, nil
}

func (s *SubmissionService) invalidate(ctx context.Context, accountId uuid.UUID) {
	key := cache.AccountKey(accountId)
	s.cache.Delete(ctx, key)
	if s.invalidationDelay <= 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	time.AfterFunc(s.invalidationDelay, func() {
		s.cache.Delete(detached, key)
	})
}

func (s *SubmissionService) discard(ctx context.Context, key string) {
	// The request context may already be cancelled; the cleanup must still run.
	err := s.storage.Delete(context.WithoutCancel(ctx), key)
	if err != nil {
		if logger, ok := logging.GetFromContext(ctx); ok {
			logger.Error(ctx, "Failed to delete orphaned file", zap.String("file_id", key), zap.Error(err))
		}
	}
}
