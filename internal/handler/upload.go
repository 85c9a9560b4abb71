package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"submissionportal/internal/errdefs"
	"submissionportal/internal/model"
	"submissionportal/pkg/ctxdata"
)

// multipartOverhead is the allowance for boundaries, headers and the name
// field on top of the file size limit.
const multipartOverhead = 64 << 10

const maxNameFieldBytes = 1 << 10

var fileFields = map[string]bool{"file": true, "assignment": true}

type SubmissionService interface {
	Upload(ctx context.Context, input *model.UploadInput) (*model.UploadResult, error)
	MaxBytes() int64
}

type UploadHandler struct {
	service SubmissionService
}

func NewUploadHandler(service SubmissionService) *UploadHandler {
	return &UploadHandler{service: service}
}

func (h *UploadHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/upload", h.Upload)
}

// Upload reads the multipart body as a stream. The file part is read at most
// one byte past the limit, so an oversized payload is refused without being
// buffered or stored.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	rawID, ok := ctxdata.GetAccountID(r.Context())
	if !ok {
		writeError(w, r, errdefs.ErrUnauthenticated, http.StatusUnauthorized)
		return
	}
	accountID, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, r, errdefs.ErrInvalidToken, http.StatusUnauthorized)
		return
	}

	limit := h.service.MaxBytes()
	if r.ContentLength > limit+multipartOverhead {
		err := fmt.Errorf("file too large: %w", errdefs.ErrPayloadTooLarge)
		writeError(w, r, err, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	input, err := readUpload(r, limit)
	if err != nil {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			err = fmt.Errorf("read upload: %w", ctxErr)
		}
		writeError(w, r, err, mapErr(err))
		return
	}
	input.AccountId = accountID

	result, err := h.service.Upload(r.Context(), input)
	if err != nil {
		writeError(w, r, err, mapErr(err))
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func readUpload(r *http.Request, limit int64) (*model.UploadInput, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("expected multipart/form-data body: %w", errdefs.ErrValidation)
	}

	input := &model.UploadInput{}
	var payload *bytes.Buffer

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}

		switch name := part.FormName(); {
		case name == "name":
			value, err := io.ReadAll(io.LimitReader(part, maxNameFieldBytes+1))
			if err != nil {
				return nil, readError(err)
			}
			if len(value) > maxNameFieldBytes {
				return nil, fmt.Errorf("name must be at most %d bytes: %w", maxNameFieldBytes, errdefs.ErrValidation)
			}
			input.Name = string(value)

		case fileFields[name] && payload == nil:
			payload = &bytes.Buffer{}
			n, err := io.Copy(payload, io.LimitReader(part, limit+1))
			if err != nil {
				return nil, readError(err)
			}
			if n > limit {
				return nil, fmt.Errorf("file exceeds %d bytes: %w", limit, errdefs.ErrPayloadTooLarge)
			}
			input.Filename = part.FileName()
			input.Size = n

		default:
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, readError(err)
			}
		}
		part.Close()
	}

	if payload == nil || payload.Len() == 0 {
		return nil, errdefs.ErrMissingFile
	}
	input.Content = bytes.NewReader(payload.Bytes())
	return input, nil
}

// readError classifies a failed body read. Deadline and cancellation errors
// pass through unchanged and surface as a 500.
func readError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return fmt.Errorf("file too large: %w", errdefs.ErrPayloadTooLarge)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, os.ErrDeadlineExceeded) {
		return err
	}
	return fmt.Errorf("malformed multipart body: %w", errdefs.ErrValidation)
}
