package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"submissionportal/internal/errdefs"
	"submissionportal/pkg/logging"
)

const maxJSONBodyBytes = 1 << 20

var sentinels = []error{
	errdefs.ErrValidation,
	errdefs.ErrAuthentication,
	errdefs.ErrAlreadyExists,
	errdefs.ErrNotFound,
	errdefs.ErrPayloadTooLarge,
}

func mapErr(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, errdefs.ErrPayloadTooLarge), errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errdefs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errdefs.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, errdefs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errdefs.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// publicMessage strips the sentinel suffix from client errors and hides
// everything else behind the status text.
func publicMessage(err error, statusCode int) string {
	if statusCode >= http.StatusInternalServerError {
		return http.StatusText(statusCode)
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return "file too large"
	}
	msg := err.Error()
	for _, sentinel := range sentinels {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}

func writeError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	ctx := r.Context()
	if logger, ok := logging.GetFromContext(ctx); ok {
		if statusCode >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", zap.String("path", r.URL.Path), zap.Error(err))
		} else {
			logger.Info(ctx, "request rejected", zap.String("path", r.URL.Path), zap.Int("status", statusCode), zap.Error(err))
		}
	}
	writeErrorJSON(w, statusCode, publicMessage(err, statusCode))
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp, _ := json.Marshal(map[string]string{"error": message})
	w.Write(resp)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return errInvalidBody
	}
	return nil
}

var errInvalidBody = fmt.Errorf("invalid request body: %w", errdefs.ErrValidation)
