package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for any 401. It is never retried.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransient wraps transport failures: refused connections, resets,
	// timeouts.
	ErrTransient = errors.New("transient network failure")
	// ErrRequestInProgress rejects a second submission from a form whose
	// previous request has not finished.
	ErrRequestInProgress = errors.New("request already in progress")
	// ErrInvalidInput is returned by the advisory validators.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBadResponse is a 2xx whose body could not be decoded. The request
	// already took effect, so it is not retried.
	ErrBadResponse = errors.New("unexpected response body")
)

// StatusError is a non-2xx response. Message is the server's "error" field
// when it sent one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}
