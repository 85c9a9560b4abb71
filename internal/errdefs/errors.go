package errdefs

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists   = errors.New("already exists")
	ErrValidation      = errors.New("validation error")
	ErrAuthentication  = errors.New("authentication error")
	ErrNotFound        = errors.New("not found")
	ErrPayloadTooLarge = errors.New("payload too large")
)

var (
	ErrMissingFile        = fmt.Errorf("file is required: %w", ErrValidation)
	ErrUnauthenticated    = fmt.Errorf("missing or malformed bearer token: %w", ErrAuthentication)
	ErrInvalidToken       = fmt.Errorf("invalid token: %w", ErrAuthentication)
	ErrExpiredToken       = fmt.Errorf("token expired: %w", ErrAuthentication)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrAuthentication)
)
