package client

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// These checks only spare a round trip; the server validates again with the
// same rules.

const (
	minPasswordLength  = 8
	minStudentIDLength = 5
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func ValidateEmail(email string) error {
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return fmt.Errorf("enter a valid email address: %w", ErrInvalidInput)
	}
	return nil
}

func ValidatePassword(password string) error {
	if err := validate.Var(password, fmt.Sprintf("required,min=%d", minPasswordLength)); err != nil {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, ErrInvalidInput)
	}
	return nil
}

func ValidateStudentID(studentID string) error {
	if err := validate.Var(strings.TrimSpace(studentID), fmt.Sprintf("required,min=%d", minStudentIDLength)); err != nil {
		return fmt.Errorf("student id must be at least %d characters: %w", minStudentIDLength, ErrInvalidInput)
	}
	return nil
}

func ValidateRegistration(in RegisterRequest) error {
	if err := validate.Var(strings.TrimSpace(in.Name), "required"); err != nil {
		return fmt.Errorf("name is required: %w", ErrInvalidInput)
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	return ValidateStudentID(in.StudentID)
}

func ValidateUpload(name string, content []byte) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("assignment name is required: %w", ErrInvalidInput)
	}
	if len(content) == 0 {
		return fmt.Errorf("choose a file to upload: %w", ErrInvalidInput)
	}
	return nil
}
