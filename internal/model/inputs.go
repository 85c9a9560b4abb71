package model

import (
	"io"

	"github.com/google/uuid"
)

type RegisterInput struct {
	Name      string `json:"name" validate:"required,max=200"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	StudentId string `json:"studentId" validate:"required,min=5,max=64"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UploadInput struct {
	AccountId uuid.UUID
	Name      string
	Filename  string
	Size      int64
	Content   io.Reader
}

type RepositoryCreateAccountInput struct {
	Id           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	StudentId    string
}

type RepositoryCreateSubmissionInput struct {
	Id      uuid.UUID
	Name    string
	FileId  string
	FileURL string
}
