package model

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	Id           uuid.UUID     `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	StudentId    string        `db:"student_id" json:"studentId"`
	Submissions  []*Submission `db:"-" json:"assignments"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	EditedAt     time.Time     `db:"edited_at" json:"editedAt"`
}

type Submission struct {
	Id          uuid.UUID `db:"id" json:"id"`
	AccountId   uuid.UUID `db:"account_id" json:"-"`
	Name        string    `db:"name" json:"name"`
	FileId      string    `db:"file_id" json:"fileName"`
	FileURL     string    `db:"file_url" json:"fileUrl"`
	SubmittedAt time.Time `db:"submitted_at" json:"submittedAt"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Account   *Account  `json:"student"`
}

// StoredFile describes a payload after it has been written to blob storage.
type StoredFile struct {
	Key      string
	Location string
	Size     int64
}

type UploadResult struct {
	Success    bool        `json:"success"`
	Location   string      `json:"location"`
	Submission *Submission `json:"submission"`
}
