package notify

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventSubmissionCreated EventType = "submission_created"
)

// Event is the message published to the notifications topic. The notifier
// worker turns it into mail for the student and, for submissions, the
// operator.
type Event struct {
	Id             uuid.UUID `json:"id"`
	Type           EventType `json:"type"`
	TraceId        string    `json:"traceId,omitempty"`
	AccountId      uuid.UUID `json:"accountId"`
	StudentName    string    `json:"studentName"`
	StudentEmail   string    `json:"studentEmail"`
	StudentId      string    `json:"studentId"`
	SubmissionName string    `json:"submissionName,omitempty"`
	FileId         string    `json:"fileId,omitempty"`
	FileURL        string    `json:"fileUrl,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}
