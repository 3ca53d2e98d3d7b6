package model

import (
	"time"

	"github.com/google/uuid"
)

const SubmissionCap = 5

type SubmissionStatus string

const (
	SubmissionSubmitted     SubmissionStatus = "submitted"
	SubmissionApproved      SubmissionStatus = "approved"
	SubmissionNeedsRevision SubmissionStatus = "needs-revision"
)

type SubmissionDecision string

const (
	SubmissionDecisionApprove       SubmissionDecision = "approve"
	SubmissionDecisionNeedsRevision SubmissionDecision = "needsRevision"
)

// ParticipantRef names the submitter either by user or by approved application, never both.
type ParticipantRef struct {
	UserID        *int64
	ApplicationID *uuid.UUID
}

func (r ParticipantRef) Valid() bool {
	return (r.UserID == nil) != (r.ApplicationID == nil)
}

type SubmissionPayload struct {
	Text  string
	Link  string
	Files []string
}

type Submission struct {
	SubmissionID   uuid.UUID
	QuestID        uuid.UUID
	ParticipantRef ParticipantRef
	SequenceNumber int
	Status         SubmissionStatus
	Payload        SubmissionPayload
	Feedback       string
	SubmittedAt    time.Time
	ReviewedAt     *time.Time
}
