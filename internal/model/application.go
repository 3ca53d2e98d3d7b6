package model

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
	ApplicationKicked   ApplicationStatus = "kicked"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:  {ApplicationApproved, ApplicationRejected},
	ApplicationApproved: {ApplicationKicked},
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Active applications block a second application by the same applicant.
func (s ApplicationStatus) Active() bool {
	return s == ApplicationPending || s == ApplicationApproved
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
	DecisionKick    ReviewDecision = "kick"
)

func (d ReviewDecision) TargetStatus() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return ApplicationApproved, true
	case DecisionReject:
		return ApplicationRejected, true
	case DecisionKick:
		return ApplicationKicked, true
	}
	return "", false
}

type Application struct {
	ApplicationID uuid.UUID
	QuestID       uuid.UUID
	ApplicantID   int64
	Status        ApplicationStatus
	Reason        string
	AppliedAt     time.Time
	ReviewedAt    *time.Time
	ReviewedBy    *int64
}

// ApplicationCounts tallies a quest's application log by status.
type ApplicationCounts map[ApplicationStatus]int

func (c ApplicationCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// EverApproved is true once any application reached approved; kicked ones were approved first.
func (c ApplicationCounts) EverApproved() bool {
	return c[ApplicationApproved]+c[ApplicationKicked] > 0
}
