package service

import (
	"errors"
)

// Error is a caller-facing business error with a stable code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInsufficientBalance        = &Error{Code: "INSUFFICIENT_BALANCE", Message: "insufficient gold balance"}
	ErrOutOfTierRange             = &Error{Code: "OUT_OF_TIER_RANGE", Message: "gold budget is outside the difficulty tier range"}
	ErrInvalidTransition          = &Error{Code: "INVALID_TRANSITION", Message: "state change is not allowed"}
	ErrDuplicateActiveApplication = &Error{Code: "DUPLICATE_ACTIVE_APPLICATION", Message: "an active application already exists for this quest"}
	ErrSubmissionCapExceeded      = &Error{Code: "SUBMISSION_CAP_EXCEEDED", Message: "submission limit reached for this quest"}
	ErrNotAParticipant            = &Error{Code: "NOT_A_PARTICIPANT", Message: "user is not an approved participant of this quest"}
	ErrLockedAfterApproval        = &Error{Code: "LOCKED_AFTER_APPROVAL", Message: "quest is locked once a participant has been approved"}
	ErrNotInProgress              = &Error{Code: "NOT_IN_PROGRESS", Message: "quest is not in progress"}

	ErrQuestHasApplications = &Error{Code: "QUEST_HAS_APPLICATIONS", Message: "quest has applications and cannot be deleted"}
	ErrNotQuestCreator      = &Error{Code: "NOT_QUEST_CREATOR", Message: "only the quest creator can do this"}
	ErrSelfApplication      = &Error{Code: "SELF_APPLICATION", Message: "quest creator cannot apply to their own quest"}
	ErrInvalidAmount        = &Error{Code: "INVALID_AMOUNT", Message: "amount must be positive"}
	ErrInvalidCategory      = &Error{Code: "INVALID_CATEGORY", Message: "unknown quest category"}
	ErrInvalidTier          = &Error{Code: "INVALID_TIER", Message: "unknown difficulty tier"}
	ErrInvalidPayout        = &Error{Code: "INVALID_PAYOUT", Message: "payouts must go to participants and not exceed the reward"}
	ErrInvalidDecision      = &Error{Code: "INVALID_DECISION", Message: "unknown review decision"}
	ErrInvalidParticipant   = &Error{Code: "INVALID_PARTICIPANT_REF", Message: "exactly one of participant or application must be given"}

	ErrQuestNotFound       = &Error{Code: "QUEST_NOT_FOUND", Message: "quest not found"}
	ErrApplicationNotFound = &Error{Code: "APPLICATION_NOT_FOUND", Message: "application not found"}
	ErrSubmissionNotFound  = &Error{Code: "SUBMISSION_NOT_FOUND", Message: "submission not found"}
	ErrUserNotFound        = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrUserExists          = &Error{Code: "USER_EXISTS", Message: "user already registered"}
)

// ErrorCode extracts the business code from err, or "" for infrastructure failures.
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
