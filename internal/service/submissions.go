package service

import (
	"context"
	"errors"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/repository"

	"github.com/google/uuid"
)

type SubmissionService struct {
	repo   Store
	quests *QuestService
	locks  *QuestLocks
}

func NewSubmissionService(repo Store, quests *QuestService, locks *QuestLocks) *SubmissionService {
	return &SubmissionService{
		repo:   repo,
		quests: quests,
		locks:  locks,
	}
}

func submissionPayload(sub *model.Submission) map[string]any {
	return map[string]any{
		"submission_id":   sub.SubmissionID.String(),
		"quest_id":        sub.QuestID.String(),
		"sequence_number": sub.SequenceNumber,
		"status":          sub.Status,
		"feedback":        sub.Feedback,
	}
}

// resolveParticipant maps a participant reference to the currently approved application
// it stands for.
func resolveParticipant(ctx context.Context, tx StoreTx, questID uuid.UUID, ref model.ParticipantRef) (*model.Application, error) {
	var (
		app *model.Application
		err error
	)
	if ref.ApplicationID != nil {
		app, err = tx.GetApplication(ctx, *ref.ApplicationID)
	} else {
		app, err = tx.FindActiveApplication(ctx, questID, *ref.UserID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAParticipant
		}
		return nil, fmt.Errorf("failed to resolve participant: %w", err)
	}
	if app.QuestID != questID || app.Status != model.ApplicationApproved {
		return nil, ErrNotAParticipant
	}
	return app, nil
}

// submitterOf returns the user behind ref regardless of their current application status.
func submitterOf(ctx context.Context, tx StoreTx, ref model.ParticipantRef) (int64, error) {
	if ref.UserID != nil {
		return *ref.UserID, nil
	}
	app, err := tx.GetApplication(ctx, *ref.ApplicationID)
	if err != nil {
		return 0, fmt.Errorf("failed to get submitter application: %w", err)
	}
	return app.ApplicantID, nil
}

// SubmitWork records a work submission by an approved participant of an in-progress quest.
// A participant gets at most SubmissionCap attempts per quest, whichever reference form is used.
func (s *SubmissionService) SubmitWork(ctx context.Context, questID uuid.UUID, actorID int64, ref model.ParticipantRef, payload model.SubmissionPayload) (*model.Submission, error) {
	if !ref.Valid() {
		return nil, ErrInvalidParticipant
	}

	defer s.locks.Lock(questID)()

	var sub *model.Submission
	err := s.quests.run(ctx, func(tx StoreTx, o *outcome) error {
		q, err := tx.LockQuest(ctx, questID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrQuestNotFound
			}
			return fmt.Errorf("failed to lock quest: %w", err)
		}
		if q.Status != model.QuestInProgress {
			return ErrNotInProgress
		}

		app, err := resolveParticipant(ctx, tx, questID, ref)
		if err != nil {
			return err
		}
		if app.ApplicantID != actorID {
			return ErrNotAParticipant
		}

		count, err := tx.CountSubmissions(ctx, questID, app.ApplicantID)
		if err != nil {
			return fmt.Errorf("failed to count submissions: %w", err)
		}
		if count >= model.SubmissionCap {
			return ErrSubmissionCapExceeded
		}

		sub = &model.Submission{
			SubmissionID:   uuid.New(),
			QuestID:        questID,
			ParticipantRef: ref,
			SequenceNumber: count + 1,
			Status:         model.SubmissionSubmitted,
			Payload:        payload,
			SubmittedAt:    now(),
		}
		if err := tx.InsertSubmission(ctx, sub); err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}
		o.notify(q.CreatorID, model.EventSubmissionReceived, submissionPayload(sub))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// ReviewSubmission lets the creator accept a submission, which completes the quest, or ask
// for a revision. Without explicit payouts the whole reward goes to the submitter.
func (s *SubmissionService) ReviewSubmission(ctx context.Context, submissionID uuid.UUID, actorID int64, decision model.SubmissionDecision, feedback string, payouts []model.Payout) (*model.Submission, error) {
	var target model.SubmissionStatus
	switch decision {
	case model.SubmissionDecisionApprove:
		target = model.SubmissionApproved
	case model.SubmissionDecisionNeedsRevision:
		target = model.SubmissionNeedsRevision
	default:
		return nil, ErrInvalidDecision
	}

	existing, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	defer s.locks.Lock(existing.QuestID)()

	var sub *model.Submission
	err = s.quests.run(ctx, func(tx StoreTx, o *outcome) error {
		q, err := lockOwnedQuest(ctx, tx, existing.QuestID, actorID)
		if err != nil {
			return err
		}
		if q.Status != model.QuestInProgress {
			return ErrNotInProgress
		}

		sub, err = tx.LockSubmission(ctx, submissionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("failed to lock submission: %w", err)
		}
		if sub.Status != model.SubmissionSubmitted {
			return ErrInvalidTransition
		}

		// A submitter kicked after submitting can still be sent back, never paid.
		var submitterID int64
		app, err := resolveParticipant(ctx, tx, q.QuestID, sub.ParticipantRef)
		switch {
		case err == nil:
			submitterID = app.ApplicantID
		case errors.Is(err, ErrNotAParticipant) && target == model.SubmissionNeedsRevision:
			if submitterID, err = submitterOf(ctx, tx, sub.ParticipantRef); err != nil {
				return err
			}
		default:
			return err
		}

		reviewedAt := now()
		sub.Status = target
		sub.Feedback = feedback
		sub.ReviewedAt = &reviewedAt
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}
		o.notify(submitterID, model.EventSubmissionReviewed, submissionPayload(sub))

		if target != model.SubmissionApproved {
			return nil
		}
		if len(payouts) == 0 {
			payouts = []model.Payout{{UserID: submitterID, Amount: q.GoldReward}}
		}
		return s.quests.completeTx(ctx, tx, o, q, payouts)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error) {
	if _, err := s.quests.GetQuest(ctx, questID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubmissions(ctx, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
