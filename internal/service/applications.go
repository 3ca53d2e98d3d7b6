package service

import (
	"context"
	"errors"
	"fmt"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ApplicationService struct {
	repo   Store
	quests *QuestService
	locks  *QuestLocks
}

func NewApplicationService(repo Store, quests *QuestService, locks *QuestLocks) *ApplicationService {
	return &ApplicationService{
		repo:   repo,
		quests: quests,
		locks:  locks,
	}
}

func applicationPayload(app *model.Application) map[string]any {
	return map[string]any{
		"application_id": app.ApplicationID.String(),
		"quest_id":       app.QuestID.String(),
		"status":         app.Status,
		"reason":         app.Reason,
	}
}

// ApplyToQuest files a pending application. Earlier rejected or kicked applications stay in
// the log and do not block a new one.
func (s *ApplicationService) ApplyToQuest(ctx context.Context, questID uuid.UUID, applicantID int64) (*model.Application, error) {
	defer s.locks.Lock(questID)()

	app := &model.Application{
		ApplicationID: uuid.New(),
		QuestID:       questID,
		ApplicantID:   applicantID,
		Status:        model.ApplicationPending,
		AppliedAt:     now(),
	}

	err := s.quests.run(ctx, func(tx StoreTx, o *outcome) error {
		q, err := tx.LockQuest(ctx, questID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrQuestNotFound
			}
			return fmt.Errorf("failed to lock quest: %w", err)
		}
		if q.CreatorID == applicantID {
			return ErrSelfApplication
		}
		if !q.Status.AcceptsApplicants() {
			return ErrInvalidTransition
		}

		if _, err := tx.GetUser(ctx, applicantID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get applicant: %w", err)
		}

		_, err = tx.FindActiveApplication(ctx, questID, applicantID)
		switch {
		case err == nil:
			return ErrDuplicateActiveApplication
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("failed to check active application: %w", err)
		}

		if err := tx.InsertApplication(ctx, app); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrDuplicateActiveApplication
			}
			return fmt.Errorf("failed to insert application: %w", err)
		}
		o.notify(q.CreatorID, model.EventApplicationReceived, applicationPayload(app))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// ReviewApplication approves, rejects or kicks an application. The first approval on an open
// quest moves it to in-progress; kicking the last approved participant moves it back to open.
func (s *ApplicationService) ReviewApplication(ctx context.Context, applicationID uuid.UUID, actorID int64, decision model.ReviewDecision, reason string) (*model.Application, error) {
	target, ok := decision.TargetStatus()
	if !ok {
		return nil, ErrInvalidDecision
	}

	// The quest of an application never changes, so it can be read before locking.
	existing, err := s.repo.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	defer s.locks.Lock(existing.QuestID)()

	var app *model.Application
	err = s.quests.run(ctx, func(tx StoreTx, o *outcome) error {
		q, err := lockOwnedQuest(ctx, tx, existing.QuestID, actorID)
		if err != nil {
			return err
		}

		app, err = tx.LockApplication(ctx, applicationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("failed to lock application: %w", err)
		}
		if !app.Status.CanTransitionTo(target) {
			return ErrInvalidTransition
		}

		switch target {
		case model.ApplicationApproved:
			if !q.Status.AcceptsApplicants() {
				return ErrInvalidTransition
			}
		case model.ApplicationKicked:
			if q.Status != model.QuestInProgress {
				return ErrInvalidTransition
			}
		}

		reviewedAt := now()
		app.Status = target
		app.Reason = reason
		app.ReviewedAt = &reviewedAt
		app.ReviewedBy = &actorID
		if err := tx.UpdateApplication(ctx, app); err != nil {
			return fmt.Errorf("failed to update application: %w", err)
		}
		o.notify(app.ApplicantID, model.EventApplicationReviewed, applicationPayload(app))

		next, err := s.questStatusAfterReview(ctx, tx, q, target)
		if err != nil {
			return err
		}
		if next == q.Status {
			return nil
		}
		if err := o.transition(q, next); err != nil {
			return err
		}
		q.UpdatedAt = reviewedAt
		if err := tx.UpdateQuest(ctx, q); err != nil {
			return fmt.Errorf("failed to update quest: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Logger().Info("application reviewed",
		zap.String("application_id", app.ApplicationID.String()),
		zap.String("quest_id", app.QuestID.String()),
		zap.String("status", string(app.Status)))

	return app, nil
}

// questStatusAfterReview derives the quest status implied by the application log after an
// application moved to target. It runs after the application write so counts include it.
func (s *ApplicationService) questStatusAfterReview(ctx context.Context, tx StoreTx, q *model.Quest, target model.ApplicationStatus) (model.QuestStatus, error) {
	switch {
	case target == model.ApplicationApproved && q.Status == model.QuestOpen:
		return model.QuestInProgress, nil
	case target == model.ApplicationKicked && q.Status == model.QuestInProgress:
		counts, err := tx.CountApplications(ctx, q.QuestID)
		if err != nil {
			return "", fmt.Errorf("failed to count applications: %w", err)
		}
		if counts[model.ApplicationApproved] == 0 {
			return model.QuestOpen, nil
		}
	}
	return q.Status, nil
}

func (s *ApplicationService) ListApplications(ctx context.Context, questID uuid.UUID) ([]*model.Application, error) {
	if _, err := s.quests.GetQuest(ctx, questID); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListApplications(ctx, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}
