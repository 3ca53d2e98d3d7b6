package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Catalog holds the category enumeration supplied by the metadata store.
// An empty catalog accepts any non-empty category.
type Catalog struct {
	Categories []string
}

func (c Catalog) Valid(category string) bool {
	if strings.TrimSpace(category) == "" {
		return false
	}
	if len(c.Categories) == 0 {
		return true
	}
	for _, known := range c.Categories {
		if strings.EqualFold(known, category) {
			return true
		}
	}
	return false
}

type CreateQuestRequest struct {
	CreatorID   int64
	Title       string
	Description string
	Category    string
	Tier        model.DifficultyTier
	GoldBudget  int64
	DueDate     *time.Time
}

type QuestService struct {
	repo     Store
	ledger   *LedgerService
	locks    *QuestLocks
	notifier Notifier
	catalog  Catalog
}

func NewQuestService(repo Store, ledger *LedgerService, locks *QuestLocks, notifier Notifier, catalog Catalog) *QuestService {
	return &QuestService{
		repo:     repo,
		ledger:   ledger,
		locks:    locks,
		notifier: notifier,
		catalog:  catalog,
	}
}

func (s *QuestService) run(ctx context.Context, fn func(tx StoreTx, o *outcome) error) error {
	o := &outcome{}
	err := s.repo.Transaction(ctx, func(tx StoreTx) error {
		return fn(tx, o)
	})
	if err != nil {
		return err
	}
	publish(s.notifier, o)
	return nil
}

// lockOwnedQuest loads the quest for update and checks the actor owns it.
func lockOwnedQuest(ctx context.Context, tx StoreTx, questID uuid.UUID, actorID int64) (*model.Quest, error) {
	q, err := tx.LockQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to lock quest: %w", err)
	}
	if q.CreatorID != actorID {
		return nil, ErrNotQuestCreator
	}
	return q, nil
}

// CreateQuest escrows the full budget from the creator and opens the quest.
func (s *QuestService) CreateQuest(ctx context.Context, req CreateQuestRequest) (*model.Quest, error) {
	if !req.Tier.Valid() {
		return nil, ErrInvalidTier
	}
	if !s.catalog.Valid(req.Category) {
		return nil, ErrInvalidCategory
	}
	if err := validateRange(req.GoldBudget, req.Tier, 0, 0); err != nil {
		return nil, err
	}

	createdAt := now()
	q := &model.Quest{
		QuestID:        uuid.New(),
		CreatorID:      req.CreatorID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		DifficultyTier: req.Tier,
		Status:         model.QuestOpen,
		XPReward:       XPReward(req.Tier),
		DueDate:        req.DueDate,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	applyBudget(q, req.GoldBudget)

	err := s.run(ctx, func(tx StoreTx, o *outcome) error {
		creator, err := tx.LockUser(ctx, req.CreatorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock creator: %w", err)
		}
		if err := ValidateBudget(q.GoldBudget, q.DifficultyTier, creator.GoldBalance); err != nil {
			return err
		}

		if err := tx.InsertQuest(ctx, q); err != nil {
			return fmt.Errorf("failed to insert quest: %w", err)
		}

		_, err = s.ledger.reserveTx(ctx, tx, o, q.CreatorID, q.GoldBudget, q.Commission, q.QuestID, "quest escrow")
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Logger().Info("quest created",
		zap.String("quest_id", q.QuestID.String()),
		zap.Int64("creator_id", q.CreatorID),
		zap.String("tier", string(q.DifficultyTier)),
		zap.Int64("gold_budget", q.GoldBudget))

	return q, nil
}

// EditQuest changes an open quest that never had an approved participant. A larger budget
// reserves only the increase; a smaller one releases the difference.
func (s *QuestService) EditQuest(ctx context.Context, questID uuid.UUID, actorID int64, edit model.QuestEdit) (*model.Quest, error) {
	defer s.locks.Lock(questID)()

	var q *model.Quest
	err := s.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		q, err = lockOwnedQuest(ctx, tx, questID, actorID)
		if err != nil {
			return err
		}

		switch q.Status {
		case model.QuestOpen:
		case model.QuestCancelled:
			return ErrInvalidTransition
		default:
			return ErrLockedAfterApproval
		}

		counts, err := tx.CountApplications(ctx, questID)
		if err != nil {
			return fmt.Errorf("failed to count applications: %w", err)
		}
		if counts.EverApproved() {
			return ErrLockedAfterApproval
		}

		if edit.Title != nil {
			q.Title = *edit.Title
		}
		if edit.Description != nil {
			q.Description = *edit.Description
		}
		if edit.Category != nil {
			if !s.catalog.Valid(*edit.Category) {
				return ErrInvalidCategory
			}
			q.Category = *edit.Category
		}
		if edit.DueDate != nil {
			q.DueDate = edit.DueDate
		}

		if edit.GoldBudget != nil && *edit.GoldBudget != q.GoldBudget {
			if err := s.resizeEscrow(ctx, tx, o, q, *edit.GoldBudget); err != nil {
				return err
			}
		}

		q.UpdatedAt = now()
		if err := tx.UpdateQuest(ctx, q); err != nil {
			return fmt.Errorf("failed to update quest: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestService) resizeEscrow(ctx context.Context, tx StoreTx, o *outcome, q *model.Quest, newBudget int64) error {
	creator, err := tx.LockUser(ctx, q.CreatorID)
	if err != nil {
		return fmt.Errorf("failed to lock creator: %w", err)
	}
	if err := ValidateBudgetEdit(newBudget, q.GoldBudget, q.DifficultyTier, creator.GoldBalance); err != nil {
		return err
	}

	oldBudget, oldCommission := q.GoldBudget, q.Commission
	applyBudget(q, newBudget)

	delta := newBudget - oldBudget
	feeDelta := q.Commission - oldCommission
	if feeDelta < 0 {
		feeDelta = -feeDelta
	}

	if delta > 0 {
		_, err = s.ledger.reserveTx(ctx, tx, o, q.CreatorID, delta, feeDelta, q.QuestID, "quest escrow top-up")
	} else {
		_, err = s.ledger.releaseTx(ctx, tx, o, q.CreatorID, -delta, feeDelta, q.QuestID, "quest escrow release")
	}
	return err
}

// DeleteQuest soft-deletes an open quest with no application history and refunds the
// reward. The commission is forfeited.
func (s *QuestService) DeleteQuest(ctx context.Context, questID uuid.UUID, actorID int64) (int64, error) {
	defer s.locks.Lock(questID)()

	var refund int64
	err := s.run(ctx, func(tx StoreTx, o *outcome) error {
		q, err := lockOwnedQuest(ctx, tx, questID, actorID)
		if err != nil {
			return err
		}
		switch q.Status {
		case model.QuestOpen:
		case model.QuestCancelled:
			return ErrInvalidTransition
		default:
			return ErrLockedAfterApproval
		}

		counts, err := tx.CountApplications(ctx, questID)
		if err != nil {
			return fmt.Errorf("failed to count applications: %w", err)
		}
		if counts.EverApproved() {
			return ErrLockedAfterApproval
		}
		if counts.Total() > 0 {
			return ErrQuestHasApplications
		}

		if err := s.ledger.releaseEscrow(ctx, tx, o, q); err != nil {
			return err
		}

		deletedAt := now()
		q.DeletedAt = &deletedAt
		q.UpdatedAt = deletedAt
		if err := tx.UpdateQuest(ctx, q); err != nil {
			return fmt.Errorf("failed to delete quest: %w", err)
		}

		refund = q.GoldReward
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Logger().Info("quest deleted",
		zap.String("quest_id", questID.String()),
		zap.Int64("refund", refund))

	return refund, nil
}

// CancelQuest closes an open quest but keeps it and its application history. Pending
// applications are rejected; gold is handled as on delete.
func (s *QuestService) CancelQuest(ctx context.Context, questID uuid.UUID, actorID int64) (*model.Quest, error) {
	defer s.locks.Lock(questID)()

	var q *model.Quest
	err := s.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		q, err = lockOwnedQuest(ctx, tx, questID, actorID)
		if err != nil {
			return err
		}
		if err := o.transition(q, model.QuestCancelled); err != nil {
			return err
		}

		apps, err := tx.ListApplications(ctx, questID)
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		reviewedAt := now()
		for _, app := range apps {
			if app.Status != model.ApplicationPending {
				continue
			}
			app.Status = model.ApplicationRejected
			app.Reason = "quest cancelled"
			app.ReviewedAt = &reviewedAt
			app.ReviewedBy = &actorID
			if err := tx.UpdateApplication(ctx, app); err != nil {
				return fmt.Errorf("failed to reject application: %w", err)
			}
			o.notify(app.ApplicantID, model.EventApplicationReviewed, applicationPayload(app))
		}

		if err := s.ledger.releaseEscrow(ctx, tx, o, q); err != nil {
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
	return q, nil
}

// CompleteQuest pays the given participants out of the reward and closes the escrow.
func (s *QuestService) CompleteQuest(ctx context.Context, questID uuid.UUID, actorID int64, payouts []model.Payout) (*model.Quest, error) {
	defer s.locks.Lock(questID)()

	var q *model.Quest
	err := s.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		q, err = lockOwnedQuest(ctx, tx, questID, actorID)
		if err != nil {
			return err
		}
		return s.completeTx(ctx, tx, o, q, payouts)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// completeTx moves q to completed and settles the escrow: a REWARD per payout, the unpaid
// remainder refunded to the creator and the commission booked to the platform.
func (s *QuestService) completeTx(ctx context.Context, tx StoreTx, o *outcome, q *model.Quest, payouts []model.Payout) error {
	if err := o.transition(q, model.QuestCompleted); err != nil {
		return err
	}

	apps, err := tx.ListApplications(ctx, q.QuestID)
	if err != nil {
		return fmt.Errorf("failed to list applications: %w", err)
	}
	participants := make(map[int64]struct{})
	for _, app := range apps {
		if app.Status == model.ApplicationApproved {
			participants[app.ApplicantID] = struct{}{}
		}
	}

	ref := q.QuestID
	entries := make([]entry, 0, len(payouts)+2)
	paid := make(map[int64]struct{}, len(payouts))
	var total int64
	for _, p := range payouts {
		if p.Amount <= 0 {
			return ErrInvalidPayout
		}
		if _, ok := participants[p.UserID]; !ok {
			return ErrInvalidPayout
		}
		if _, dup := paid[p.UserID]; dup {
			return ErrInvalidPayout
		}
		paid[p.UserID] = struct{}{}
		total += p.Amount
		entries = append(entries, entry{userID: p.UserID, txType: model.TxReward, amount: p.Amount, questRef: &ref, note: "quest reward"})
	}
	if total > q.GoldReward {
		return ErrInvalidPayout
	}
	if remainder := q.GoldReward - total; remainder > 0 {
		entries = append(entries, releaseEntry(q.CreatorID, remainder, 0, q.QuestID, "unpaid reward refund"))
	}
	entries = append(entries, s.ledger.commissionEntry(q))

	if err := s.ledger.postAll(ctx, tx, o, entries); err != nil {
		return err
	}

	completedAt := now()
	q.CompletedAt = &completedAt
	q.UpdatedAt = completedAt
	if err := tx.UpdateQuest(ctx, q); err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}

	for userID := range participants {
		o.notify(userID, model.EventQuestStatusChanged, map[string]any{
			"quest_id": q.QuestID.String(),
			"to":       q.Status,
		})
	}
	return nil
}

func (s *QuestService) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	q, err := s.repo.GetQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return q, nil
}

func (s *QuestService) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 100
	}
	quests, err := s.repo.ListQuests(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}
