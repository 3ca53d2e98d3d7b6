package service

import (
	"context"

	"questboard/internal/model"
	"questboard/internal/repository"

	"github.com/google/uuid"
)

type Store interface {
	StoreReader
	// Transaction runs fn atomically; any error rolls back every write made through tx.
	Transaction(ctx context.Context, fn func(tx StoreTx) error) error
}

type (
	StoreReader = repository.Reader
	StoreTx     = repository.Tx
)

// Notifier is the toast layer. It is told about committed outcomes and never consulted.
type Notifier interface {
	Notify(telegramID int64, event model.Event)
}

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

type LedgerServiceI interface {
	GetBalance(ctx context.Context, telegramID int64) (int64, error)
	ListTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error)
	Purchase(ctx context.Context, telegramID int64, amount int64, receiptRef string) (*model.Transaction, error)
	Cashout(ctx context.Context, telegramID int64, amount int64) (*model.Transaction, error)
	Transfer(ctx context.Context, fromID, toID int64, amount int64) error
	Reconcile(ctx context.Context, telegramID int64) (*Reconciliation, error)
}

type QuestServiceI interface {
	CreateQuest(ctx context.Context, req CreateQuestRequest) (*model.Quest, error)
	EditQuest(ctx context.Context, questID uuid.UUID, actorID int64, edit model.QuestEdit) (*model.Quest, error)
	DeleteQuest(ctx context.Context, questID uuid.UUID, actorID int64) (int64, error)
	CancelQuest(ctx context.Context, questID uuid.UUID, actorID int64) (*model.Quest, error)
	CompleteQuest(ctx context.Context, questID uuid.UUID, actorID int64, payouts []model.Payout) (*model.Quest, error)
	GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error)
}

type ApplicationServiceI interface {
	ApplyToQuest(ctx context.Context, questID uuid.UUID, applicantID int64) (*model.Application, error)
	ReviewApplication(ctx context.Context, applicationID uuid.UUID, actorID int64, decision model.ReviewDecision, reason string) (*model.Application, error)
	ListApplications(ctx context.Context, questID uuid.UUID) ([]*model.Application, error)
}

type SubmissionServiceI interface {
	SubmitWork(ctx context.Context, questID uuid.UUID, actorID int64, ref model.ParticipantRef, payload model.SubmissionPayload) (*model.Submission, error)
	ReviewSubmission(ctx context.Context, submissionID uuid.UUID, actorID int64, decision model.SubmissionDecision, feedback string, payouts []model.Payout) (*model.Submission, error)
	GetSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error)
	ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error)
}
