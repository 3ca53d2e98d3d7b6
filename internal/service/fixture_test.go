package service

import (
	"context"
	"errors"
	"testing"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	platformID = int64(0)
	creatorID  = int64(100)
	heroID     = int64(200)
	sidekickID = int64(300)
)

type fixture struct {
	ctx      context.Context
	store    Store
	notifier *mocks.MockNotifier
	users    *UserService
	ledger   *LedgerService
	quests   *QuestService
	apps     *ApplicationService
	subs     *SubmissionService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, repository.NewMemory())
}

func newFixtureWithStore(t *testing.T, store Store) *fixture {
	t.Helper()

	notifier := &mocks.MockNotifier{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return()

	locks := NewQuestLocks()
	ledger := NewLedgerService(store, LedgerConfig{PlatformAccountID: platformID}, notifier)
	quests := NewQuestService(store, ledger, locks, notifier, Catalog{Categories: []string{"combat", "gathering"}})

	f := &fixture{
		ctx:      context.Background(),
		store:    store,
		notifier: notifier,
		users:    NewUserService(store),
		ledger:   ledger,
		quests:   quests,
		apps:     NewApplicationService(store, quests, locks),
		subs:     NewSubmissionService(store, quests, locks),
	}
	require.NoError(t, ledger.EnsurePlatformAccount(f.ctx))
	return f
}

// user registers telegramID and funds it through a purchase.
func (f *fixture) user(t *testing.T, telegramID, gold int64) {
	t.Helper()
	require.NoError(t, f.users.RegisterUser(f.ctx, &model.User{TelegramID: telegramID, Handle: "u"}))
	if gold > 0 {
		_, err := f.ledger.Purchase(f.ctx, telegramID, gold, "seed")
		require.NoError(t, err)
	}
}

func (f *fixture) balance(t *testing.T, telegramID int64) int64 {
	t.Helper()
	balance, err := f.ledger.GetBalance(f.ctx, telegramID)
	require.NoError(t, err)
	return balance
}

func (f *fixture) createQuest(t *testing.T, budget int64) *model.Quest {
	t.Helper()
	q, err := f.quests.CreateQuest(f.ctx, CreateQuestRequest{
		CreatorID:  creatorID,
		Title:      "Slay the dragon",
		Category:   "combat",
		Tier:       model.TierInitiate,
		GoldBudget: budget,
	})
	require.NoError(t, err)
	return q
}

func (f *fixture) apply(t *testing.T, questID uuid.UUID, applicantID int64) *model.Application {
	t.Helper()
	app, err := f.apps.ApplyToQuest(f.ctx, questID, applicantID)
	require.NoError(t, err)
	return app
}

func (f *fixture) review(t *testing.T, appID uuid.UUID, decision model.ReviewDecision) *model.Application {
	t.Helper()
	app, err := f.apps.ReviewApplication(f.ctx, appID, creatorID, decision, "")
	require.NoError(t, err)
	return app
}

// recruit applies and approves applicantID, returning the approved application.
func (f *fixture) recruit(t *testing.T, questID uuid.UUID, applicantID int64) *model.Application {
	t.Helper()
	app := f.apply(t, questID, applicantID)
	return f.review(t, app.ApplicationID, model.DecisionApprove)
}

func (f *fixture) questStatus(t *testing.T, questID uuid.UUID) model.QuestStatus {
	t.Helper()
	q, err := f.quests.GetQuest(f.ctx, questID)
	require.NoError(t, err)
	return q.Status
}

func (f *fixture) requireConsistent(t *testing.T, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		rec, err := f.ledger.Reconcile(f.ctx, id)
		require.NoError(t, err)
		require.True(t, rec.Consistent(), "balance drift for %d: stored %d computed %d", id, rec.Stored, rec.Computed)
	}
}

var errStorage = errors.New("storage unavailable")

// failingStore fails every balance write, simulating a storage outage mid-operation.
type failingStore struct {
	*repository.Memory
	armed bool
}

func (s *failingStore) Transaction(ctx context.Context, fn func(tx StoreTx) error) error {
	return s.Memory.Transaction(ctx, func(tx repository.Tx) error {
		return fn(&failingTx{Tx: tx, armed: s.armed})
	})
}

type failingTx struct {
	repository.Tx
	armed bool
}

func (t *failingTx) SetUserBalance(ctx context.Context, telegramID int64, balance int64) error {
	if t.armed {
		return errStorage
	}
	return t.Tx.SetUserBalance(ctx, telegramID, balance)
}
