package service

import (
	"testing"

	"questboard/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuest_EscrowsBudget(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)

	q := f.createQuest(t, 500)

	assert.Equal(t, model.QuestOpen, q.Status)
	assert.Equal(t, int64(500), q.GoldBudget)
	assert.Equal(t, int64(25), q.Commission)
	assert.Equal(t, int64(475), q.GoldReward)
	assert.Equal(t, 100, q.XPReward)
	assert.Equal(t, int64(500), f.balance(t, creatorID))

	txns, err := f.ledger.ListTransactions(f.ctx, creatorID, 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, model.TxTransfer, txns[0].Type)
	assert.Equal(t, int64(-500), txns[0].Amount)
	assert.Equal(t, int64(25), txns[0].CommissionFee)
	assert.Equal(t, q.QuestID, *txns[0].QuestRef)

	f.requireConsistent(t, creatorID)
}

func TestCreateQuest_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateQuestRequest
		wantErr error
	}{
		{
			name:    "below tier range",
			req:     CreateQuestRequest{CreatorID: creatorID, Category: "combat", Tier: model.TierInitiate, GoldBudget: 50},
			wantErr: ErrOutOfTierRange,
		},
		{
			name:    "above balance",
			req:     CreateQuestRequest{CreatorID: creatorID, Category: "combat", Tier: model.TierAdventurer, GoldBudget: 2000},
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "unknown tier",
			req:     CreateQuestRequest{CreatorID: creatorID, Category: "combat", Tier: "legendary", GoldBudget: 500},
			wantErr: ErrInvalidTier,
		},
		{
			name:    "unknown category",
			req:     CreateQuestRequest{CreatorID: creatorID, Category: "cooking", Tier: model.TierInitiate, GoldBudget: 500},
			wantErr: ErrInvalidCategory,
		},
		{
			name:    "unregistered creator",
			req:     CreateQuestRequest{CreatorID: 999, Category: "combat", Tier: model.TierInitiate, GoldBudget: 500},
			wantErr: ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.user(t, creatorID, 1000)

			_, err := f.quests.CreateQuest(f.ctx, tt.req)
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, int64(1000), f.balance(t, creatorID))
			quests, err := f.quests.ListQuests(f.ctx, model.QuestFilter{})
			require.NoError(t, err)
			assert.Empty(t, quests)
		})
	}
}

func TestEditQuest_ResizesEscrow(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	q := f.createQuest(t, 500)

	budget := int64(800)
	title := "Slay two dragons"
	edited, err := f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{Title: &title, GoldBudget: &budget})
	require.NoError(t, err)
	assert.Equal(t, title, edited.Title)
	assert.Equal(t, int64(40), edited.Commission)
	assert.Equal(t, int64(760), edited.GoldReward)
	assert.Equal(t, int64(200), f.balance(t, creatorID))

	budget = 300
	edited, err = f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{GoldBudget: &budget})
	require.NoError(t, err)
	assert.Equal(t, int64(285), edited.GoldReward)
	assert.Equal(t, int64(700), f.balance(t, creatorID))

	budget = 1001
	_, err = f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{GoldBudget: &budget})
	assert.ErrorIs(t, err, ErrOutOfTierRange)

	_, err = f.ledger.Cashout(f.ctx, creatorID, 600)
	require.NoError(t, err)

	// only the 700 increase must be covered
	budget = 1000
	_, err = f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{GoldBudget: &budget})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, int64(100), f.balance(t, creatorID))

	_, err = f.quests.EditQuest(f.ctx, q.QuestID, heroID, model.QuestEdit{Title: &title})
	assert.ErrorIs(t, err, ErrNotQuestCreator)

	f.requireConsistent(t, creatorID)
}

func TestEditQuest_LockedAfterApproval(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	f.user(t, heroID, 0)
	q := f.createQuest(t, 500)
	app := f.recruit(t, q.QuestID, heroID)

	title := "new"
	_, err := f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{Title: &title})
	assert.ErrorIs(t, err, ErrLockedAfterApproval)

	// back to open after the kick, but the approval history still locks it
	f.review(t, app.ApplicationID, model.DecisionKick)
	require.Equal(t, model.QuestOpen, f.questStatus(t, q.QuestID))

	_, err = f.quests.EditQuest(f.ctx, q.QuestID, creatorID, model.QuestEdit{Title: &title})
	assert.ErrorIs(t, err, ErrLockedAfterApproval)
}

func TestDeleteQuest(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	q := f.createQuest(t, 500)

	_, err := f.quests.DeleteQuest(f.ctx, q.QuestID, heroID)
	require.ErrorIs(t, err, ErrNotQuestCreator)

	refund, err := f.quests.DeleteQuest(f.ctx, q.QuestID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, int64(475), refund)
	assert.Equal(t, int64(975), f.balance(t, creatorID))
	assert.Equal(t, int64(25), f.balance(t, platformID))

	_, err = f.quests.GetQuest(f.ctx, q.QuestID)
	assert.ErrorIs(t, err, ErrQuestNotFound)

	_, err = f.quests.DeleteQuest(f.ctx, q.QuestID, creatorID)
	assert.ErrorIs(t, err, ErrQuestNotFound)

	f.requireConsistent(t, creatorID, platformID)
}

func TestDeleteQuest_WithApplicationHistory(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 2000)
	f.user(t, heroID, 0)

	pending := f.createQuest(t, 500)
	f.apply(t, pending.QuestID, heroID)
	_, err := f.quests.DeleteQuest(f.ctx, pending.QuestID, creatorID)
	assert.ErrorIs(t, err, ErrQuestHasApplications)

	active := f.createQuest(t, 500)
	app := f.recruit(t, active.QuestID, heroID)
	_, err = f.quests.DeleteQuest(f.ctx, active.QuestID, creatorID)
	assert.ErrorIs(t, err, ErrLockedAfterApproval)

	f.review(t, app.ApplicationID, model.DecisionKick)
	_, err = f.quests.DeleteQuest(f.ctx, active.QuestID, creatorID)
	assert.ErrorIs(t, err, ErrLockedAfterApproval)

	assert.Equal(t, int64(1000), f.balance(t, creatorID))
}

func TestDeleteQuest_AfterOpen(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, f *fixture, questID uuid.UUID)
		wantErr error
	}{
		{
			name: "in progress",
			prepare: func(t *testing.T, f *fixture, questID uuid.UUID) {
				f.recruit(t, questID, heroID)
			},
			wantErr: ErrLockedAfterApproval,
		},
		{
			name: "completed",
			prepare: func(t *testing.T, f *fixture, questID uuid.UUID) {
				f.recruit(t, questID, heroID)
				_, err := f.quests.CompleteQuest(f.ctx, questID, creatorID, nil)
				require.NoError(t, err)
			},
			wantErr: ErrLockedAfterApproval,
		},
		{
			name: "cancelled",
			prepare: func(t *testing.T, f *fixture, questID uuid.UUID) {
				_, err := f.quests.CancelQuest(f.ctx, questID, creatorID)
				require.NoError(t, err)
			},
			wantErr: ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.user(t, creatorID, 1000)
			f.user(t, heroID, 0)
			q := f.createQuest(t, 500)
			tt.prepare(t, f, q.QuestID)
			before := f.balance(t, creatorID)

			_, err := f.quests.DeleteQuest(f.ctx, q.QuestID, creatorID)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.balance(t, creatorID))

			_, err = f.quests.GetQuest(f.ctx, q.QuestID)
			assert.NoError(t, err)
		})
	}
}

func TestCancelQuest_RejectsPendingAndRefunds(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	f.user(t, heroID, 0)
	q := f.createQuest(t, 500)
	app := f.apply(t, q.QuestID, heroID)

	cancelled, err := f.quests.CancelQuest(f.ctx, q.QuestID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, model.QuestCancelled, cancelled.Status)
	assert.Equal(t, int64(975), f.balance(t, creatorID))

	apps, err := f.apps.ListApplications(f.ctx, q.QuestID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, app.ApplicationID, apps[0].ApplicationID)
	assert.Equal(t, model.ApplicationRejected, apps[0].Status)
	assert.Contains(t, f.notifier.EventsFor(heroID), model.EventApplicationReviewed)

	_, err = f.quests.CancelQuest(f.ctx, q.QuestID, creatorID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.apps.ApplyToQuest(f.ctx, q.QuestID, heroID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.requireConsistent(t, creatorID, platformID)
}

func TestCompleteQuest_Payouts(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	f.user(t, heroID, 0)
	f.user(t, sidekickID, 0)
	q := f.createQuest(t, 500)
	f.recruit(t, q.QuestID, heroID)
	f.recruit(t, q.QuestID, sidekickID)

	tests := []struct {
		name    string
		payouts []model.Payout
	}{
		{name: "over the reward", payouts: []model.Payout{{UserID: heroID, Amount: 400}, {UserID: sidekickID, Amount: 76}}},
		{name: "non participant", payouts: []model.Payout{{UserID: creatorID, Amount: 10}}},
		{name: "duplicate recipient", payouts: []model.Payout{{UserID: heroID, Amount: 10}, {UserID: heroID, Amount: 10}}},
		{name: "non positive amount", payouts: []model.Payout{{UserID: heroID, Amount: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.quests.CompleteQuest(f.ctx, q.QuestID, creatorID, tt.payouts)
			assert.ErrorIs(t, err, ErrInvalidPayout)
			assert.Equal(t, model.QuestInProgress, f.questStatus(t, q.QuestID))
		})
	}

	completed, err := f.quests.CompleteQuest(f.ctx, q.QuestID, creatorID, []model.Payout{
		{UserID: heroID, Amount: 300},
		{UserID: sidekickID, Amount: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, model.QuestCompleted, completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	assert.Equal(t, int64(300), f.balance(t, heroID))
	assert.Equal(t, int64(100), f.balance(t, sidekickID))
	assert.Equal(t, int64(575), f.balance(t, creatorID))
	assert.Equal(t, int64(25), f.balance(t, platformID))

	_, err = f.quests.CompleteQuest(f.ctx, q.QuestID, creatorID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	f.requireConsistent(t, creatorID, heroID, sidekickID, platformID)
}

func TestCompleteQuest_RequiresInProgress(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 1000)
	q := f.createQuest(t, 500)

	_, err := f.quests.CompleteQuest(f.ctx, q.QuestID, creatorID, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.quests.CompleteQuest(f.ctx, uuid.New(), creatorID, nil)
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

func TestListQuests_Filters(t *testing.T) {
	f := newFixture(t)
	f.user(t, creatorID, 5000)
	f.user(t, heroID, 0)

	first := f.createQuest(t, 500)
	second := f.createQuest(t, 600)
	f.recruit(t, second.QuestID, heroID)

	open, err := f.quests.ListQuests(f.ctx, model.QuestFilter{Status: model.QuestOpen})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, first.QuestID, open[0].QuestID)

	creator := creatorID
	all, err := f.quests.ListQuests(f.ctx, model.QuestFilter{CreatorID: &creator})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.QuestID, all[0].QuestID)
}
