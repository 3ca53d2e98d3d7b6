package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"questboard/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, m *Memory, id, balance int64) {
	t.Helper()
	err := m.Transaction(context.Background(), func(tx Tx) error {
		return tx.CreateUser(context.Background(), &model.User{TelegramID: id, GoldBalance: balance})
	})
	require.NoError(t, err)
}

func TestMemory_TransactionRollback(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, 1, 1000)

	boom := errors.New("boom")
	err := m.Transaction(ctx, func(tx Tx) error {
		if err := tx.SetUserBalance(ctx, 1, 500); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, &model.Transaction{TransactionID: uuid.New(), UserID: 1, Amount: -500}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	user, err := m.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), user.GoldBalance)

	txns, err := m.ListTransactions(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestMemory_RejectsNegativeBalance(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, 1, 10)

	err := m.Transaction(ctx, func(tx Tx) error {
		return tx.SetUserBalance(ctx, 1, -1)
	})
	assert.ErrorIs(t, err, ErrConstraint)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, 1, 10)

	user, err := m.GetUser(ctx, 1)
	require.NoError(t, err)
	user.GoldBalance = 99999

	again, err := m.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), again.GoldBalance)
}

func TestMemory_ListTransactionsNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, 1, 0)

	err := m.Transaction(ctx, func(tx Tx) error {
		for _, amount := range []int64{100, -40, 15} {
			if err := tx.InsertTransaction(ctx, &model.Transaction{TransactionID: uuid.New(), UserID: 1, Amount: amount}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	txns, err := m.ListTransactions(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(15), txns[0].Amount)
	assert.Equal(t, int64(-40), txns[1].Amount)

	err = m.Transaction(ctx, func(tx Tx) error {
		sum, err := tx.SumTransactions(ctx, 1)
		assert.Equal(t, int64(75), sum)
		return err
	})
	require.NoError(t, err)
}

func TestMemory_QuestsHideDeleted(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	seedUser(t, m, 1, 0)

	kept := model.Quest{QuestID: uuid.New(), CreatorID: 1, Status: model.QuestOpen, Category: "combat", GoldBudget: 100, Commission: 5, GoldReward: 95}
	gone := kept
	gone.QuestID = uuid.New()

	err := m.Transaction(ctx, func(tx Tx) error {
		if err := tx.InsertQuest(ctx, &kept); err != nil {
			return err
		}
		if err := tx.InsertQuest(ctx, &gone); err != nil {
			return err
		}
		deletedAt := time.Now()
		gone.DeletedAt = &deletedAt
		return tx.UpdateQuest(ctx, &gone)
	})
	require.NoError(t, err)

	_, err = m.GetQuest(ctx, gone.QuestID)
	assert.ErrorIs(t, err, ErrNotFound)

	quests, err := m.ListQuests(ctx, model.QuestFilter{Category: "COMBAT"})
	require.NoError(t, err)
	require.Len(t, quests, 1)
	assert.Equal(t, kept.QuestID, quests[0].QuestID)
}

func TestMemory_ApplicationLog(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	questID := uuid.New()

	first := model.Application{ApplicationID: uuid.New(), QuestID: questID, ApplicantID: 7, Status: model.ApplicationPending}
	second := model.Application{ApplicationID: uuid.New(), QuestID: questID, ApplicantID: 7, Status: model.ApplicationPending}

	err := m.Transaction(ctx, func(tx Tx) error {
		if err := tx.InsertApplication(ctx, &first); err != nil {
			return err
		}
		return tx.InsertApplication(ctx, &second)
	})
	require.ErrorIs(t, err, ErrDuplicate)

	err = m.Transaction(ctx, func(tx Tx) error {
		if err := tx.InsertApplication(ctx, &first); err != nil {
			return err
		}
		first.Status = model.ApplicationRejected
		if err := tx.UpdateApplication(ctx, &first); err != nil {
			return err
		}
		return tx.InsertApplication(ctx, &second)
	})
	require.NoError(t, err)

	apps, err := m.ListApplications(ctx, questID)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, model.ApplicationRejected, apps[0].Status)
	assert.Equal(t, model.ApplicationPending, apps[1].Status)

	err = m.Transaction(ctx, func(tx Tx) error {
		active, err := tx.FindActiveApplication(ctx, questID, 7)
		require.NoError(t, err)
		assert.Equal(t, second.ApplicationID, active.ApplicationID)

		counts, err := tx.CountApplications(ctx, questID)
		assert.Equal(t, 1, counts[model.ApplicationRejected])
		assert.Equal(t, 1, counts[model.ApplicationPending])
		return err
	})
	require.NoError(t, err)
}

func TestMemory_CountSubmissionsAcrossReferenceForms(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	questID := uuid.New()
	userID := int64(7)
	app := model.Application{ApplicationID: uuid.New(), QuestID: questID, ApplicantID: userID, Status: model.ApplicationApproved}

	err := m.Transaction(ctx, func(tx Tx) error {
		if err := tx.InsertApplication(ctx, &app); err != nil {
			return err
		}
		refs := []model.ParticipantRef{
			{UserID: &userID},
			{ApplicationID: &app.ApplicationID},
			{UserID: &userID},
		}
		for i, ref := range refs {
			if err := tx.InsertSubmission(ctx, &model.Submission{
				SubmissionID:   uuid.New(),
				QuestID:        questID,
				ParticipantRef: ref,
				SequenceNumber: i + 1,
				Status:         model.SubmissionSubmitted,
			}); err != nil {
				return err
			}
		}

		count, err := tx.CountSubmissions(ctx, questID, userID)
		assert.Equal(t, 3, count)
		return err
	})
	require.NoError(t, err)
}
