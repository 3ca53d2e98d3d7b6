package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"questboard/internal/model"

	"github.com/google/uuid"
)

// Memory is an in-process store. A transaction works on a copy of the state that replaces
// the shared state only when the callback succeeds, so failed operations leave no trace.
// Transactions are serialised by a single mutex.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) Transaction(ctx context.Context, t func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	next := m.state.clone()
	if err := t(next); err != nil {
		return err
	}
	m.state = next
	return nil
}

func (m *Memory) read() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reads go to the last committed state. A committed state is never mutated again.

func (m *Memory) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return m.read().GetUser(ctx, telegramID)
}

func (m *Memory) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	return m.read().GetQuest(ctx, questID)
}

func (m *Memory) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	return m.read().ListQuests(ctx, filter)
}

func (m *Memory) GetApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error) {
	return m.read().GetApplication(ctx, applicationID)
}

func (m *Memory) ListApplications(ctx context.Context, questID uuid.UUID) ([]*model.Application, error) {
	return m.read().ListApplications(ctx, questID)
}

func (m *Memory) GetSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	return m.read().GetSubmission(ctx, submissionID)
}

func (m *Memory) ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error) {
	return m.read().ListSubmissions(ctx, questID)
}

func (m *Memory) ListTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	return m.read().ListTransactions(ctx, telegramID, limit)
}

type memState struct {
	users        map[int64]model.User
	transactions []model.Transaction
	quests       map[uuid.UUID]model.Quest
	questOrder   []uuid.UUID
	apps         map[uuid.UUID]model.Application
	appOrder     []uuid.UUID
	subs         map[uuid.UUID]model.Submission
	subOrder     []uuid.UUID
}

func newMemState() *memState {
	return &memState{
		users:  make(map[int64]model.User),
		quests: make(map[uuid.UUID]model.Quest),
		apps:   make(map[uuid.UUID]model.Application),
		subs:   make(map[uuid.UUID]model.Submission),
	}
}

// clone copies the containers. Records are stored by value and their pointer fields are
// only ever replaced, never written through, so a shallow record copy is enough.
func (s *memState) clone() *memState {
	c := &memState{
		users:        make(map[int64]model.User, len(s.users)),
		transactions: append([]model.Transaction(nil), s.transactions...),
		quests:       make(map[uuid.UUID]model.Quest, len(s.quests)),
		questOrder:   append([]uuid.UUID(nil), s.questOrder...),
		apps:         make(map[uuid.UUID]model.Application, len(s.apps)),
		appOrder:     append([]uuid.UUID(nil), s.appOrder...),
		subs:         make(map[uuid.UUID]model.Submission, len(s.subs)),
		subOrder:     append([]uuid.UUID(nil), s.subOrder...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.quests {
		c.quests[k] = v
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.subs {
		c.subs[k] = v
	}
	return c
}

func (s *memState) CreateUser(_ context.Context, user *model.User) error {
	if _, ok := s.users[user.TelegramID]; ok {
		return ErrDuplicate
	}
	s.users[user.TelegramID] = *user
	return nil
}

func (s *memState) GetUser(_ context.Context, telegramID int64) (*model.User, error) {
	u, ok := s.users[telegramID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *memState) LockUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.GetUser(ctx, telegramID)
}

func (s *memState) SetUserBalance(_ context.Context, telegramID int64, balance int64) error {
	u, ok := s.users[telegramID]
	if !ok {
		return ErrNotFound
	}
	if balance < 0 {
		return ErrConstraint
	}
	u.GoldBalance = balance
	s.users[telegramID] = u
	return nil
}

func (s *memState) InsertTransaction(_ context.Context, txn *model.Transaction) error {
	if _, ok := s.users[txn.UserID]; !ok {
		return ErrConstraint
	}
	s.transactions = append(s.transactions, *txn)
	return nil
}

func (s *memState) SumTransactions(_ context.Context, telegramID int64) (int64, error) {
	var sum int64
	for _, txn := range s.transactions {
		if txn.UserID == telegramID {
			sum += txn.Amount
		}
	}
	return sum, nil
}

func (s *memState) ListTransactions(_ context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID != telegramID {
			continue
		}
		txn := s.transactions[i]
		out = append(out, &txn)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memState) InsertQuest(_ context.Context, quest *model.Quest) error {
	if _, ok := s.quests[quest.QuestID]; ok {
		return ErrDuplicate
	}
	if _, ok := s.users[quest.CreatorID]; !ok {
		return ErrConstraint
	}
	s.quests[quest.QuestID] = *quest
	s.questOrder = append(s.questOrder, quest.QuestID)
	return nil
}

func (s *memState) GetQuest(_ context.Context, questID uuid.UUID) (*model.Quest, error) {
	q, ok := s.quests[questID]
	if !ok || q.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (s *memState) LockQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	return s.GetQuest(ctx, questID)
}

func (s *memState) UpdateQuest(_ context.Context, quest *model.Quest) error {
	if _, ok := s.quests[quest.QuestID]; !ok {
		return ErrNotFound
	}
	if quest.Commission+quest.GoldReward != quest.GoldBudget {
		return ErrConstraint
	}
	s.quests[quest.QuestID] = *quest
	return nil
}

// ListQuests returns matching quests newest first.
func (s *memState) ListQuests(_ context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	var out []*model.Quest
	skipped := 0
	for i := len(s.questOrder) - 1; i >= 0; i-- {
		q := s.quests[s.questOrder[i]]
		switch {
		case q.DeletedAt != nil:
			continue
		case filter.Status != "" && q.Status != filter.Status:
			continue
		case filter.CreatorID != nil && q.CreatorID != *filter.CreatorID:
			continue
		case filter.Category != "" && !strings.EqualFold(q.Category, filter.Category):
			continue
		case filter.Tier != "" && q.DifficultyTier != filter.Tier:
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, &q)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *memState) InsertApplication(_ context.Context, app *model.Application) error {
	if _, ok := s.apps[app.ApplicationID]; ok {
		return ErrDuplicate
	}
	if app.Status.Active() {
		if _, err := s.FindActiveApplication(context.Background(), app.QuestID, app.ApplicantID); err == nil {
			return ErrDuplicate
		}
	}
	s.apps[app.ApplicationID] = *app
	s.appOrder = append(s.appOrder, app.ApplicationID)
	return nil
}

func (s *memState) GetApplication(_ context.Context, applicationID uuid.UUID) (*model.Application, error) {
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, ErrNotFound
	}
	return &app, nil
}

func (s *memState) LockApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error) {
	return s.GetApplication(ctx, applicationID)
}

func (s *memState) UpdateApplication(_ context.Context, app *model.Application) error {
	if _, ok := s.apps[app.ApplicationID]; !ok {
		return ErrNotFound
	}
	s.apps[app.ApplicationID] = *app
	return nil
}

func (s *memState) ListApplications(_ context.Context, questID uuid.UUID) ([]*model.Application, error) {
	var out []*model.Application
	for _, id := range s.appOrder {
		app := s.apps[id]
		if app.QuestID == questID {
			out = append(out, &app)
		}
	}
	return out, nil
}

func (s *memState) CountApplications(_ context.Context, questID uuid.UUID) (model.ApplicationCounts, error) {
	counts := make(model.ApplicationCounts)
	for _, app := range s.apps {
		if app.QuestID == questID {
			counts[app.Status]++
		}
	}
	return counts, nil
}

func (s *memState) FindActiveApplication(_ context.Context, questID uuid.UUID, applicantID int64) (*model.Application, error) {
	for i := len(s.appOrder) - 1; i >= 0; i-- {
		app := s.apps[s.appOrder[i]]
		if app.QuestID == questID && app.ApplicantID == applicantID && app.Status.Active() {
			return &app, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memState) InsertSubmission(_ context.Context, sub *model.Submission) error {
	if _, ok := s.subs[sub.SubmissionID]; ok {
		return ErrDuplicate
	}
	if !sub.ParticipantRef.Valid() {
		return ErrConstraint
	}
	stored := *sub
	stored.Payload.Files = append([]string(nil), sub.Payload.Files...)
	s.subs[sub.SubmissionID] = stored
	s.subOrder = append(s.subOrder, sub.SubmissionID)
	return nil
}

func (s *memState) GetSubmission(_ context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	sub, ok := s.subs[submissionID]
	if !ok {
		return nil, ErrNotFound
	}
	sub.Payload.Files = append([]string(nil), sub.Payload.Files...)
	return &sub, nil
}

func (s *memState) LockSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error) {
	return s.GetSubmission(ctx, submissionID)
}

func (s *memState) UpdateSubmission(_ context.Context, sub *model.Submission) error {
	stored, ok := s.subs[sub.SubmissionID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = sub.Status
	stored.Feedback = sub.Feedback
	stored.ReviewedAt = sub.ReviewedAt
	s.subs[sub.SubmissionID] = stored
	return nil
}

func (s *memState) ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error) {
	var out []*model.Submission
	for _, id := range s.subOrder {
		if s.subs[id].QuestID != questID {
			continue
		}
		sub, _ := s.GetSubmission(ctx, id)
		out = append(out, sub)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *memState) CountSubmissions(_ context.Context, questID uuid.UUID, applicantID int64) (int, error) {
	count := 0
	for _, sub := range s.subs {
		if sub.QuestID != questID {
			continue
		}
		ref := sub.ParticipantRef
		switch {
		case ref.UserID != nil && *ref.UserID == applicantID:
			count++
		case ref.ApplicationID != nil:
			if app, ok := s.apps[*ref.ApplicationID]; ok && app.ApplicantID == applicantID {
				count++
			}
		}
	}
	return count, nil
}
