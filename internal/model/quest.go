package model

import (
	"time"

	"github.com/google/uuid"
)

type DifficultyTier string

const (
	TierInitiate   DifficultyTier = "initiate"
	TierAdventurer DifficultyTier = "adventurer"
	TierChampion   DifficultyTier = "champion"
	TierMythic     DifficultyTier = "mythic"
)

// Tiers lists every difficulty tier in ascending order.
var Tiers = []DifficultyTier{TierInitiate, TierAdventurer, TierChampion, TierMythic}

func (t DifficultyTier) Valid() bool {
	for _, tier := range Tiers {
		if t == tier {
			return true
		}
	}
	return false
}

type QuestStatus string

const (
	QuestOpen       QuestStatus = "open"
	QuestInProgress QuestStatus = "in-progress"
	QuestCompleted  QuestStatus = "completed"
	QuestCancelled  QuestStatus = "cancelled"
)

// in-progress -> open is only taken when the last participant is kicked.
var questTransitions = map[QuestStatus][]QuestStatus{
	QuestOpen:       {QuestInProgress, QuestCancelled},
	QuestInProgress: {QuestCompleted, QuestOpen},
}

func (s QuestStatus) CanTransitionTo(next QuestStatus) bool {
	for _, allowed := range questTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsApplicants reports whether new applications may be filed.
func (s QuestStatus) AcceptsApplicants() bool {
	return s == QuestOpen || s == QuestInProgress
}

type Quest struct {
	QuestID        uuid.UUID
	CreatorID      int64
	Title          string
	Description    string
	Category       string
	DifficultyTier DifficultyTier
	Status         QuestStatus
	GoldBudget     int64
	Commission     int64
	GoldReward     int64
	XPReward       int
	DueDate        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
	DeletedAt      *time.Time
}

type QuestFilter struct {
	Status    QuestStatus
	CreatorID *int64
	Category  string
	Tier      DifficultyTier
	Limit     int
	Offset    int
}

// QuestEdit carries the mutable fields of an open quest; nil means unchanged.
type QuestEdit struct {
	Title       *string
	Description *string
	Category    *string
	DueDate     *time.Time
	GoldBudget  *int64
}

// Payout assigns part of a quest's reward to a participant on completion.
type Payout struct {
	UserID int64
	Amount int64
}
