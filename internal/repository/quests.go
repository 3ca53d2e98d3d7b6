package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questboard/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Quest struct {
	QuestID        uuid.UUID  `db:"quest_id"`
	CreatorID      int64      `db:"creator_id"`
	Title          string     `db:"title"`
	Description    string     `db:"description"`
	Category       string     `db:"category"`
	DifficultyTier string     `db:"difficulty_tier"`
	Status         string     `db:"status"`
	GoldBudget     int64      `db:"gold_budget"`
	Commission     int64      `db:"commission"`
	GoldReward     int64      `db:"gold_reward"`
	XPReward       int        `db:"xp_reward"`
	DueDate        *time.Time `db:"due_date"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	DeletedAt      *time.Time `db:"deleted_at"`
}

var questColumns = []string{
	"quest_id", "creator_id", "title", "description", "category", "difficulty_tier", "status",
	"gold_budget", "commission", "gold_reward", "xp_reward", "due_date",
	"created_at", "updated_at", "completed_at", "deleted_at",
}

func (r *Quest) toModel() *model.Quest {
	return &model.Quest{
		QuestID:        r.QuestID,
		CreatorID:      r.CreatorID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		DifficultyTier: model.DifficultyTier(r.DifficultyTier),
		Status:         model.QuestStatus(r.Status),
		GoldBudget:     r.GoldBudget,
		Commission:     r.Commission,
		GoldReward:     r.GoldReward,
		XPReward:       r.XPReward,
		DueDate:        r.DueDate,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		CompletedAt:    r.CompletedAt,
		DeletedAt:      r.DeletedAt,
	}
}

func questValues(quest *model.Quest) map[string]interface{} {
	return map[string]interface{}{
		"title":           quest.Title,
		"description":     quest.Description,
		"category":        quest.Category,
		"difficulty_tier": string(quest.DifficultyTier),
		"status":          string(quest.Status),
		"gold_budget":     quest.GoldBudget,
		"commission":      quest.Commission,
		"gold_reward":     quest.GoldReward,
		"xp_reward":       quest.XPReward,
		"due_date":        quest.DueDate,
		"updated_at":      quest.UpdatedAt,
		"completed_at":    quest.CompletedAt,
		"deleted_at":      quest.DeletedAt,
	}
}

func (q *queries) InsertQuest(ctx context.Context, quest *model.Quest) error {
	values := questValues(quest)
	values["quest_id"] = quest.QuestID
	values["creator_id"] = quest.CreatorID
	values["created_at"] = quest.CreatedAt

	query, args, err := squirrel.
		Insert("quests").
		SetMap(values).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	_, err = q.ext.ExecContext(ctx, query, args...)
	return err
}

func (q *queries) UpdateQuest(ctx context.Context, quest *model.Quest) error {
	query, args, err := squirrel.
		Update("quests").
		SetMap(questValues(quest)).
		Where(squirrel.Eq{"quest_id": quest.QuestID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest update query: %w", err)
	}

	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (q *queries) getQuest(ctx context.Context, questID uuid.UUID, forUpdate bool) (*model.Quest, error) {
	builder := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"quest_id": questID, "deleted_at": nil}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var row Quest
	if err := sqlx.GetContext(ctx, q.ext, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

func (q *queries) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	return q.getQuest(ctx, questID, false)
}

func (q *queries) LockQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	return q.getQuest(ctx, questID, true)
}

func (q *queries) ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error) {
	builder := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.CreatorID != nil {
		builder = builder.Where(squirrel.Eq{"creator_id": *filter.CreatorID})
	}
	if filter.Category != "" {
		builder = builder.Where(squirrel.Expr("LOWER(category) = LOWER(?)", filter.Category))
	}
	if filter.Tier != "" {
		builder = builder.Where(squirrel.Eq{"difficulty_tier": string(filter.Tier)})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []Quest
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	quests := make([]*model.Quest, len(rows))
	for i := range rows {
		quests[i] = rows[i].toModel()
	}
	return quests, nil
}
