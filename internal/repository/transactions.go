package repository

import (
	"context"
	"fmt"
	"time"

	"questboard/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Transaction struct {
	TransactionID uuid.UUID  `db:"transaction_id"`
	UserID        int64      `db:"user_telegram_id"`
	Type          string     `db:"type"`
	Amount        int64      `db:"amount"`
	CommissionFee int64      `db:"commission_fee"`
	QuestID       *uuid.UUID `db:"quest_id"`
	Note          string     `db:"note"`
	CreatedAt     time.Time  `db:"created_at"`
}

func (q *queries) InsertTransaction(ctx context.Context, txn *model.Transaction) error {
	query, args, err := squirrel.
		Insert("transactions").
		SetMap(map[string]interface{}{
			"transaction_id":   txn.TransactionID,
			"user_telegram_id": txn.UserID,
			"type":             string(txn.Type),
			"amount":           txn.Amount,
			"commission_fee":   txn.CommissionFee,
			"quest_id":         txn.QuestRef,
			"note":             txn.Note,
			"created_at":       txn.CreatedAt,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build transaction insert query: %w", err)
	}

	_, err = q.ext.ExecContext(ctx, query, args...)
	return err
}

func (q *queries) SumTransactions(ctx context.Context, telegramID int64) (int64, error) {
	query, args, err := squirrel.
		Select("COALESCE(SUM(amount), 0)").
		From("transactions").
		Where(squirrel.Eq{"user_telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var sum int64
	if err := sqlx.GetContext(ctx, q.ext, &sum, query, args...); err != nil {
		return 0, err
	}
	return sum, nil
}

// ListTransactions returns the user's log newest first.
func (q *queries) ListTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	builder := squirrel.
		Select("transaction_id", "user_telegram_id", "type", "amount", "commission_fee", "quest_id", "note", "created_at").
		From("transactions").
		Where(squirrel.Eq{"user_telegram_id": telegramID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []Transaction
	if err := sqlx.SelectContext(ctx, q.ext, &rows, query, args...); err != nil {
		return nil, err
	}

	txns := make([]*model.Transaction, len(rows))
	for i, row := range rows {
		txns[i] = &model.Transaction{
			TransactionID: row.TransactionID,
			UserID:        row.UserID,
			Type:          model.TransactionType(row.Type),
			Amount:        row.Amount,
			CommissionFee: row.CommissionFee,
			QuestRef:      row.QuestID,
			Note:          row.Note,
			CreatedAt:     row.CreatedAt,
		}
	}
	return txns, nil
}
