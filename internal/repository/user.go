package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"questboard/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Handle           string    `db:"handle"`
	Username         string    `db:"username"`
	GoldBalance      int64     `db:"gold_balance"`
	RegistrationDate time.Time `db:"registration_date"`
}

var userColumns = []string{"telegram_id", "handle", "username", "gold_balance", "registration_date"}

func (u *User) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		GoldBalance:      u.GoldBalance,
		RegistrationDate: u.RegistrationDate,
	}
}

func (q *queries) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":       user.TelegramID,
			"handle":            user.Handle,
			"username":          user.Username,
			"gold_balance":      user.GoldBalance,
			"registration_date": user.RegistrationDate,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}
	return nil
}

func (q *queries) getUser(ctx context.Context, telegramID int64, forUpdate bool) (*model.User, error) {
	builder := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = sqlx.GetContext(ctx, q.ext, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (q *queries) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return q.getUser(ctx, telegramID, false)
}

func (q *queries) LockUser(ctx context.Context, telegramID int64) (*model.User, error) {
	return q.getUser(ctx, telegramID, true)
}

func (q *queries) SetUserBalance(ctx context.Context, telegramID int64, balance int64) error {
	query, args, err := squirrel.
		Update("users").
		Set("gold_balance", balance).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
