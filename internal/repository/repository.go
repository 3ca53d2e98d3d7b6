package repository

import (
	"context"
	"fmt"

	"questboard/internal/model"
	"questboard/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate key")
	ErrConstraint = errors.New("constraint violation")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// translateError maps Postgres integrity violations onto the store's sentinel errors.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return errors.Wrap(ErrDuplicate, pgErr.ConstraintName)
	case pgForeignKeyViolation, pgCheckViolation:
		return errors.Wrap(ErrConstraint, pgErr.ConstraintName)
	}
	return err
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Reader interface {
	GetUser(ctx context.Context, telegramID int64) (*model.User, error)
	GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	ListQuests(ctx context.Context, filter model.QuestFilter) ([]*model.Quest, error)
	GetApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error)
	ListApplications(ctx context.Context, questID uuid.UUID) ([]*model.Application, error)
	GetSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error)
	ListSubmissions(ctx context.Context, questID uuid.UUID) ([]*model.Submission, error)
	ListTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error)
}

// Tx is the write side of a store, only reachable inside Transaction.
type Tx interface {
	Reader

	CreateUser(ctx context.Context, user *model.User) error
	// LockUser reads the user row and holds it until the transaction ends.
	LockUser(ctx context.Context, telegramID int64) (*model.User, error)
	SetUserBalance(ctx context.Context, telegramID int64, balance int64) error
	InsertTransaction(ctx context.Context, txn *model.Transaction) error
	SumTransactions(ctx context.Context, telegramID int64) (int64, error)

	InsertQuest(ctx context.Context, quest *model.Quest) error
	LockQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	UpdateQuest(ctx context.Context, quest *model.Quest) error

	InsertApplication(ctx context.Context, app *model.Application) error
	LockApplication(ctx context.Context, applicationID uuid.UUID) (*model.Application, error)
	UpdateApplication(ctx context.Context, app *model.Application) error
	CountApplications(ctx context.Context, questID uuid.UUID) (model.ApplicationCounts, error)
	FindActiveApplication(ctx context.Context, questID uuid.UUID, applicantID int64) (*model.Application, error)

	InsertSubmission(ctx context.Context, sub *model.Submission) error
	LockSubmission(ctx context.Context, submissionID uuid.UUID) (*model.Submission, error)
	UpdateSubmission(ctx context.Context, sub *model.Submission) error
	// CountSubmissions counts a participant's submissions on a quest across both reference forms.
	CountSubmissions(ctx context.Context, questID uuid.UUID, applicantID int64) (int, error)
}

// queries runs every statement against either the pool or an open transaction.
type queries struct {
	ext sqlx.ExtContext
}

type Repository struct {
	queries
	db *sqlx.DB
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Transaction runs t inside a database transaction. Row locks taken through tx are held
// until commit or rollback.
func (r *Repository) Transaction(ctx context.Context, t func(tx Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(&queries{ext: tx})
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Migrate  bool   `json:"migrate"`
}

func New(cfg Config) (*Repository, error) {
	url := cfg.GetDatabaseURL()
	db, err := sqlx.Connect("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	if cfg.Migrate {
		if err := Migrate(db.DB); err != nil {
			db.Close()
			return nil, err
		}
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing connection.
func NewWithDB(db *sqlx.DB) *Repository {
	return &Repository{
		queries: queries{ext: db},
		db:      db,
	}
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}
