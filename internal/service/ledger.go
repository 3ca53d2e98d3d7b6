package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"questboard/internal/model"
	"questboard/internal/repository"

	"github.com/google/uuid"
)

type LedgerConfig struct {
	PlatformAccountID int64
}

// LedgerService is the only writer of gold balances. Every entry is appended to the
// transaction log and applied to the cached balance inside the same storage transaction.
type LedgerService struct {
	repo     Store
	cfg      LedgerConfig
	notifier Notifier
}

func NewLedgerService(repo Store, cfg LedgerConfig, notifier Notifier) *LedgerService {
	return &LedgerService{
		repo:     repo,
		cfg:      cfg,
		notifier: notifier,
	}
}

type entry struct {
	userID        int64
	txType        model.TransactionType
	amount        int64
	commissionFee int64
	questRef      *uuid.UUID
	note          string
}

type Reconciliation struct {
	TelegramID int64
	Stored     int64
	Computed   int64
}

func (r *Reconciliation) Consistent() bool {
	return r.Stored == r.Computed
}

// post locks the user row, applies the signed amount and appends the log entry.
// A debit that would take the balance below zero fails without writing anything.
func (l *LedgerService) post(ctx context.Context, tx StoreTx, o *outcome, e entry) (*model.Transaction, error) {
	user, err := tx.LockUser(ctx, e.userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user balance: %w", err)
	}

	balance := user.GoldBalance + e.amount
	if balance < 0 {
		return nil, ErrInsufficientBalance
	}

	txn := &model.Transaction{
		TransactionID: uuid.New(),
		UserID:        e.userID,
		Type:          e.txType,
		Amount:        e.amount,
		CommissionFee: e.commissionFee,
		QuestRef:      e.questRef,
		Note:          e.note,
		CreatedAt:     now(),
	}
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to append transaction: %w", err)
	}
	if err := tx.SetUserBalance(ctx, e.userID, balance); err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	o.txns = append(o.txns, txn)
	if e.amount > 0 {
		o.notify(e.userID, model.EventLedgerCredited, map[string]any{
			"type":    e.txType,
			"amount":  e.amount,
			"balance": balance,
		})
	}
	return txn, nil
}

// postAll applies entries in ascending user order so concurrent multi-user postings take
// row locks in the same order.
func (l *LedgerService) postAll(ctx context.Context, tx StoreTx, o *outcome, entries []entry) error {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].userID < entries[j].userID
	})
	for _, e := range entries {
		if e.amount == 0 {
			continue
		}
		if _, err := l.recordTx(ctx, tx, o, e); err != nil {
			return err
		}
	}
	return nil
}

func reserveEntry(userID, amount, commissionFee int64, ref uuid.UUID, note string) entry {
	return entry{
		userID:        userID,
		txType:        model.TxTransfer,
		amount:        -amount,
		commissionFee: commissionFee,
		questRef:      &ref,
		note:          note,
	}
}

func releaseEntry(userID, amount, commissionFee int64, ref uuid.UUID, note string) entry {
	return entry{
		userID:        userID,
		txType:        model.TxRefund,
		amount:        amount,
		commissionFee: commissionFee,
		questRef:      &ref,
		note:          note,
	}
}

// reserveTx moves amount from the user into escrow for ref inside an open transaction.
func (l *LedgerService) reserveTx(ctx context.Context, tx StoreTx, o *outcome, userID, amount, commissionFee int64, ref uuid.UUID, note string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.post(ctx, tx, o, reserveEntry(userID, amount, commissionFee, ref, note))
}

// releaseTx returns escrowed gold for ref to the user inside an open transaction.
func (l *LedgerService) releaseTx(ctx context.Context, tx StoreTx, o *outcome, userID, amount, commissionFee int64, ref uuid.UUID, note string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.post(ctx, tx, o, releaseEntry(userID, amount, commissionFee, ref, note))
}

func (l *LedgerService) recordTx(ctx context.Context, tx StoreTx, o *outcome, e entry) (*model.Transaction, error) {
	if e.amount == 0 {
		return nil, ErrInvalidAmount
	}
	return l.post(ctx, tx, o, e)
}

// releaseEscrow closes a quest's escrow without payouts: the reward goes back to the
// creator and the commission is booked to the platform account.
func (l *LedgerService) releaseEscrow(ctx context.Context, tx StoreTx, o *outcome, q *model.Quest) error {
	return l.postAll(ctx, tx, o, []entry{
		releaseEntry(q.CreatorID, q.GoldReward, 0, q.QuestID, "escrow refund"),
		l.commissionEntry(q),
	})
}

func (l *LedgerService) commissionEntry(q *model.Quest) entry {
	ref := q.QuestID
	return entry{
		userID:        l.cfg.PlatformAccountID,
		txType:        model.TxTransfer,
		amount:        q.Commission,
		commissionFee: q.Commission,
		questRef:      &ref,
		note:          "platform commission",
	}
}

func (l *LedgerService) run(ctx context.Context, fn func(tx StoreTx, o *outcome) error) error {
	o := &outcome{}
	err := l.repo.Transaction(ctx, func(tx StoreTx) error {
		return fn(tx, o)
	})
	if err != nil {
		return err
	}
	publish(l.notifier, o)
	return nil
}

// Reserve deducts amount from the user's balance into escrow for ref.
func (l *LedgerService) Reserve(ctx context.Context, telegramID int64, amount int64, ref uuid.UUID) (uuid.UUID, error) {
	var txn *model.Transaction
	err := l.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		txn, err = l.reserveTx(ctx, tx, o, telegramID, amount, ComputeCommission(amount), ref, "escrow reserve")
		return err
	})
	if err != nil {
		return uuid.Nil, err
	}
	return txn.TransactionID, nil
}

// Release returns previously reserved gold to the user.
func (l *LedgerService) Release(ctx context.Context, telegramID int64, amount int64, ref uuid.UUID) error {
	return l.run(ctx, func(tx StoreTx, o *outcome) error {
		_, err := l.releaseTx(ctx, tx, o, telegramID, amount, 0, ref, "escrow release")
		return err
	})
}

// Record appends an arbitrary signed entry.
func (l *LedgerService) Record(ctx context.Context, telegramID int64, txType model.TransactionType, amount, commissionFee int64, ref *uuid.UUID) (*model.Transaction, error) {
	var txn *model.Transaction
	err := l.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		txn, err = l.recordTx(ctx, tx, o, entry{
			userID:        telegramID,
			txType:        txType,
			amount:        amount,
			commissionFee: commissionFee,
			questRef:      ref,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Purchase credits gold bought through a verified payment.
func (l *LedgerService) Purchase(ctx context.Context, telegramID int64, amount int64, receiptRef string) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *model.Transaction
	err := l.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		txn, err = l.post(ctx, tx, o, entry{
			userID: telegramID,
			txType: model.TxPurchase,
			amount: amount,
			note:   receiptRef,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (l *LedgerService) Cashout(ctx context.Context, telegramID int64, amount int64) (*model.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *model.Transaction
	err := l.run(ctx, func(tx StoreTx, o *outcome) error {
		var err error
		txn, err = l.post(ctx, tx, o, entry{
			userID: telegramID,
			txType: model.TxCashout,
			amount: -amount,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (l *LedgerService) Transfer(ctx context.Context, fromID, toID int64, amount int64) error {
	if amount <= 0 || fromID == toID {
		return ErrInvalidAmount
	}
	return l.run(ctx, func(tx StoreTx, o *outcome) error {
		return l.postAll(ctx, tx, o, []entry{
			{userID: fromID, txType: model.TxTransfer, amount: -amount, note: fmt.Sprintf("transfer to %d", toID)},
			{userID: toID, txType: model.TxTransfer, amount: amount, note: fmt.Sprintf("transfer from %d", fromID)},
		})
	})
}

func (l *LedgerService) GetBalance(ctx context.Context, telegramID int64) (int64, error) {
	user, err := l.repo.GetUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.GoldBalance, nil
}

func (l *LedgerService) ListTransactions(ctx context.Context, telegramID int64, limit int) ([]*model.Transaction, error) {
	if _, err := l.GetBalance(ctx, telegramID); err != nil {
		return nil, err
	}
	txns, err := l.repo.ListTransactions(ctx, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}

// Reconcile compares the cached balance with the sum of the user's log.
func (l *LedgerService) Reconcile(ctx context.Context, telegramID int64) (*Reconciliation, error) {
	var rec *Reconciliation
	err := l.repo.Transaction(ctx, func(tx StoreTx) error {
		user, err := tx.LockUser(ctx, telegramID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		sum, err := tx.SumTransactions(ctx, telegramID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{TelegramID: telegramID, Stored: user.GoldBalance, Computed: sum}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// EnsurePlatformAccount creates the account that collects commission if it is missing.
func (l *LedgerService) EnsurePlatformAccount(ctx context.Context) error {
	return l.repo.Transaction(ctx, func(tx StoreTx) error {
		_, err := tx.LockUser(ctx, l.cfg.PlatformAccountID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return tx.CreateUser(ctx, &model.User{
			TelegramID:       l.cfg.PlatformAccountID,
			Handle:           "platform",
			Username:         "platform",
			RegistrationDate: now(),
		})
	})
}
