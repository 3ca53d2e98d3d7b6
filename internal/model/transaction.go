package model

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TxPurchase TransactionType = "PURCHASE"
	TxReward   TransactionType = "REWARD"
	TxTransfer TransactionType = "TRANSFER"
	TxRefund   TransactionType = "REFUND"
	TxCashout  TransactionType = "CASHOUT"
)

type Transaction struct {
	TransactionID uuid.UUID
	UserID        int64
	Type          TransactionType
	Amount        int64
	CommissionFee int64
	QuestRef      *uuid.UUID
	Note          string
	CreatedAt     time.Time
}
