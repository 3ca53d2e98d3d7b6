package service

import (
	"time"

	"questboard/internal/metrics"
	"questboard/internal/model"
	"questboard/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var now = func() time.Time {
	return time.Now().UTC()
}

type statusChange struct {
	questID   uuid.UUID
	creatorID int64
	from      model.QuestStatus
	to        model.QuestStatus
}

type notification struct {
	telegramID int64
	event      model.Event
}

// outcome collects side effects of one storage transaction. They are published only after
// the transaction commits, so a rollback never leaks a notification or a metric.
type outcome struct {
	txns    []*model.Transaction
	changes []statusChange
	events  []notification
}

func (o *outcome) notify(telegramID int64, eventType string, payload map[string]any) {
	o.events = append(o.events, notification{
		telegramID: telegramID,
		event:      model.Event{Type: eventType, Payload: payload},
	})
}

func (o *outcome) transition(q *model.Quest, next model.QuestStatus) error {
	if !q.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	o.changes = append(o.changes, statusChange{
		questID:   q.QuestID,
		creatorID: q.CreatorID,
		from:      q.Status,
		to:        next,
	})
	q.Status = next
	return nil
}

func publish(notifier Notifier, o *outcome) {
	log := logger.Logger()

	for _, txn := range o.txns {
		metrics.LedgerTransactions.WithLabelValues(string(txn.Type)).Inc()
		log.Info("ledger entry",
			zap.String("transaction_id", txn.TransactionID.String()),
			zap.Int64("telegram_id", txn.UserID),
			zap.String("type", string(txn.Type)),
			zap.Int64("amount", txn.Amount),
			zap.Int64("commission_fee", txn.CommissionFee))
	}

	for _, c := range o.changes {
		metrics.QuestTransitions.WithLabelValues(string(c.from), string(c.to)).Inc()
		log.Info("quest status changed",
			zap.String("quest_id", c.questID.String()),
			zap.String("from", string(c.from)),
			zap.String("to", string(c.to)))
		o.notify(c.creatorID, model.EventQuestStatusChanged, map[string]any{
			"quest_id": c.questID.String(),
			"from":     c.from,
			"to":       c.to,
		})
	}

	if notifier == nil {
		return
	}
	for _, n := range o.events {
		notifier.Notify(n.telegramID, n.event)
	}
}
