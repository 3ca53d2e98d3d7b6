package api

import (
	"time"

	"questboard/internal/model"
	"questboard/internal/service"

	"github.com/google/uuid"
)

type questResponse struct {
	QuestID        uuid.UUID  `json:"quest_id"`
	CreatorID      int64      `json:"creator_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	DifficultyTier string     `json:"difficulty_tier"`
	Status         string     `json:"status"`
	GoldBudget     int64      `json:"gold_budget"`
	Commission     int64      `json:"commission"`
	GoldReward     int64      `json:"gold_reward"`
	XPReward       int        `json:"xp_reward"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func newQuestResponse(q *model.Quest) questResponse {
	return questResponse{
		QuestID:        q.QuestID,
		CreatorID:      q.CreatorID,
		Title:          q.Title,
		Description:    q.Description,
		Category:       q.Category,
		DifficultyTier: string(q.DifficultyTier),
		Status:         string(q.Status),
		GoldBudget:     q.GoldBudget,
		Commission:     q.Commission,
		GoldReward:     q.GoldReward,
		XPReward:       q.XPReward,
		DueDate:        q.DueDate,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
		CompletedAt:    q.CompletedAt,
	}
}

type applicationResponse struct {
	ApplicationID uuid.UUID  `json:"application_id"`
	QuestID       uuid.UUID  `json:"quest_id"`
	ApplicantID   int64      `json:"applicant_id"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	AppliedAt     time.Time  `json:"applied_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

func newApplicationResponse(app *model.Application) applicationResponse {
	return applicationResponse{
		ApplicationID: app.ApplicationID,
		QuestID:       app.QuestID,
		ApplicantID:   app.ApplicantID,
		Status:        string(app.Status),
		Reason:        app.Reason,
		AppliedAt:     app.AppliedAt,
		ReviewedAt:    app.ReviewedAt,
	}
}

type submissionResponse struct {
	SubmissionID   uuid.UUID  `json:"submission_id"`
	QuestID        uuid.UUID  `json:"quest_id"`
	ParticipantID  *int64     `json:"participant_id,omitempty"`
	ApplicationID  *uuid.UUID `json:"application_id,omitempty"`
	SequenceNumber int        `json:"sequence_number"`
	Status         string     `json:"status"`
	Text           string     `json:"text,omitempty"`
	Link           string     `json:"link,omitempty"`
	Files          []string   `json:"files,omitempty"`
	Feedback       string     `json:"feedback,omitempty"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
}

func newSubmissionResponse(sub *model.Submission) submissionResponse {
	return submissionResponse{
		SubmissionID:   sub.SubmissionID,
		QuestID:        sub.QuestID,
		ParticipantID:  sub.ParticipantRef.UserID,
		ApplicationID:  sub.ParticipantRef.ApplicationID,
		SequenceNumber: sub.SequenceNumber,
		Status:         string(sub.Status),
		Text:           sub.Payload.Text,
		Link:           sub.Payload.Link,
		Files:          sub.Payload.Files,
		Feedback:       sub.Feedback,
		SubmittedAt:    sub.SubmittedAt,
		ReviewedAt:     sub.ReviewedAt,
	}
}

type transactionResponse struct {
	TransactionID uuid.UUID  `json:"transaction_id"`
	Type          string     `json:"type"`
	Amount        int64      `json:"amount"`
	CommissionFee int64      `json:"commission_fee"`
	QuestID       *uuid.UUID `json:"quest_id,omitempty"`
	Note          string     `json:"note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func newTransactionResponse(txn *model.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: txn.TransactionID,
		Type:          string(txn.Type),
		Amount:        txn.Amount,
		CommissionFee: txn.CommissionFee,
		QuestID:       txn.QuestRef,
		Note:          txn.Note,
		CreatedAt:     txn.CreatedAt,
	}
}

type reconciliationResponse struct {
	TelegramID int64 `json:"telegram_id"`
	Stored     int64 `json:"stored"`
	Computed   int64 `json:"computed"`
	Consistent bool  `json:"consistent"`
}

func newReconciliationResponse(rec *service.Reconciliation) reconciliationResponse {
	return reconciliationResponse{
		TelegramID: rec.TelegramID,
		Stored:     rec.Stored,
		Computed:   rec.Computed,
		Consistent: rec.Consistent(),
	}
}

type payoutRequest struct {
	UserID int64 `json:"user_id"`
	Amount int64 `json:"amount"`
}

func toPayouts(in []payoutRequest) []model.Payout {
	payouts := make([]model.Payout, len(in))
	for i, p := range in {
		payouts[i] = model.Payout{UserID: p.UserID, Amount: p.Amount}
	}
	return payouts
}
