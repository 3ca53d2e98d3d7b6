package model

const (
	EventApplicationReceived = "application.received"
	EventApplicationReviewed = "application.reviewed"
	EventQuestStatusChanged  = "quest.status_changed"
	EventSubmissionReceived  = "submission.received"
	EventSubmissionReviewed  = "submission.reviewed"
	EventLedgerCredited      = "ledger.credited"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}
