package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LedgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questboard_ledger_transactions_total",
			Help: "Ledger entries committed, by transaction type",
		},
		[]string{"type"},
	)
	QuestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questboard_quest_transitions_total",
			Help: "Committed quest status transitions",
		},
		[]string{"from", "to"},
	)
	RLRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_requests_total",
			Help: "Total requests seen by the rate limiter",
		},
		[]string{"endpoint"},
	)
	RLBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limiter_blocked_total",
			Help: "Total requests blocked by the rate limiter",
		},
		[]string{"endpoint"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questboard_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "questboard_ws_connections",
			Help: "Open notification websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(LedgerTransactions)
	prometheus.MustRegister(QuestTransitions)
	prometheus.MustRegister(RLRequests)
	prometheus.MustRegister(RLBlocked)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(WSConnections)
}
