package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "betting_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})

	betsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "betting_bets_placed_total",
		Help: "Bets accepted",
	})

	betsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_bets_settled_total",
		Help: "Bets settled by result",
	}, []string{"result"})

	ledgerTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_ledger_transactions_total",
		Help: "Deposits and withdrawals recorded",
	}, []string{"type"})

	eventPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "betting_event_publish_failures_total",
		Help: "Events that could not be published after commit",
	}, []string{"event"})
)
