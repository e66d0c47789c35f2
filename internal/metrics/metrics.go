package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walipher_ledger_operations_total",
		Help: "Ledger engine operations by name and outcome.",
	}, []string{"operation", "outcome"})

	Sweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walipher_scheduler_sweeps_total",
		Help: "Completed notification scheduler sweeps.",
	})

	NotificationsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walipher_notifications_emitted_total",
		Help: "Notifications pushed to the feed by category.",
	}, []string{"category"})

	SaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "walipher_state_save_failures_total",
		Help: "Write-through persistence failures (state kept optimistic).",
	})
)
