package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// --- Metrics ---

var (
	metricTicketsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickets_created_total",
		Help: "Tickets successfully provisioned, by category.",
	}, []string{"category"})

	metricTicketsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_closed_total",
		Help: "Tickets whose delayed deletion has run.",
	})

	metricTicketFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_failures_total",
		Help: "Creation flow failures, by the stage that failed.",
	}, []string{"stage"})

	metricTicketsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tickets_active",
		Help: "Currently open tickets.",
	})
)
