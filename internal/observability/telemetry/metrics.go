package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de negócio
	BookingTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handover_booking_transitions_total",
		Help: "Booking status transitions committed, by target status",
	}, []string{"to"})

	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handover_operations_total",
		Help: "State machine operations by outcome",
	}, []string{"operation", "outcome"})

	PaymentsCollectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handover_payments_collected_total",
		Help: "Collected amounts in minor currency units, by payment mode",
	}, []string{"mode"})

	VerificationAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handover_verification_attempts_total",
		Help: "Code submissions by checkpoint and result",
	}, []string{"checkpoint", "result"})

	// Métricas de infraestrutura
	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "handover_lock_wait_seconds",
		Help:    "Time spent waiting for the per-booking lock",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	NotificationsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handover_notifications_dropped_total",
		Help: "Booking events dropped because the dispatch buffer was full",
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handover_websocket_clients",
		Help: "Dashboard clients connected to the live booking feed",
	})

	GRPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handover_grpc_requests_total",
		Help: "gRPC requests by method and status code",
	}, []string{"method", "code"})

	GRPCLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "handover_grpc_latency_seconds",
		Help:    "gRPC request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)
