package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trekka_bookings_total",
			Help: "Bookings created by outcome status",
		},
		[]string{"status"},
	)

	paymentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trekka_payment_transitions_total",
			Help: "Payment status transitions applied by reconciliation",
		},
		[]string{"to_status", "source"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trekka_webhook_events_total",
			Help: "Inbound gateway webhook events by handling result",
		},
		[]string{"result"},
	)

	seatReservationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trekka_seat_reservation_duration_seconds",
			Help:    "Duration of seat reservation transactions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trekka_gateway_request_duration_seconds",
			Help:    "Duration of outbound payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"operation"},
	)
)

// TrackBooking records a booking creation outcome.
func TrackBooking(status string) {
	bookingsCreated.WithLabelValues(status).Inc()
}

// TrackPaymentTransition records a reconciliation transition.
// source is "verify" or "webhook".
func TrackPaymentTransition(toStatus, source string) {
	paymentTransitions.WithLabelValues(toStatus, source).Inc()
}

// TrackWebhookEvent records an inbound webhook handling result.
func TrackWebhookEvent(result string) {
	webhookEvents.WithLabelValues(result).Inc()
}

// TrackSeatReservation records how long a ledger reservation took.
func TrackSeatReservation(duration time.Duration) {
	seatReservationDuration.Observe(duration.Seconds())
}

// TrackGatewayRequest records an outbound gateway call duration.
func TrackGatewayRequest(operation string, duration time.Duration) {
	gatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
