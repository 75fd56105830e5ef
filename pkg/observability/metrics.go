package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook delivery metrics
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Total webhook deliveries received, by event type and outcome",
	}, []string{
		"event_type",
		"outcome", // accepted, skipped, rejected_source, resolution_failed, handler_failed
	})

	webhookProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_webhook_processing_duration_seconds",
		Help:    "Time spent resolving and dispatching one webhook delivery",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"event_type",
	})

	// Remote gateway metrics
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_gateway_requests_total",
		Help: "Total calls to the remote payment provider",
	}, []string{
		"operation",
		"status", // ok, error
	})

	// Lifecycle metrics
	subscriptionOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_subscription_operations_total",
		Help: "Total subscription lifecycle operations",
	}, []string{
		"operation", // subscribe, upgrade, cancel, reduce_quantity
		"status",    // ok, rejected, error
	})

	allowlistSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "billing_webhook_allowlist_addresses",
		Help: "Number of addresses in the current webhook source allow-list",
	})
)

// RecordWebhookEvent counts one webhook delivery outcome.
func RecordWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// ObserveWebhookDuration records the processing time of one delivery.
func ObserveWebhookDuration(eventType string, seconds float64) {
	webhookProcessingDuration.WithLabelValues(eventType).Observe(seconds)
}

// RecordGatewayRequest counts one remote provider call.
func RecordGatewayRequest(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	gatewayRequestsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSubscriptionOperation counts one lifecycle operation outcome.
func RecordSubscriptionOperation(operation, status string) {
	subscriptionOperationsTotal.WithLabelValues(operation, status).Inc()
}

// SetAllowlistSize publishes the size of the refreshed allow-list.
func SetAllowlistSize(n int) {
	allowlistSize.Set(float64(n))
}
