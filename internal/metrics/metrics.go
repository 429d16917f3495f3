package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loyalty_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PointsCreditedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_points_credited_total",
			Help: "Total points credited from payments",
		},
	)

	PointsDebitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_points_debited_total",
			Help: "Total points debited by redemptions",
		},
	)

	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_redemptions_total",
			Help: "Redemption attempts by reward and outcome",
		},
		[]string{"reward_id", "status"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_webhook_events_total",
			Help: "Payment webhook events by outcome",
		},
		[]string{"outcome"},
	)

	IdentityResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_identity_resolutions_total",
			Help: "Identity resolutions by source (redis, mapping, email, unresolved)",
		},
		[]string{"source"},
	)

	BalanceDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_balance_drift_total",
			Help: "Balance rows found out of sync with the ledger",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_emails_total",
			Help: "Total number of emails processed",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loyalty_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPointsCredited(points int64) {
	if points > 0 {
		PointsCreditedTotal.Add(float64(points))
	}
}

func RecordPointsDebited(points int64) {
	if points > 0 {
		PointsDebitedTotal.Add(float64(points))
	}
}

func RecordRedemption(rewardID, status string) {
	RedemptionsTotal.WithLabelValues(rewardID, status).Inc()
}

func RecordWebhookEvent(outcome string) {
	WebhookEventsTotal.WithLabelValues(outcome).Inc()
}

func RecordIdentityResolution(source string) {
	IdentityResolutionsTotal.WithLabelValues(source).Inc()
}

func RecordBalanceDrift() {
	BalanceDriftTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func SetEmailQueueLength(n int64) {
	EmailQueueLength.Set(float64(n))
}
