package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_claims_total",
			Help: "Claim attempts, split by outcome",
		},
		[]string{"outcome"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_downloads_total",
			Help: "Download redemptions, split by the source that served the bytes",
		},
		[]string{"source"},
	)

	IdentityLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_identity_lookups_total",
			Help: "Discord member lookups, split by result",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_total",
			Help: "Claim notifications dispatched to Discord",
		},
		[]string{"status"},
	)

	LineEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_line_events_total",
			Help: "LINE webhook events processed, split by event type",
		},
		[]string{"type"},
	)
)

const (
	OutcomeIssued   = "issued"
	OutcomeReused   = "reused"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	SourceStorage   = "storage"
	SourceFallback  = "fallback"
	SourceFailed    = "failed"
	StatusSent      = "sent"
	StatusError     = "error"
)

func RecordClaim(outcome string) {
	ClaimsTotal.WithLabelValues(outcome).Inc()
}

func RecordDownload(source string) {
	DownloadsTotal.WithLabelValues(source).Inc()
}

func RecordIdentityLookup(status string) {
	IdentityLookupsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

func RecordLineEvent(eventType string) {
	LineEventsTotal.WithLabelValues(eventType).Inc()
}
