package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors for the webhook pipeline.
type Metrics struct {
	WebhooksReceived    *prometheus.CounterVec
	WebhooksDispatched  *prometheus.CounterVec
	WebhookDuplicates   prometheus.Counter
	UnknownTopics       prometheus.Counter
	HandlerFailures     *prometheus.CounterVec
	ComplianceFailures  prometheus.Counter
	DedupStoreFailOpens prometheus.Counter
}

// New registers the collectors with reg. Tests pass their own registry
// to avoid duplicate registration against the default one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WebhooksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopmetrics_webhooks_received_total",
			Help: "Webhook envelopes received, by topic.",
		}, []string{"topic"}),
		WebhooksDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopmetrics_webhooks_dispatched_total",
			Help: "Webhook dispatch outcomes, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		WebhookDuplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "shopmetrics_webhook_duplicates_total",
			Help: "Redeliveries short-circuited by the dedup store.",
		}),
		UnknownTopics: factory.NewCounter(prometheus.CounterOpts{
			Name: "shopmetrics_webhook_unknown_topics_total",
			Help: "Webhooks acknowledged without a registered handler.",
		}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shopmetrics_webhook_handler_failures_total",
			Help: "Handler invocation failures, by topic and kind.",
		}, []string{"topic", "kind"}),
		ComplianceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "shopmetrics_compliance_failures_total",
			Help: "Compliance-topic handler failures durably recorded for remediation.",
		}),
		DedupStoreFailOpens: factory.NewCounter(prometheus.CounterOpts{
			Name: "shopmetrics_dedup_failopen_total",
			Help: "Dispatches processed without dedup protection because the dedup store was unavailable.",
		}),
	}
}
