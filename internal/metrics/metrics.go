// Package metrics owns the Prometheus registry exposed on /metrics and the
// hub's own collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notification_hub"

// NewRegistry returns a private registry carrying the runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(collectors.NewGoCollector())

	return reg
}

type Metrics struct {
	NotificationsPublished *prometheus.CounterVec
	DeliveriesQueued       prometheus.Counter
	DeliveryAttempts       *prometheus.CounterVec
	DeliveryDuration       prometheus.Histogram
	DeadLetters            prometheus.Counter
	SubscriptionChanges    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		NotificationsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_published_total",
			Help:      "Notifications published, by outcome (queued or no_subscribers).",
		}, []string{"outcome"}),
		DeliveriesQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_queued_total",
			Help:      "Delivery jobs placed on the queue.",
		}),
		DeliveryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "Delivery attempts, by outcome.",
		}, []string{"outcome"}),
		DeliveryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent POSTing a notification to a subscriber.",
			Buckets:   prometheus.DefBuckets,
		}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "Deliveries that exhausted their attempts.",
		}),
		SubscriptionChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_changes_total",
			Help:      "Subscribe and unsubscribe operations, by action.",
		}, []string{"action"}),
	}
}
