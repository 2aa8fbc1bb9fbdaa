// Package metrics exposes Prometheus instruments for the feed pipeline,
// the alert engine and the notification queue.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"codeberg.org/mutker/hwmond/internal/sensor"
)

const namespace = "hwmond"

var (
	snapshotsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Total number of sanitized snapshots published to the store.",
		},
	)

	feedDecodeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_decode_failures_total",
			Help:      "Total number of feed lines that failed to decode.",
		},
	)

	alertsFiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Total number of alerts fired, partitioned by breach level.",
		},
		[]string{"level"},
	)

	alertsSuppressedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Total number of alerts suppressed by the per-sensor debounce.",
		},
	)

	notificationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications dropped because the queue was full.",
		},
	)

	bridgeUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_up",
			Help:      "Whether the sensor bridge process is running.",
		},
	)

	sensorValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_value",
			Help:      "Latest sampled sensor reading.",
		},
		[]string{"node", "type", "name"},
	)
)

// Register attaches all hwmond collectors to the supplied registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		snapshotsPublishedTotal,
		feedDecodeFailuresTotal,
		alertsFiredTotal,
		alertsSuppressedTotal,
		notificationsDroppedTotal,
		bridgeUp,
		sensorValue,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}

			return err
		}
	}

	return nil
}

// SnapshotPublished counts one published snapshot.
func SnapshotPublished() {
	snapshotsPublishedTotal.Inc()
}

// FeedDecodeFailed counts one unparseable feed line.
func FeedDecodeFailed() {
	feedDecodeFailuresTotal.Inc()
}

// AlertFired counts one dispatched alert at the given breach level.
func AlertFired(level string) {
	alertsFiredTotal.WithLabelValues(level).Inc()
}

// AlertSuppressed counts one debounced alert.
func AlertSuppressed() {
	alertsSuppressedTotal.Inc()
}

// NotificationDropped counts one notification lost to a full queue.
func NotificationDropped() {
	notificationsDroppedTotal.Inc()
}

// SetBridgeUp records whether the bridge process is running.
func SetBridgeUp(up bool) {
	if up {
		bridgeUp.Set(1)
	} else {
		bridgeUp.Set(0)
	}
}

// ObserveSnapshot exports every present reading of a sampled snapshot as a
// gauge. Called on the consumer tick, not per feed line, to bound churn.
func ObserveSnapshot(snap sensor.Snapshot) {
	for _, node := range snap {
		for _, s := range node.Sensors {
			if s.Value == nil {
				continue
			}
			sensorValue.WithLabelValues(node.Name, string(s.Type), s.Name).Set(*s.Value)
		}
	}
}
