package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	activeSessions  prometheus.Gauge
	sessionsTotal   prometheus.Counter
	itemsBuffered   prometheus.Counter
	batchesTotal    *prometheus.CounterVec
	batchSize       prometheus.Histogram
	convertDuration prometheus.Histogram

	artifactsTotal  *prometheus.CounterVec
	persistDuration prometheus.Histogram

	messagesReceived prometheus.Counter
	messagesSent     *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			activeSessions: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "lot_sessions_active",
					Help: "Current active lot session count.",
				},
			),
			sessionsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "lot_sessions_total",
					Help: "Total lot sessions started.",
				},
			),
			itemsBuffered: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "lot_items_buffered_total",
					Help: "Total images appended to lot sessions.",
				},
			),
			batchesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "lot_batches_total",
					Help: "Total lot batches run by trigger.",
				},
				[]string{"trigger"},
			),
			batchSize: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "lot_batch_size",
					Help:    "Number of items per dispatched batch.",
					Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
				},
			),
			convertDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sticker_convert_duration_seconds",
					Help:    "Sticker conversion duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			artifactsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sticker_artifacts_total",
					Help: "Total sticker artifacts persisted by status.",
				},
				[]string{"status"},
			),
			persistDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sticker_persist_duration_seconds",
					Help:    "Artifact persistence duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			messagesReceived: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "bridge_messages_received_total",
					Help: "Total inbound bridge messages.",
				},
			),
			messagesSent: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "bridge_messages_sent_total",
					Help: "Total outbound bridge messages by status.",
				},
				[]string{"status"},
			),
		}

		prometheus.MustRegister(
			m.activeSessions,
			m.sessionsTotal,
			m.itemsBuffered,
			m.batchesTotal,
			m.batchSize,
			m.convertDuration,
			m.artifactsTotal,
			m.persistDuration,
			m.messagesReceived,
			m.messagesSent,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func SetActiveSessions(count int) {
	getMetrics().activeSessions.Set(float64(count))
}

func RecordSessionStarted() {
	getMetrics().sessionsTotal.Inc()
}

func RecordItemBuffered() {
	getMetrics().itemsBuffered.Inc()
}

func RecordBatch(trigger string, size int) {
	m := getMetrics()
	m.batchesTotal.WithLabelValues(trigger).Inc()
	m.batchSize.Observe(float64(size))
}

func RecordConvert(duration time.Duration) {
	getMetrics().convertDuration.Observe(duration.Seconds())
}

func RecordArtifact(duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.artifactsTotal.WithLabelValues(status).Inc()
	m.persistDuration.Observe(duration.Seconds())
}

func RecordMessageReceived() {
	getMetrics().messagesReceived.Inc()
}

func RecordMessageSent(success bool) {
	status := "error"
	if success {
		status = "success"
	}
	getMetrics().messagesSent.WithLabelValues(status).Inc()
}
