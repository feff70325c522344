package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

var cycles = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wiresync_sync_cycles_total",
	Help: "Sync cycles by result",
}, []string{"provider", "result"})

var cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "wiresync_sync_cycle_duration_seconds",
	Help:    "Duration of sync cycles",
	Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
}, []string{"provider"})

var itemsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wiresync_items_saved_total",
	Help: "Items written to the store",
}, []string{"provider"})

var fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wiresync_fetch_errors_total",
	Help: "Failed sync cycles by error kind",
}, []string{"provider", "kind"})

var watermark = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "wiresync_watermark_timestamp_seconds",
	Help: "Unix time of the last committed watermark",
}, []string{"provider"})

func CycleFinished(provider, result string, d time.Duration) {
	cycles.WithLabelValues(provider, result).Inc()
	if result != ResultSkipped {
		cycleDuration.WithLabelValues(provider).Observe(d.Seconds())
	}
}

func ItemSaved(provider string) {
	itemsSaved.WithLabelValues(provider).Inc()
}

func FetchError(provider, kind string) {
	fetchErrors.WithLabelValues(provider, kind).Inc()
}

func WatermarkSet(provider string, t time.Time) {
	watermark.WithLabelValues(provider).Set(float64(t.Unix()))
}
