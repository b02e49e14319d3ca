package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdf2docx",
			Name:      "conversions_total",
			Help:      "Total conversion requests by result (success, client_error, render_error, busy)",
		},
		[]string{"result"},
	)

	conversionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdf2docx",
			Name:      "conversion_duration_seconds",
			Help:      "Duration of successful conversions end to end",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	pagesRendered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdf2docx",
			Name:      "pages_rendered_total",
			Help:      "Total PDF pages rasterized",
		},
	)

	overlaysRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdf2docx",
			Name:      "overlays_removed_total",
			Help:      "Pages where the overlay cleaner removed at least one region",
		},
	)

	uploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdf2docx",
			Name:      "upload_bytes",
			Help:      "Size of accepted uploads in bytes",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 4, 8),
		},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdf2docx",
			Name:      "conversions_inflight",
			Help:      "Conversions currently holding a slot",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(conversions, conversionDuration, pagesRendered, overlaysRemoved, uploadBytes, inflight)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncConversion(result string)          { conversions.WithLabelValues(result).Inc() }
func ObserveConversion(dur time.Duration)  { conversionDuration.Observe(dur.Seconds()) }
func AddPagesRendered(n int)               { pagesRendered.Add(float64(n)) }
func IncOverlayRemoved()                   { overlaysRemoved.Inc() }
func ObserveUploadSize(n int64)            { uploadBytes.Observe(float64(n)) }
func IncInflight()                         { inflight.Inc() }
func DecInflight()                         { inflight.Dec() }
