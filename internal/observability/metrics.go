package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "linkkeeper"

// Metrics captures Prometheus collectors for link enrichment.
type Metrics struct {
	PageFetchLatency   prometheus.Histogram
	PageFetchFailures  *prometheus.CounterVec
	ImageFetchFailures *prometheus.CounterVec
	Extractions        *prometheus.CounterVec
	LinksCreated       *prometheus.CounterVec
}

// NewMetrics registers collectors with reg, or with the default registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		PageFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "page_fetch_seconds",
			Help:      "Time spent fetching pages for metadata extraction.",
			Buckets:   prometheus.DefBuckets,
		}),
		PageFetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "page_fetch_failures_total",
			Help:      "Page fetches that produced no metadata, by reason.",
		}, []string{"reason"}),
		ImageFetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "image_fetch_failures_total",
			Help:      "Preview image downloads that failed, by reason.",
		}, []string{"reason"}),
		Extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "extractions_total",
			Help:      "Successful metadata extractions grouped by content type.",
		}, []string{"type"}),
		LinksCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created, split by whether metadata was extracted.",
		}, []string{"enriched"}),
	}
}
