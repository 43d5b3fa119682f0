// Package metrics exposes Prometheus collectors for the checklist crawler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Error kind labels used by ObserveError.
const (
	KindFetch       = "fetch"
	KindExtraction  = "extraction"
	KindCorrelation = "correlation"
	KindSession     = "session"
	KindSink        = "sink"
)

var (
	fetchesTotal *prometheus.CounterVec
	savedTotal   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklisting_fetches_total",
				Help: "Total number of pages fetched, labeled by source.",
			},
			[]string{"source"},
		)

		savedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklisting_checklists_saved_total",
				Help: "Total number of checklists saved, labeled by source.",
			},
			[]string{"source"},
		)

		errorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checklisting_errors_total",
				Help: "Total number of crawl errors, labeled by source and kind.",
			},
			[]string{"source", "kind"},
		)
	})
}

// ObserveFetch counts one completed fetch for a source.
func ObserveFetch(source string) {
	Init()
	fetchesTotal.WithLabelValues(source).Inc()
}

// ObserveSaved counts one checklist that reached the sink.
func ObserveSaved(source string) {
	Init()
	savedTotal.WithLabelValues(source).Inc()
}

// ObserveError counts one crawl error of the given kind.
func ObserveError(source, kind string) {
	Init()
	errorsTotal.WithLabelValues(source, kind).Inc()
}

// Handler returns an http.Handler that serves the registered metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
