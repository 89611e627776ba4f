package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the console
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts console surface requests by method, route, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "console_http_requests_total", Help: "Total console HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records console surface durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "console_http_request_duration_seconds", Help: "Console HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// APIRequests counts outbound backend calls by operation and outcome
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backend_requests_total", Help: "Backend REST calls by operation and status class."},
		[]string{"op", "status"},
	)
	// APIDuration tracks outbound call latency in seconds
	APIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "backend_request_duration_seconds", Help: "Backend REST call latency in seconds.", Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}},
		[]string{"op"},
	)

	// DroppedRecords counts backend records left out of a response for failing validation
	DroppedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "backend_records_dropped_total", Help: "Malformed backend records dropped by operation."},
		[]string{"op"},
	)

	// PollSamples counts live-position poll outcomes: applied, stale, failed, discarded
	PollSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "poll_samples_total", Help: "Live position poll results by outcome."},
		[]string{"outcome"},
	)
	// ZoneMutations counts create/update/delete outcomes
	ZoneMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "zone_mutations_total", Help: "Zone mutations by operation and outcome."},
		[]string{"op", "outcome"},
	)
	// ZonesLoaded is the size of the last successfully listed zone collection
	ZonesLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "zones_loaded", Help: "Zones in the last successful list."},
	)
)

// RegisterDefault registers collectors to Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(APIRequests)
		Registry.MustRegister(APIDuration)
		Registry.MustRegister(DroppedRecords)
		Registry.MustRegister(PollSamples)
		Registry.MustRegister(ZoneMutations)
		Registry.MustRegister(ZonesLoaded)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

var regOnce sync.Once
