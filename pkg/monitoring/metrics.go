// Package monitoring exposes the Prometheus metrics and health/readiness
// HTTP handlers the route-generation service runs alongside its core
// pipeline: generation latency and outcome counters, router and cache
// request instrumentation, and process-level gauges.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServiceName labels every metric emitted by this process.
const ServiceName = "looproute"

var (
	// RouteGenerationDuration measures a full GenerateLoop call, from
	// cache lookup through whichever path (tolerance band or geometric
	// fallback) ultimately produced a result.
	RouteGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "looproute_generation_duration_seconds",
			Help:    "Duration of a full route-generation request",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"outcome"},
	)

	// ToleranceBandAttemptsTotal counts each independent attempt run
	// within a tolerance band, labeled by band name and whether it
	// produced an acceptable route.
	ToleranceBandAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_tolerance_band_attempts_total",
			Help: "Route-generation attempts per tolerance band",
		},
		[]string{"band", "result"},
	)

	// ToleranceBandExhaustedTotal counts a whole band (all alternatives)
	// coming up empty, forcing the pipeline to the next relaxed band.
	ToleranceBandExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_tolerance_band_exhausted_total",
			Help: "Tolerance bands exhausted without producing a route",
		},
		[]string{"band"},
	)

	// GeometricFallbackTotal counts how often the pipeline had to fall
	// back to a geometry-only loop, labeled by the reason (no POIs found
	// vs. every tolerance band exhausted).
	GeometricFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_geometric_fallback_total",
			Help: "Geometric-loop fallback invocations",
		},
		[]string{"reason"},
	)

	// RouterRequestsTotal and RouterRequestDuration instrument outbound
	// calls to the road-routing backend.
	RouterRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_router_requests_total",
			Help: "Requests to the external road-routing backend",
		},
		[]string{"profile", "status"},
	)

	RouterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "looproute_router_request_duration_seconds",
			Help:    "Road-router request duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"profile"},
	)

	// CacheHits, CacheMisses, CacheSize track the route cache, labeled by
	// backend name ("memory" or "redis").
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_cache_hits_total",
			Help: "Route cache hits",
		},
		[]string{"backend"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_cache_misses_total",
			Help: "Route cache misses",
		},
		[]string{"backend"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "looproute_cache_size",
			Help: "Entries currently held by the route cache",
		},
		[]string{"backend"},
	)

	// POIDiscoveryDuration measures the repository radius query that
	// opens every generation request.
	POIDiscoveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "looproute_poi_discovery_duration_seconds",
			Help:    "POI repository radius-query duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// ErrorsTotal counts pipeline errors by component and looperr.Kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "looproute_errors_total",
			Help: "Errors observed by component and kind",
		},
		[]string{"component", "kind"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "looproute_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "looproute_memory_usage_bytes",
			Help: "Bytes of allocated heap objects, as reported by runtime.MemStats.Alloc",
		},
	)

	GCRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "looproute_gc_runs_total",
			Help: "Total garbage collection runs",
		},
	)
)

// ServiceHealth is the JSON body served by the health endpoint.
type ServiceHealth struct {
	Service     string                `json:"service"`
	Status      string                `json:"status"`
	UptimeSec   int64                 `json:"uptime_seconds"`
	Connections map[string]ConnStatus `json:"connections"`
}

// ConnStatus reports one monitored external dependency.
type ConnStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// RecordRouteGeneration records a completed GenerateLoop call.
func RecordRouteGeneration(outcome string, d time.Duration) {
	RouteGenerationDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordToleranceBandAttempt records one attempt's outcome within a band.
func RecordToleranceBandAttempt(band string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	ToleranceBandAttemptsTotal.WithLabelValues(band, result).Inc()
}

// RecordToleranceBandExhausted records a band coming up empty.
func RecordToleranceBandExhausted(band string) {
	ToleranceBandExhaustedTotal.WithLabelValues(band).Inc()
}

// RecordGeometricFallback records a fallback invocation and its cause.
func RecordGeometricFallback(reason string) {
	GeometricFallbackTotal.WithLabelValues(reason).Inc()
}

// RecordRouterRequest records one outbound road-router call.
func RecordRouterRequest(profile string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RouterRequestsTotal.WithLabelValues(profile, status).Inc()
	RouterRequestDuration.WithLabelValues(profile).Observe(d.Seconds())
}

// RecordCacheHit and RecordCacheMiss track route cache lookups.
func RecordCacheHit(backend string)  { CacheHits.WithLabelValues(backend).Inc() }
func RecordCacheMiss(backend string) { CacheMisses.WithLabelValues(backend).Inc() }

// UpdateCacheSize sets the current entry-count gauge for backend.
func UpdateCacheSize(backend string, size int) { CacheSize.WithLabelValues(backend).Set(float64(size)) }

// RecordError increments the error counter for a component/kind pair.
func RecordError(component, kind string) { ErrorsTotal.WithLabelValues(component, kind).Inc() }
