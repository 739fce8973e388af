package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// HealthChecker tracks the liveness of the service's external
// dependencies (road router, cache backend) and serves the combined
// status over HTTP.
type HealthChecker struct {
	startTime time.Time

	mu          sync.RWMutex
	connections map[string]ConnStatus

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHealthChecker starts a HealthChecker that refreshes its process
// metrics gauges every 15 seconds until Shutdown is called.
func NewHealthChecker() *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())
	h := &HealthChecker{
		startTime:   time.Now(),
		connections: make(map[string]ConnStatus),
		ctx:         ctx,
		cancel:      cancel,
	}
	go h.collectProcessMetrics()
	return h
}

// UpdateConnection records the latest observed state of a named
// dependency (e.g. "router", "cache").
func (h *HealthChecker) UpdateConnection(name, status string, latency time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cs := ConnStatus{Status: status, LatencyMs: latency.Milliseconds()}
	if err != nil {
		cs.LastError = err.Error()
	}
	h.connections[name] = cs
}

// Health computes the aggregate status: unhealthy if any connection is in
// error, degraded if none are in error but at least one is degraded,
// healthy otherwise.
func (h *HealthChecker) Health() ServiceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	errorCount, degradedCount := 0, 0
	connections := make(map[string]ConnStatus, len(h.connections))
	for name, cs := range h.connections {
		connections[name] = cs
		switch cs.Status {
		case "error":
			errorCount++
		case "degraded":
			degradedCount++
		}
	}
	if errorCount > 0 {
		status = "unhealthy"
	} else if degradedCount > 0 {
		status = "degraded"
	}

	return ServiceHealth{
		Service:     ServiceName,
		Status:      status,
		UptimeSec:   int64(time.Since(h.startTime).Seconds()),
		Connections: connections,
	}
}

// HealthHandler serves the full health report.
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.Health()
		w.Header().Set("Content-Type", "application/json")
		switch health.Status {
		case "healthy", "degraded":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	}
}

// ReadinessHandler reports whether the service should receive traffic.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.Health()
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ready":  health.Status != "unhealthy",
			"status": health.Status,
		})
	}
}

// LivenessHandler reports only whether the process is running at all.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"alive": true})
	}
}

// collectProcessMetrics periodically refreshes the goroutine/memory/GC
// gauges until Shutdown is called.
func (h *HealthChecker) collectProcessMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.updateProcessMetrics()
		}
	}
}

func (h *HealthChecker) updateProcessMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	GoRoutines.Set(float64(runtime.NumGoroutine()))
	MemoryUsage.Set(float64(m.Alloc))
	GCRuns.Set(float64(m.NumGC))
}

// Shutdown stops the background metrics collector.
func (h *HealthChecker) Shutdown() {
	h.cancel()
}

// ConnectionMonitor periodically runs checkFunc and reports its result to
// a HealthChecker under name.
type ConnectionMonitor struct {
	name     string
	health   *HealthChecker
	check    func(context.Context) error
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnectionMonitor builds a monitor that is not yet running; call
// Start to begin the polling loop.
func NewConnectionMonitor(name string, h *HealthChecker, check func(context.Context) error, interval time.Duration) *ConnectionMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &ConnectionMonitor{name: name, health: h, check: check, interval: interval, ctx: ctx, cancel: cancel}
}

// Start runs an immediate check, then continues on interval until Stop.
func (cm *ConnectionMonitor) Start() {
	go cm.run()
}

// Stop ends the polling loop.
func (cm *ConnectionMonitor) Stop() {
	cm.cancel()
}

func (cm *ConnectionMonitor) run() {
	cm.poll()
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-cm.ctx.Done():
			return
		case <-ticker.C:
			cm.poll()
		}
	}
}

func (cm *ConnectionMonitor) poll() {
	start := time.Now()
	err := cm.check(cm.ctx)
	latency := time.Since(start)

	status := "connected"
	if err != nil {
		status = "error"
	}
	cm.health.UpdateConnection(cm.name, status, latency, err)
}
