package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewHealthChecker(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	if hc.connections == nil {
		t.Error("connections map should be initialized")
	}
}

func TestUpdateConnection(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	hc.UpdateConnection("router", "connected", 100*time.Millisecond, nil)

	hc.mu.RLock()
	conn, exists := hc.connections["router"]
	hc.mu.RUnlock()

	if !exists {
		t.Fatal("connection should exist")
	}
	if conn.Status != "connected" {
		t.Errorf("expected status 'connected', got %s", conn.Status)
	}
	if conn.LatencyMs != 100 {
		t.Errorf("expected latency 100ms, got %d", conn.LatencyMs)
	}
	if conn.LastError != "" {
		t.Errorf("expected no error, got %s", conn.LastError)
	}
}

func TestUpdateConnectionWithError(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	hc.UpdateConnection("cache", "error", 50*time.Millisecond, errors.New("dial failed"))

	hc.mu.RLock()
	conn := hc.connections["cache"]
	hc.mu.RUnlock()

	if conn.Status != "error" {
		t.Errorf("expected status 'error', got %s", conn.Status)
	}
	if conn.LastError != "dial failed" {
		t.Errorf("expected error 'dial failed', got %s", conn.LastError)
	}
}

func TestHealthStatusProgression(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	if status := hc.Health().Status; status != "healthy" {
		t.Errorf("expected healthy with no connections, got %s", status)
	}

	hc.UpdateConnection("router", "connected", 0, nil)
	if status := hc.Health().Status; status != "healthy" {
		t.Errorf("expected healthy, got %s", status)
	}

	hc.UpdateConnection("cache", "degraded", 0, nil)
	if status := hc.Health().Status; status != "degraded" {
		t.Errorf("expected degraded, got %s", status)
	}

	hc.UpdateConnection("router", "error", 0, errors.New("timeout"))
	if status := hc.Health().Status; status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", status)
	}
}

func TestHealthHandlerHealthy(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	hc.HealthHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, w.Code)
	}
	var health ServiceHealth
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %s", health.Status)
	}
}

func TestHealthHandlerUnhealthy(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()
	hc.UpdateConnection("router", "error", 0, errors.New("boom"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	hc.HealthHandler()(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestReadinessHandler(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	hc.ReadinessHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, w.Code)
	}
	var resp map[string]any
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if ready, ok := resp["ready"].(bool); !ok || !ready {
		t.Error("expected ready=true")
	}
}

func TestLivenessHandler(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	hc.LivenessHandler()(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, w.Code)
	}
}

func TestConnectionMonitorSuccess(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	monitor := NewConnectionMonitor("router", hc, func(context.Context) error { return nil }, 50*time.Millisecond)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(150 * time.Millisecond)

	hc.mu.RLock()
	conn, exists := hc.connections["router"]
	hc.mu.RUnlock()
	if !exists {
		t.Fatal("connection should exist after first poll")
	}
	if conn.Status != "connected" {
		t.Errorf("expected connected, got %s", conn.Status)
	}
}

func TestConnectionMonitorError(t *testing.T) {
	hc := NewHealthChecker()
	defer hc.Shutdown()

	testErr := errors.New("unreachable")
	monitor := NewConnectionMonitor("cache", hc, func(context.Context) error { return testErr }, 50*time.Millisecond)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(150 * time.Millisecond)

	hc.mu.RLock()
	conn := hc.connections["cache"]
	hc.mu.RUnlock()
	if conn.Status != "error" {
		t.Errorf("expected error, got %s", conn.Status)
	}
	if conn.LastError != "unreachable" {
		t.Errorf("expected 'unreachable', got %s", conn.LastError)
	}
}
